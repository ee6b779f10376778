// Package code derives human-readable identifiers (category codes, SKUs,
// service-order numbers) from a shared, continuously growing code table.
//
// The generator holds no state between calls: it reads a snapshot of the
// existing codes, constructs a candidate, and retries with random suffixes on
// collision. Two concurrent callers can still race on the shared store, so
// generated codes are advisory — the persistence layer's uniqueness
// constraints are the final authority, and callers must regenerate on a
// duplicate-key violation.
package code

import (
	"context"

	"github.com/go-faster/errors"
)

// Namespace identifies the sequence space an identifier belongs to. Each
// namespace has its own format and its own collision domain.
type Namespace string

const (
	// NamespaceCategory holds 3-letter category codes ("ELE", "ELE2", ...).
	NamespaceCategory Namespace = "category"
	// NamespaceSKU holds product codes of the form {CAT}-{SEQ}-{RAND}.
	NamespaceSKU Namespace = "sku"
	// NamespaceOrder holds service-order numbers of the form OS-{SEQ}.
	NamespaceOrder Namespace = "order"
)

// ErrUnknownNamespace is returned by Generate for an unsupported namespace.
var ErrUnknownNamespace = errors.New("unknown code namespace")

// Known reports whether ns is one of the supported namespaces.
func (ns Namespace) Known() bool {
	switch ns {
	case NamespaceCategory, NamespaceSKU, NamespaceOrder:
		return true
	}
	return false
}

// Repository provides read-only access to the shared code store. Lookups are
// snapshots: nothing is reserved, and results may be stale by the time the
// caller persists.
type Repository interface {
	// FindCodesByPrefix returns the existing codes in ns that start with
	// prefix. An empty result is not an error.
	FindCodesByPrefix(ctx context.Context, ns Namespace, prefix string) ([]string, error)
	// ExistsCode reports whether candidate is already present in ns.
	ExistsCode(ctx context.Context, ns Namespace, candidate string) (bool, error)
}
