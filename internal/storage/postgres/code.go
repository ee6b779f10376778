package postgres

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendalivre/pos-engine/internal/domain/code"
)

var _ code.Repository = (*CodeRepository)(nil)

// codeQueries maps each namespace to its backing column.
var codeQueries = map[code.Namespace]struct {
	byPrefix string
	exists   string
	all      string
}{
	code.NamespaceCategory: {
		byPrefix: `SELECT code FROM categories WHERE code LIKE $1 || '%' ORDER BY code`,
		exists:   `SELECT EXISTS (SELECT 1 FROM categories WHERE code = $1)`,
		all:      `SELECT code FROM categories`,
	},
	code.NamespaceSKU: {
		byPrefix: `SELECT sku FROM products WHERE sku LIKE $1 || '%' ORDER BY sku`,
		exists:   `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`,
		all:      `SELECT sku FROM products`,
	},
	code.NamespaceOrder: {
		byPrefix: `SELECT order_number FROM service_orders WHERE order_number LIKE $1 || '%' ORDER BY order_number`,
		exists:   `SELECT EXISTS (SELECT 1 FROM service_orders WHERE order_number = $1)`,
		all:      `SELECT order_number FROM service_orders`,
	},
}

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

// CodeRepository implements code.Repository over the three code-bearing
// tables. A bloom filter of every code seen by this process serves as a
// negative-lookup fast path: a candidate absent from the filter cannot be in
// the store (as of the last warm), so ExistsCode answers without a round
// trip. Codes written by other terminals after warming can slip past the
// filter — the database uniqueness constraint remains the final authority.
type CodeRepository struct {
	pool *pgxpool.Pool

	mu   sync.RWMutex
	seen *bloom.BloomFilter
}

// NewCodeRepository returns an unwarmed CodeRepository. Call Warm once at
// startup; until then every ExistsCode hits the database.
func NewCodeRepository(pool *pgxpool.Pool) *CodeRepository {
	return &CodeRepository{pool: pool}
}

// Warm loads every existing code from all namespaces into the bloom filter.
func (r *CodeRepository) Warm(ctx context.Context) error {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	for ns, q := range codeQueries {
		rows, err := r.pool.Query(ctx, q.all)
		if err != nil {
			return errors.Wrapf(err, "warm %s codes", ns)
		}
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				rows.Close()
				return errors.Wrapf(err, "scan %s code", ns)
			}
			filter.AddString(filterKey(ns, c))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return errors.Wrapf(err, "warm %s codes", ns)
		}
	}

	r.mu.Lock()
	r.seen = filter
	r.mu.Unlock()
	return nil
}

// Observe records a code persisted by this process so later negative lookups
// stay correct.
func (r *CodeRepository) Observe(ns code.Namespace, c string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen != nil {
		r.seen.AddString(filterKey(ns, c))
	}
}

// FindCodesByPrefix returns the existing codes in ns starting with prefix.
func (r *CodeRepository) FindCodesByPrefix(ctx context.Context, ns code.Namespace, prefix string) ([]string, error) {
	q, ok := codeQueries[ns]
	if !ok {
		return nil, code.ErrUnknownNamespace
	}

	rows, err := r.pool.Query(ctx, q.byPrefix, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s codes by prefix %q", ns, prefix)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Wrapf(err, "scan %s code", ns)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExistsCode reports whether candidate is present in ns, short-circuiting
// through the bloom filter when it can prove absence.
func (r *CodeRepository) ExistsCode(ctx context.Context, ns code.Namespace, candidate string) (bool, error) {
	q, ok := codeQueries[ns]
	if !ok {
		return false, code.ErrUnknownNamespace
	}

	r.mu.RLock()
	warmed := r.seen != nil
	definitelyAbsent := warmed && !r.seen.TestString(filterKey(ns, candidate))
	r.mu.RUnlock()

	if definitelyAbsent {
		return false, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, q.exists, candidate).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "check %s code %q", ns, candidate)
	}
	return exists, nil
}

func filterKey(ns code.Namespace, c string) string {
	return string(ns) + ":" + c
}
