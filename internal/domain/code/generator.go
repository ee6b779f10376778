package code

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

const (
	// alphabet excludes visually ambiguous characters (0/O, 1/I).
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	categoryFallback = "GEN"
	categoryLen      = 3
	orderPrefix      = "OS"
	randomLen        = 4
	suffixLen        = 2

	// maxUniqueAttempts bounds the collision-retry loop. Past it the
	// candidate is returned best-effort and the database unique constraint
	// is left as the backstop.
	maxUniqueAttempts = 10
)

// Generator derives unique codes against a Repository snapshot.
type Generator struct {
	repo Repository

	// randInt is swappable in tests; defaults to math/rand/v2.
	randInt func(n int) int
}

// NewGenerator creates a Generator backed by the given repository.
func NewGenerator(repo Repository) *Generator {
	return &Generator{
		repo:    repo,
		randInt: rand.IntN,
	}
}

// Generate derives a code in the given namespace from seed and verifies it
// against the store, retrying with random suffixes on collision. For
// NamespaceCategory the seed is the category name; for NamespaceSKU it is the
// category code; NamespaceOrder ignores the seed.
//
// The returned value is advisory: persistence must still enforce uniqueness.
func (g *Generator) Generate(ctx context.Context, ns Namespace, seed string) (string, error) {
	var candidate string
	switch ns {
	case NamespaceCategory:
		candidate = g.categoryCode(ctx, seed)
	case NamespaceSKU:
		candidate = g.sku(ctx, seed)
	case NamespaceOrder:
		candidate = g.orderNumber(ctx)
	default:
		return "", ErrUnknownNamespace
	}

	return g.ensureUnique(ctx, ns, candidate), nil
}

// categoryCode builds a 3-letter code from the category name and bumps a
// numeric suffix past any codes already taken: ABC, ABC2, ABC3, ...
func (g *Generator) categoryCode(ctx context.Context, name string) string {
	base := letterPrefix(name, categoryLen)
	if base == "" {
		base = categoryFallback
	}

	taken := make(map[string]struct{})
	existing, err := g.repo.FindCodesByPrefix(ctx, NamespaceCategory, base)
	if err != nil {
		// Degrade to an empty snapshot; the unique constraint catches the
		// duplicates this may produce.
		zctx.From(ctx).Warn("category code lookup failed, assuming empty set",
			zap.String("base", base), zap.Error(err))
	}
	for _, c := range existing {
		taken[c] = struct{}{}
	}

	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// sku builds {CAT}-{SEQ}-{RAND} where SEQ is one greater than the highest
// sequence among existing SKUs sharing the category prefix.
func (g *Generator) sku(ctx context.Context, categoryCode string) string {
	seq := g.nextSequence(ctx, NamespaceSKU, categoryCode+"-")
	return fmt.Sprintf("%s-%03d-%s", categoryCode, seq, g.random(randomLen))
}

// orderNumber builds OS-{SEQ} from the highest existing order number.
func (g *Generator) orderNumber(ctx context.Context) string {
	seq := g.nextSequence(ctx, NamespaceOrder, orderPrefix+"-")
	return fmt.Sprintf("%s-%04d", orderPrefix, seq)
}

// nextSequence returns max(existing sequence numbers under prefix) + 1.
// A lookup failure or an empty result both start the sequence at 1 — a
// deliberate availability-over-correctness tradeoff (see package doc).
func (g *Generator) nextSequence(ctx context.Context, ns Namespace, prefix string) int {
	existing, err := g.repo.FindCodesByPrefix(ctx, ns, prefix)
	if err != nil {
		zctx.From(ctx).Warn("sequence lookup failed, starting at 001",
			zap.String("namespace", string(ns)), zap.String("prefix", prefix), zap.Error(err))
		return 1
	}
	return maxSequence(existing) + 1
}

// maxSequence parses the second dash-separated segment of each code and
// returns the highest value found. Codes that do not parse are skipped.
func maxSequence(codes []string) int {
	maxSeq := 0
	for _, c := range codes {
		parts := strings.Split(c, "-")
		if len(parts) < 2 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		if n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq
}

// ensureUnique checks the candidate against the store and appends a short
// random suffix on collision, up to maxUniqueAttempts. Exhausting the budget
// returns the last candidate best-effort.
func (g *Generator) ensureUnique(ctx context.Context, ns Namespace, candidate string) string {
	current := candidate
	for attempt := 0; attempt < maxUniqueAttempts; attempt++ {
		exists, err := g.repo.ExistsCode(ctx, ns, current)
		if err != nil {
			zctx.From(ctx).Warn("code existence check failed, returning candidate",
				zap.String("namespace", string(ns)), zap.String("candidate", current), zap.Error(err))
			return current
		}
		if !exists {
			return current
		}
		current = candidate + g.random(suffixLen)
	}
	return current
}

// random returns n characters drawn from the unambiguous alphabet.
func (g *Generator) random(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphabet[g.randInt(len(alphabet))])
	}
	return b.String()
}

// letterPrefix returns the first n ASCII letters of s, uppercased. Anything
// that is not an ASCII letter is stripped first, matching how legacy codes
// in the shared table were derived.
func letterPrefix(s string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			continue
		}
		if b.Len() == n {
			break
		}
	}
	return b.String()
}
