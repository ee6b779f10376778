package code

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCodeRepo serves a fixed snapshot of existing codes per namespace.
// When live is set, ExistsCode consults it instead of codes — that models a
// concurrent writer landing rows between the snapshot read and the
// existence check.
type mockCodeRepo struct {
	codes       map[Namespace][]string
	live        map[Namespace][]string
	findErr     error
	existsErr   error
	existsCalls int
}

func (m *mockCodeRepo) FindCodesByPrefix(_ context.Context, ns Namespace, prefix string) ([]string, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []string
	for _, c := range m.codes[ns] {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCodeRepo) ExistsCode(_ context.Context, ns Namespace, candidate string) (bool, error) {
	m.existsCalls++
	if m.existsErr != nil {
		return false, m.existsErr
	}
	set := m.codes
	if m.live != nil {
		set = m.live
	}
	for _, c := range set[ns] {
		if c == candidate {
			return true, nil
		}
	}
	return false, nil
}

// newTestGenerator returns a generator with deterministic randomness: the
// rand source always picks index 0, so random segments are all 'A'.
func newTestGenerator(repo Repository) *Generator {
	g := NewGenerator(repo)
	g.randInt = func(int) int { return 0 }
	return g
}

func TestGenerate_CategoryCode(t *testing.T) {
	tests := []struct {
		name     string
		seed     string
		existing []string
		want     string
	}{
		{name: "basic name", seed: "Eletrônicos", want: "ELE"},
		{name: "short name padded by nothing", seed: "TV", want: "TV"},
		{name: "strips non letters", seed: "24x Monitor!", want: "XMO"},
		{name: "empty seed falls back", seed: "", want: "GEN"},
		{name: "digits only falls back", seed: "12345", want: "GEN"},
		{name: "base taken bumps suffix", seed: "Eletrônicos", existing: []string{"ELE"}, want: "ELE2"},
		{name: "suffix two taken", seed: "Eletrônicos", existing: []string{"ELE", "ELE2"}, want: "ELE3"},
		{name: "first absent suffix wins", seed: "Eletrônicos", existing: []string{"ELE", "ELE2", "ELE4"}, want: "ELE3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCodeRepo{codes: map[Namespace][]string{
				NamespaceCategory: tt.existing,
			}}
			g := newTestGenerator(repo)

			got, err := g.Generate(context.Background(), NamespaceCategory, tt.seed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_SKU(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		wantSeq  string
	}{
		{name: "empty store starts at 001", existing: nil, wantSeq: "001"},
		{
			name:     "sequence is max plus one, not count plus one",
			existing: []string{"ELE-001-AB3F", "ELE-003-ZK91"},
			wantSeq:  "004",
		},
		{
			name:     "other categories do not advance the sequence",
			existing: []string{"ELE-002-AB3F", "MOV-009-QQQQ"},
			wantSeq:  "003",
		},
		{
			name:     "unparseable codes are skipped",
			existing: []string{"ELE-abc-XXXX", "ELE-002-AB3F", "garbage"},
			wantSeq:  "003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCodeRepo{codes: map[Namespace][]string{
				NamespaceSKU: tt.existing,
			}}
			g := newTestGenerator(repo)

			got, err := g.Generate(context.Background(), NamespaceSKU, "ELE")
			require.NoError(t, err)

			parts := strings.Split(got, "-")
			require.Len(t, parts, 3)
			assert.Equal(t, "ELE", parts[0])
			assert.Equal(t, tt.wantSeq, parts[1])
			assert.Len(t, parts[2], 4)
		})
	}
}

func TestGenerate_SKURandomSegmentAvoidsAmbiguousCharacters(t *testing.T) {
	repo := &mockCodeRepo{codes: map[Namespace][]string{}}
	g := NewGenerator(repo) // real randomness

	for range 50 {
		sku, err := g.Generate(context.Background(), NamespaceSKU, "ELE")
		require.NoError(t, err)

		random := strings.Split(sku, "-")[2]
		assert.NotContains(t, random, "0")
		assert.NotContains(t, random, "O")
		assert.NotContains(t, random, "1")
		assert.NotContains(t, random, "I")
	}
}

func TestGenerate_OrderNumber(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{name: "empty store starts at 0001", existing: nil, want: "OS-0001"},
		{name: "advances past the highest", existing: []string{"OS-0041", "OS-0017"}, want: "OS-0042"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCodeRepo{codes: map[Namespace][]string{
				NamespaceOrder: tt.existing,
			}}
			g := newTestGenerator(repo)

			got, err := g.Generate(context.Background(), NamespaceOrder, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_LookupErrorDegradesToSequenceOne(t *testing.T) {
	repo := &mockCodeRepo{findErr: errors.New("connection refused")}
	g := newTestGenerator(repo)

	sku, err := g.Generate(context.Background(), NamespaceSKU, "ELE")
	require.NoError(t, err, "lookup failures must not propagate")
	assert.True(t, strings.HasPrefix(sku, "ELE-001-"))

	ord, err := g.Generate(context.Background(), NamespaceOrder, "")
	require.NoError(t, err)
	assert.Equal(t, "OS-0001", ord)
}

func TestGenerate_CollisionAppendsRandomSuffix(t *testing.T) {
	// The snapshot yields candidate OS-0002, but a concurrent writer already
	// persisted it, so the generator retries with a suffixed candidate.
	repo := &mockCodeRepo{
		codes: map[Namespace][]string{NamespaceOrder: {"OS-0001"}},
		live:  map[Namespace][]string{NamespaceOrder: {"OS-0001", "OS-0002"}},
	}
	g := newTestGenerator(repo)

	got, err := g.Generate(context.Background(), NamespaceOrder, "")
	require.NoError(t, err)
	assert.Equal(t, "OS-0002AA", got)
	assert.Equal(t, 2, repo.existsCalls)
}

func TestGenerate_RetryBudgetReturnsBestEffort(t *testing.T) {
	// Deterministic randomness means every retry produces the same suffixed
	// candidate; with both taken the generator must give up after its budget
	// instead of looping forever.
	repo := &mockCodeRepo{
		codes: map[Namespace][]string{NamespaceOrder: {"OS-0001"}},
		live:  map[Namespace][]string{NamespaceOrder: {"OS-0002", "OS-0002AA"}},
	}
	g := newTestGenerator(repo)

	got, err := g.Generate(context.Background(), NamespaceOrder, "")
	require.NoError(t, err)
	assert.Equal(t, "OS-0002AA", got, "best-effort candidate is still returned")
	assert.Equal(t, maxUniqueAttempts, repo.existsCalls)
}

func TestGenerate_ExistsErrorReturnsCandidate(t *testing.T) {
	repo := &mockCodeRepo{
		codes:     map[Namespace][]string{},
		existsErr: errors.New("timeout"),
	}
	g := newTestGenerator(repo)

	got, err := g.Generate(context.Background(), NamespaceOrder, "")
	require.NoError(t, err)
	assert.Equal(t, "OS-0001", got)
}

func TestGenerate_UnknownNamespace(t *testing.T) {
	g := newTestGenerator(&mockCodeRepo{})

	_, err := g.Generate(context.Background(), Namespace("banana"), "x")
	require.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestLetterPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Eletrônicos", want: "ELE"},
		{in: "móveis", want: "MVE"},
		{in: "a-b-c-d", want: "ABC"},
		{in: "  telas 4k  ", want: "TEL"},
		{in: "___", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, letterPrefix(tt.in, 3), "input %q", tt.in)
	}
}
