// Command catalog-ingest loads a product catalog feed into the database.
//
// The feed is one or more gzip-compressed JSONL files (catalogN.jsonl.gz),
// one product per line:
//
//	{"sku":"ELE-001-QZKM","name":"Monitor 24\"","price":"899.90","category":"Electronics","stock":12}
//
// Products without a SKU get one generated from their category code. Feeds
// from upstream suppliers routinely repeat rows, so SKUs are deduplicated
// before writing.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vendalivre/pos-engine/internal/domain/code"
	"github.com/vendalivre/pos-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

// catalogItem is one decoded feed line.
type catalogItem struct {
	SKU      string
	Name     string
	Price    decimal.Decimal
	Category string
	Stock    int
}

// fileResult holds the items parsed from a single feed file.
type fileResult struct {
	items []catalogItem
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalogN.jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "catalog*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no catalog*.jsonl.gz files in %s", dataDir)
	}

	slog.Info("parsing feed files", slog.Int("files", len(files)))

	items, err := parseFeeds(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	items = dedupe(items)
	slog.Info("feed parsed", slog.Int("products", len(items)))

	if len(items) == 0 {
		slog.Info("nothing to ingest")
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	codeRepo := postgres.NewCodeRepository(pool)
	if err := codeRepo.Warm(ctx); err != nil {
		return errors.Wrap(err, "warm code filter")
	}

	w := &writer{
		pool:       pool,
		codes:      codeRepo,
		generator:  code.NewGenerator(codeRepo),
		categories: make(map[string]string),
	}
	if err := w.writeCatalog(ctx, items); err != nil {
		return errors.Wrap(err, "write catalog")
	}

	return nil
}

// parseFeeds decodes all feed files concurrently.
func parseFeeds(ctx context.Context, files []string) ([]catalogItem, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFile(ctx, i, f, results))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []catalogItem
	for _, r := range results {
		items = append(items, r.items...)
	}
	return items, nil
}

func parseFile(ctx context.Context, idx int, path string, results []fileResult) func() error {
	return func() error {
		var (
			items []catalogItem
			count uint64
		)

		if err := streamGzFile(ctx, path, func(line []byte) error {
			item, err := decodeItem(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", count+1)
			}
			items = append(items, item)

			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress",
					slog.Int("file", idx+1),
					slog.Uint64("products", count),
				)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}

		slog.Info("parse complete",
			slog.Int("file", idx+1),
			slog.Uint64("products", count),
		)

		results[idx] = fileResult{items: items}
		return nil
	}
}

// decodeItem parses one JSONL feed line. Price arrives as a string to keep
// the feed exact; a bare JSON number is accepted too.
func decodeItem(line []byte) (catalogItem, error) {
	var (
		item catalogItem
		d    = jx.DecodeBytes(line)
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "sku":
			v, err := d.Str()
			item.SKU = strings.ToUpper(strings.TrimSpace(v))
			return err
		case "name":
			v, err := d.Str()
			item.Name = strings.TrimSpace(v)
			return err
		case "price":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			s := strings.Trim(string(raw), `"`)
			item.Price, err = decimal.NewFromString(s)
			return err
		case "category":
			v, err := d.Str()
			item.Category = strings.TrimSpace(v)
			return err
		case "stock":
			v, err := d.Int()
			item.Stock = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return catalogItem{}, err
	}

	if item.Name == "" {
		return catalogItem{}, errors.New("missing product name")
	}
	if item.Price.IsNegative() {
		return catalogItem{}, errors.Errorf("negative price %s for %q", item.Price, item.Name)
	}
	return item, nil
}

// dedupe drops repeated SKUs, keeping the first occurrence. Items without a
// SKU pass through; they get one generated at write time.
func dedupe(items []catalogItem) []catalogItem {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	seen := make(map[string]struct{})

	out := items[:0]
	for _, item := range items {
		if item.SKU == "" {
			out = append(out, item)
			continue
		}
		// Bloom miss means definitely new; on a hit fall back to the exact set.
		if filter.TestString(item.SKU) {
			if _, dup := seen[item.SKU]; dup {
				continue
			}
		}
		filter.AddString(item.SKU)
		seen[item.SKU] = struct{}{}
		out = append(out, item)
	}
	return out
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writer upserts categories and products, generating codes as needed.
type writer struct {
	pool       *pgxpool.Pool
	codes      *postgres.CodeRepository
	generator  *code.Generator
	categories map[string]string // name -> category id
}

func (w *writer) writeCatalog(ctx context.Context, items []catalogItem) error {
	slog.Info("writing catalog", slog.Int("products", len(items)))

	for i, item := range items {
		categoryID, err := w.categoryID(ctx, item.Category)
		if err != nil {
			return errors.Wrapf(err, "resolve category %q", item.Category)
		}

		sku := item.SKU
		if sku == "" {
			categoryCode, err := w.categoryCode(ctx, categoryID)
			if err != nil {
				return errors.Wrapf(err, "look up category code for %q", item.Category)
			}
			sku, err = w.generator.Generate(ctx, code.NamespaceSKU, categoryCode)
			if err != nil {
				return errors.Wrapf(err, "generate sku for %q", item.Name)
			}
		}

		if _, err := w.pool.Exec(ctx, `
			INSERT INTO products (id, sku, name, price, category_id, stock)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (sku) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price,
			    category_id = EXCLUDED.category_id, stock = EXCLUDED.stock`,
			uuid.New().String(), sku, item.Name, item.Price, categoryID, item.Stock,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", sku)
		}
		w.codes.Observe(code.NamespaceSKU, sku)

		if (i+1)%100 == 0 || i+1 == len(items) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(items)))
		}
	}

	return nil
}

// categoryID finds or creates the category, generating its short code on
// first sight.
func (w *writer) categoryID(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = "General"
	}
	if id, ok := w.categories[name]; ok {
		return id, nil
	}

	var id string
	err := w.pool.QueryRow(ctx, `SELECT id FROM categories WHERE name = $1`, name).Scan(&id)
	switch {
	case err == nil:
		w.categories[name] = id
		return id, nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return "", errors.Wrap(err, "query category")
	}

	categoryCode, err := w.generator.Generate(ctx, code.NamespaceCategory, name)
	if err != nil {
		return "", errors.Wrap(err, "generate category code")
	}

	id = uuid.New().String()
	if _, err := w.pool.Exec(ctx, `
		INSERT INTO categories (id, name, code) VALUES ($1, $2, $3)`,
		id, name, categoryCode,
	); err != nil {
		return "", errors.Wrap(err, "insert category")
	}
	w.codes.Observe(code.NamespaceCategory, categoryCode)

	w.categories[name] = id
	return id, nil
}

func (w *writer) categoryCode(ctx context.Context, categoryID string) (string, error) {
	var c string
	if err := w.pool.QueryRow(ctx, `SELECT code FROM categories WHERE id = $1`, categoryID).Scan(&c); err != nil {
		return "", err
	}
	return c, nil
}
