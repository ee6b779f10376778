// Command seed-db provisions the schema and loads a small demo catalog so a
// fresh environment has something to sell.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/code"
	"github.com/vendalivre/pos-engine/internal/storage/postgres"
)

type seedProduct struct {
	name     string
	price    string
	category string
	stock    int
}

var demoProducts = []seedProduct{
	{name: "Monitor 24\"", price: "899.90", category: "Eletrônicos", stock: 12},
	{name: "Mouse sem fio", price: "79.90", category: "Eletrônicos", stock: 40},
	{name: "Teclado mecânico", price: "349.00", category: "Eletrônicos", stock: 25},
	{name: "Cadeira de escritório", price: "1299.00", category: "Móveis", stock: 8},
	{name: "Mesa ajustável", price: "2150.00", category: "Móveis", stock: 5},
	{name: "Caderno pautado", price: "12.50", category: "Papelaria", stock: 200},
	{name: "Caneta esferográfica", price: "3.90", category: "Papelaria", stock: 500},
}

var demoCustomers = []struct {
	name     string
	document string
}{
	{name: "Ana Souza", document: "123.456.789-09"},
	{name: "Bruno Lima", document: "987.654.321-00"},
}

func main() {
	var databaseURL string

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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	codeRepo := postgres.NewCodeRepository(pool)
	if err := codeRepo.Warm(ctx); err != nil {
		return errors.Wrap(err, "warm code filter")
	}
	generator := code.NewGenerator(codeRepo)

	if err := seedCatalog(ctx, pool, codeRepo, generator); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedCustomers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed customers")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, codes *postgres.CodeRepository, generator *code.Generator) error {
	slog.Info("seeding demo catalog", slog.Int("products", len(demoProducts)))

	categoryIDs := make(map[string]string)
	categoryCodes := make(map[string]string)

	for _, p := range demoProducts {
		id, ok := categoryIDs[p.category]
		if !ok {
			var err error
			id, err = upsertCategory(ctx, pool, codes, generator, p.category, categoryCodes)
			if err != nil {
				return errors.Wrapf(err, "category %q", p.category)
			}
			categoryIDs[p.category] = id
		}

		// Idempotent by name: a rerun updates instead of duplicating.
		var existing string
		err := pool.QueryRow(ctx, `SELECT sku FROM products WHERE name = $1`, p.name).Scan(&existing)
		if err == nil {
			if _, err := pool.Exec(ctx, `
				UPDATE products SET price = $2, category_id = $3, stock = $4 WHERE sku = $1`,
				existing, decimal.RequireFromString(p.price), id, p.stock,
			); err != nil {
				return errors.Wrapf(err, "update product %q", p.name)
			}
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(err, "query product %q", p.name)
		}

		sku, err := generator.Generate(ctx, code.NamespaceSKU, categoryCodes[p.category])
		if err != nil {
			return errors.Wrapf(err, "generate sku for %q", p.name)
		}

		if _, err := pool.Exec(ctx, `
			INSERT INTO products (id, sku, name, price, category_id, stock)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), sku, p.name, decimal.RequireFromString(p.price), id, p.stock,
		); err != nil {
			return errors.Wrapf(err, "insert product %q", p.name)
		}
		codes.Observe(code.NamespaceSKU, sku)

		slog.Info("seeded product", slog.String("sku", sku), slog.String("name", p.name))
	}

	return nil
}

func upsertCategory(
	ctx context.Context,
	pool *pgxpool.Pool,
	codes *postgres.CodeRepository,
	generator *code.Generator,
	name string,
	categoryCodes map[string]string,
) (string, error) {
	var (
		id string
		c  string
	)
	err := pool.QueryRow(ctx, `SELECT id, code FROM categories WHERE name = $1`, name).Scan(&id, &c)
	if err == nil {
		categoryCodes[name] = c
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", errors.Wrap(err, "query category")
	}

	c, err = generator.Generate(ctx, code.NamespaceCategory, name)
	if err != nil {
		return "", errors.Wrap(err, "generate category code")
	}

	id = uuid.New().String()
	if _, err := pool.Exec(ctx, `INSERT INTO categories (id, name, code) VALUES ($1, $2, $3)`, id, name, c); err != nil {
		return "", errors.Wrap(err, "insert category")
	}
	codes.Observe(code.NamespaceCategory, c)
	categoryCodes[name] = c

	slog.Info("seeded category", slog.String("code", c), slog.String("name", name))
	return id, nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo customers", slog.Int("count", len(demoCustomers)))

	for _, c := range demoCustomers {
		var id string
		err := pool.QueryRow(ctx, `SELECT id FROM customers WHERE name = $1`, c.name).Scan(&id)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(err, "query customer %q", c.name)
		}

		if _, err := pool.Exec(ctx, `
			INSERT INTO customers (id, name, document) VALUES ($1, $2, $3)`,
			uuid.New().String(), c.name, c.document,
		); err != nil {
			return errors.Wrapf(err, "insert customer %q", c.name)
		}
	}

	return nil
}
