package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/surtidora/api/internal/audit"
	"github.com/surtidora/api/internal/auth"
	"github.com/surtidora/api/internal/config"
	"github.com/surtidora/api/internal/database"
	"github.com/surtidora/api/internal/enum"
	"github.com/surtidora/api/internal/lifecycle"
)

type seedProduct struct {
	name      string
	category  string
	price     string
	wholesale string
	casePack  int32
	keywords  string
}

var products = []seedProduct{
	{"Arroz Costeño 5kg", enum.CategoryAbarrotes, "21.90", "19.50", 6, "arroz,costeño,5kg"},
	{"Arroz Costeño 1kg", enum.CategoryAbarrotes, "4.90", "4.30", 12, "arroz,costeño,1kg"},
	{"Aceite Primor 1L", enum.CategoryAbarrotes, "10.50", "9.40", 12, "aceite,primor,1l"},
	{"Azúcar Rubia Cartavio 1kg", enum.CategoryAbarrotes, "4.20", "", 0, "azucar,azúcar,rubia,cartavio,1kg"},
	{"Inca Kola 500ml", enum.CategoryBebidas, "2.50", "2.10", 24, "gaseosa,inca,kola,500ml"},
	{"Agua San Luis 625ml", enum.CategoryBebidas, "1.50", "1.20", 15, "agua,san,luis,625ml"},
	{"Detergente Bolívar 750g", enum.CategoryLimpieza, "12.90", "", 0, "detergente,bolivar,bolívar,750g"},
}

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email for the development token")
	name := flag.String("name", "", "Admin display name")
	ttl := flag.Duration("ttl", 24*time.Hour, "Development token lifetime")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@surtidora.pe"
	}
	if *name == "" {
		*name = "Admin Surtidora"
	}

	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed the catalog in one transaction (all products or none)
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := seedCatalog(ctx, tx); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	if err := seedDeliveries(ctx, pool, *email); err != nil {
		log.Fatalf("Failed to seed deliveries: %v", err)
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, *email, *name, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	log.Println("Seed completed successfully")
	fmt.Printf("Development token for %s (valid %s):\n%s\n", *email, *ttl, token)
}

// seedCatalog upserts the sample products. IDs are derived from the product
// name so running the seed twice updates rather than duplicates.
func seedCatalog(ctx context.Context, tx pgx.Tx) error {
	q := database.New(tx)
	for _, p := range products {
		price, err := toNumeric(p.price)
		if err != nil {
			return fmt.Errorf("%s price: %w", p.name, err)
		}
		wholesale, err := toNumeric(p.wholesale)
		if err != nil {
			return fmt.Errorf("%s wholesale price: %w", p.name, err)
		}

		row, err := q.UpsertProduct(ctx, database.UpsertProductParams{
			ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.name)),
			Name:           p.name,
			Category:       p.category,
			Price:          price,
			WholesalePrice: wholesale,
			CasePack:       p.casePack,
			Keywords:       p.keywords,
			IsAvailable:    true,
		})
		if err != nil {
			return fmt.Errorf("upsert %s: %w", p.name, err)
		}
		log.Printf("Seeded product '%s' (ID: %s)", row.Name, row.ID)
	}
	return nil
}

// seedDeliveries creates two sample deliveries through the lifecycle service
// when none exist yet, one of them already past its deadline.
func seedDeliveries(ctx context.Context, pool *pgxpool.Pool, email string) error {
	queries := database.New(pool)
	newStore := func(db database.DBTX) lifecycle.RecordStore { return database.New(db) }
	svc := lifecycle.NewService(lifecycle.Deliveries, pool, newStore, audit.NewLog(), nil)
	if err := svc.Load(ctx, queries); err != nil {
		return err
	}
	if n := len(svc.List(false)); n > 0 {
		log.Printf("%d deliveries already exist, skipping", n)
		return nil
	}

	actor := lifecycle.Actor{Email: email, Admin: true}
	now := time.Now().UTC()
	samples := []struct {
		fields   map[string]any
		deadline time.Time
	}{
		{map[string]any{"customer": "Bodega Rosita", "address": "Jr. Ayacucho 210, Lima"}, now.Add(-2 * time.Hour)},
		{map[string]any{"customer": "Minimarket El Sol", "address": "Av. Arequipa 1500, Lince"}, now.Add(24 * time.Hour)},
	}
	for _, s := range samples {
		deadline := s.deadline
		rec, err := svc.Create(ctx, actor, lifecycle.CreateRequest{Fields: s.fields, Deadline: &deadline})
		if err != nil {
			return err
		}
		log.Printf("Created delivery for '%v' (ID: %s)", s.fields["customer"], rec.ID)
	}
	return nil
}

// toNumeric converts a decimal string to a NUMERIC value; an empty string is
// stored as NULL.
func toNumeric(s string) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if s == "" {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return n, err
	}
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return n, err
	}
	return n, nil
}
