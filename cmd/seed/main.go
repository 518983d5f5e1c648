// Package main provides a CLI tool for seeding the database with demo data.
// It drives the regular services, so seeded data goes through the same
// validation, numbering and FIFO allocation as live traffic.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"powderbook/internal/core/reqctx"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/activity"
	"powderbook/internal/domain/allocation"
	"powderbook/internal/domain/auth"
	"powderbook/internal/domain/catalogs/client"
	"powderbook/internal/domain/catalogs/powder"
	"powderbook/internal/domain/catalogs/supplier"
	"powderbook/internal/domain/ledger"
	"powderbook/internal/domain/usage"
	"powderbook/internal/infrastructure/storage/postgres"
	"powderbook/internal/infrastructure/storage/postgres/activity_repo"
	"powderbook/internal/infrastructure/storage/postgres/auth_repo"
	"powderbook/internal/infrastructure/storage/postgres/catalog_repo"
	"powderbook/internal/infrastructure/storage/postgres/ledger_repo"
	"powderbook/internal/infrastructure/storage/postgres/usage_repo"
	"powderbook/pkg/logger"
	"powderbook/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	num := numerator.New(pool)
	activityService := activity.NewService(activity_repo.NewActivityRepo(txManager))

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig("seed-only"))
	authService := auth.NewService(
		auth_repo.NewUserRepo(txManager),
		auth_repo.NewCompanyRepo(txManager),
		auth_repo.NewTokenRepo(txManager),
		txManager,
		jwtService,
		activityService,
		auth.DefaultServiceConfig(),
	)

	email := envOr("SEED_EMAIL", "demo@powderbook.local")
	password := envOr("SEED_PASSWORD", "demo-password")

	company, owner, err := authService.Register(ctx, auth.RegisterRequest{
		CompanyName: envOr("SEED_COMPANY", "Demo Coatings"),
		Email:       email,
		Password:    password,
		FullName:    "Demo Owner",
	})
	if err != nil {
		log.Fatalw("failed to register demo company", "error", err)
	}
	log.Infow("demo company created", "company_id", company.ID, "email", email)

	// All subsequent operations run as the demo owner.
	ctx = reqctx.WithUser(ctx, &reqctx.UserContext{
		UserID:    owner.ID.String(),
		CompanyID: company.ID.String(),
		Email:     owner.Email,
		Role:      reqctx.RoleOwner,
	})

	powderService := powder.NewService(catalog_repo.NewPowderRepo(txManager), txManager, num)
	supplierService := supplier.NewService(catalog_repo.NewSupplierRepo(txManager), txManager, num)
	clientService := client.NewService(catalog_repo.NewClientRepo(txManager), txManager, num)

	batchRepo := ledger_repo.NewBatchRepo(txManager)
	trailRepo := usage_repo.NewTrailRepo(txManager)
	ledgerService := ledger.NewService(batchRepo, txManager, activityService)
	usageService := usage.NewService(usage_repo.NewUsageRepo(txManager),
		allocation.NewAllocator(batchRepo, trailRepo), txManager, num, activityService)

	// --- Catalogs ---
	powders := []*powder.Powder{
		powder.NewPowder(company.ID, "", "RAL 9016 Traffic White"),
		powder.NewPowder(company.ID, "", "RAL 7016 Anthracite Grey"),
		powder.NewPowder(company.ID, "", "RAL 9005 Jet Black Matte"),
	}
	for _, p := range powders {
		if err := powderService.Create(ctx, p); err != nil {
			log.Fatalw("failed to create powder", "name", p.Name, "error", err)
		}
	}

	sup := supplier.NewSupplier(company.ID, "", "Interpon Supplies Ltd")
	if err := supplierService.Create(ctx, sup); err != nil {
		log.Fatalw("failed to create supplier", "error", err)
	}

	cl := client.NewClient(company.ID, "", "Steelworks & Sons")
	if err := clientService.Create(ctx, cl); err != nil {
		log.Fatalw("failed to create client", "error", err)
	}
	log.Infow("catalogs seeded", "powders", len(powders))

	// --- Stock batches, oldest first so FIFO order is visible ---
	now := time.Now().UTC()
	receipts := []struct {
		powderIdx int
		qty       string
		rate      string
		daysAgo   int
	}{
		{0, "25", "7.50", 30},
		{0, "25", "8.20", 14},
		{1, "20", "9.00", 21},
		{2, "15", "11.40", 7},
	}
	for _, r := range receipts {
		_, err := ledgerService.AddStock(ctx, ledger.AddStockInput{
			CompanyID:  company.ID,
			PowderID:   powders[r.powderIdx].ID,
			SupplierID: sup.ID,
			QtyKg:      types.MustQuantity(r.qty),
			RatePerKg:  types.MustMoney(r.rate),
			ReceivedAt: now.AddDate(0, 0, -r.daysAgo),
			Note:       "seed data",
			CreatedBy:  owner.ID.String(),
		})
		if err != nil {
			log.Fatalw("failed to add stock", "error", err)
		}
	}
	log.Infow("stock seeded", "batches", len(receipts))

	// --- Usages: the first one spans two batches of the same powder ---
	clientID := cl.ID
	usages := []struct {
		powderIdx int
		qty       string
		daysAgo   int
	}{
		{0, "30", 5},
		{1, "8", 3},
	}
	for _, u := range usages {
		_, err := usageService.Create(ctx, usage.CreateInput{
			CompanyID:  company.ID,
			PowderID:   powders[u.powderIdx].ID,
			SupplierID: sup.ID,
			ClientID:   &clientID,
			QuantityKg: types.MustQuantity(u.qty),
			UsedAt:     now.AddDate(0, 0, -u.daysAgo),
			Comment:    "seed data",
			CreatedBy:  owner.ID.String(),
		})
		if err != nil {
			log.Fatalw("failed to create usage", "error", err)
		}
	}
	log.Infow("usages seeded", "count", len(usages))

	log.Info("seeding completed")
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
