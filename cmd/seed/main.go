// Command seed imports a YAML topic catalog and optionally creates an admin
// account.
//
//	seed -catalog catalog.yaml -admin-username root -admin-email root@example.com -admin-password ...
package main

import (
	"context"
	"dsatracker/configs"
	"dsatracker/internal/logger"
	"dsatracker/internal/models"
	"dsatracker/internal/seed"
	"dsatracker/internal/server"
	"dsatracker/internal/tracker"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"
)

func main() {
	catalogPath := flag.String("catalog", "", "path to a YAML catalog file")
	adminName := flag.String("admin-name", "Administrator", "full name of the admin account")
	adminUsername := flag.String("admin-username", "", "username of the admin account to create")
	adminEmail := flag.String("admin-email", "", "email of the admin account")
	adminPassword := flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password of the admin account (or SEED_ADMIN_PASSWORD)")
	flag.Parse()

	cfg := configs.LoadConfig()
	logger.InitLogger(cfg)
	defer logger.SyncLogger()

	if *catalogPath == "" && *adminUsername == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deps, cleanup, err := server.NewDeps(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer cleanup()

	seeder := seed.NewSeeder(tracker.NewCatalogService(deps.Topics), deps.Users)
	identity := models.Identity{UserID: "seed", Role: models.RoleAdmin}

	if *adminUsername != "" {
		admin, err := seeder.EnsureAdmin(ctx, models.RegisterRequest{
			FullName: *adminName,
			Username: *adminUsername,
			Email:    *adminEmail,
			Password: *adminPassword,
		})
		if err != nil {
			logger.Log.Fatal("Failed to create admin", zap.Error(err))
		}
		identity.UserID = admin.ID
	}

	if *catalogPath != "" {
		catalog, err := seed.LoadCatalog(*catalogPath)
		if err != nil {
			logger.Log.Fatal("Failed to load catalog", zap.Error(err))
		}

		res, err := seeder.Apply(ctx, identity, catalog)
		if err != nil {
			logger.Log.Fatal("Failed to apply catalog", zap.Error(err))
		}
		logger.Log.Info("Catalog applied",
			zap.Int("topics_created", res.TopicsCreated),
			zap.Int("topics_merged", res.TopicsMerged),
			zap.Int("problems_added", res.ProblemsAdded))
	}
}
