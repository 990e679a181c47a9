package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/config"
	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/seed"
	"github.com/dealflow/dealflow-api/internal/tokens"
	"github.com/dealflow/dealflow-api/pkg/logger"
)

func main() {
	ownerHex := flag.String("owner", "", "hex ObjectID of the demo rep (random when empty)")
	role := flag.String("role", "rep", "role claim of the printed demo token")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed demo token")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required for seeding")
	}

	owner := primitive.NewObjectID()
	if *ownerHex != "" {
		if owner, err = primitive.ObjectIDFromHex(*ownerHex); err != nil {
			logger.Fatalf("invalid -owner: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
		logger.Warnf("attempt %d: failed to connect to MongoDB: %v", attempt, err)
	})
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalf("%v", err)
	}
	ds := seed.Demo(owner, time.Now())
	if err := seed.LoadMongo(ctx, db, ds); err != nil {
		logger.Fatalf("seeding failed: %v", err)
	}
	logger.Infof("seeded %d deals, %d activities, %d contacts for owner %s", len(ds.Deals), len(ds.Activities), len(ds.Contacts), owner.Hex())

	if cfg.JWT.Secret == "" {
		return
	}
	tok, err := tokens.GenerateAccessToken(cfg.JWT.Secret, &models.User{ID: owner, Role: *role, Name: "Demo Rep"}, *tokenTTL)
	if err != nil {
		logger.Fatalf("token: %v", err)
	}
	fmt.Println(tok)
}
