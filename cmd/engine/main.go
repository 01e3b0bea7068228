package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/darkstar-labs/batchmix/internal/api"
	"github.com/darkstar-labs/batchmix/internal/coinjoin"
	"github.com/darkstar-labs/batchmix/internal/db"
	"github.com/darkstar-labs/batchmix/internal/ledger"
	"github.com/darkstar-labs/batchmix/internal/pair"
)

func main() {
	log.Println("Starting batchmix settlement engine...")

	ownerAddress := requireEnv("OWNER_ADDRESS")
	factoryRegistry := requireEnv("FACTORY_REGISTRY")

	var store coinjoin.PoolStore
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("WARNING: DATABASE_URL not set — engine running with an in-memory pool store (state is lost on restart)")
		store = coinjoin.NewMemoryStore()
	} else {
		pg, err := db.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, falling back to in-memory pool store. Error: %v", err)
			store = coinjoin.NewMemoryStore()
		} else {
			defer pg.Close()
			if err := pg.InitSchema(); err != nil {
				log.Fatalf("FATAL: schema init failed: %v", err)
			}
			if err := pg.SeedPools(context.Background()); err != nil {
				log.Fatalf("FATAL: failed to seed pools: %v", err)
			}
			store = pg
		}
	}

	// The asset-custody and pair-registry collaborators are external systems
	// in production (an EVM token contract, a Stellar asset, a live DEX);
	// factoryRegistry identifies which Registry implementation to resolve
	// against. Until a concrete chain adapter is wired in, the engine runs
	// against its in-memory reference collaborators so the HTTP surface and
	// settlement logic are independently exercisable.
	custody := ledger.NewMemoryCustody()
	registry := pair.NewMemoryRegistry()
	log.Printf("Using in-memory custody/registry collaborators (factory registry: %s)", factoryRegistry)

	wsHub := api.NewHub()
	go wsHub.Run()

	engine := coinjoin.NewEngine(store, registry, registry, custody, ownerAddress, coinjoin.WithEvents(wsHub))
	if err := engine.Initialize(ownerAddress, factoryRegistry, factoryRegistry); err != nil {
		log.Fatalf("FATAL: engine initialization failed: %v", err)
	}

	routerCfg := api.RouterConfig{
		AuthToken:          os.Getenv("API_AUTH_TOKEN"),
		RateLimitPerMinute: getEnvOrDefaultInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     getEnvOrDefaultInt("RATE_LIMIT_BURST", 5),
	}
	if routerCfg.AuthToken == "" {
		log.Println("WARNING: API_AUTH_TOKEN not set — protected routes are unauthenticated")
	}
	r := api.SetupRouter(engine, wsHub, routerCfg)

	port := getEnvOrDefault("PORT", "5339")
	log.Printf("Engine running on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set.", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvOrDefaultInt is getEnvOrDefault for integer settings, falling back on
// an unset or unparsable value.
func getEnvOrDefaultInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("WARNING: %s=%q is not an integer, using default %d", key, val, fallback)
		return fallback
	}
	return n
}
