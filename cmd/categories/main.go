package main

import (
	"encoding/json"
	"fmt"
	"os"

	"quicksell/internal/cache"
	"quicksell/internal/config"
	"quicksell/internal/database"
	"quicksell/internal/logger"
	"quicksell/internal/services"
	"quicksell/internal/tree"

	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Categories error: %v", err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: categories <import FILE|rebuild>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			logger.Get().Warnf("database close error: %v", err)
		}
	}()

	// The running API may hold a cached tree; dropping it needs the same Redis.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Get().Warnf("Redis unavailable, cached tree will expire on its own: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	categories := services.NewCategoryService(dbManager.DB(), cache.NewCategoryCache(redisClient, cfg.CategoryCacheTTL, nil), nil)

	switch command := os.Args[1]; command {
	case "import":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: categories import FILE")
		}
		doc, err := readTree(os.Args[2])
		if err != nil {
			return err
		}
		created, err := categories.Import(doc)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		logger.Get().Infof("Categories updated: %d created", created)

	case "rebuild":
		if err := categories.Rebuild(); err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
		logger.Get().Info("Category tree rebuilt")

	default:
		return fmt.Errorf("unknown command: %s (use import or rebuild)", command)
	}

	return nil
}

// readTree decodes a nested {"name": {children}} document.
func readTree(filename string) (tree.Nested, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	var doc tree.Nested
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return doc, nil
}
