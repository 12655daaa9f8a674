package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表
	if err := dataLayer.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated")

	// 4. 可选：导入会话内容
	seedFile := os.Getenv("BOOTSTRAP_CONTENT_FILE")
	if seedFile == "" {
		fmt.Println("System bootstrap completed successfully!")
		return
	}

	raw, err := os.ReadFile(seedFile)
	if err != nil {
		log.Fatalf("failed to read content file: %v", err)
	}
	var contents []*entity.SessionContent
	if err := json.Unmarshal(raw, &contents); err != nil {
		log.Fatalf("failed to parse content file: %v", err)
	}

	err = dataLayer.TxManager.WithTransaction(ctx, func(ctx context.Context) error {
		for _, c := range contents {
			if err := dataLayer.ContentRepo.Upsert(ctx, c); err != nil {
				return fmt.Errorf("upsert content %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("failed to import content: %v", err)
	}
	fmt.Printf("Imported %d session contents\n", len(contents))

	fmt.Println("System bootstrap completed successfully!")
}
