package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"fakearchive/internal/archive"
	"fakearchive/internal/codec"
	"fakearchive/internal/config"
	"fakearchive/internal/handler"
	"fakearchive/internal/kvstore"
	"fakearchive/internal/observability"
	"fakearchive/internal/service"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  .env file not found, using default values: %v", err)
	}

	// 環境変数を読み込み
	cfg := config.Load()
	ctx := context.Background()

	// ストレージを初期化
	backend, err := kvstore.NewBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize store: %v", err)
	}
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}

	store := kvstore.New(backend, cfg.Namespace)
	repo := archive.NewRepository(store, codec.New(cfg.ValueSeparator, cfg.EntrySeparator), cfg.MessagesKey)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	svc := service.New(repo, metrics, service.Options{
		BaseURL:      cfg.PublicBaseURL,
		PendingLimit: cfg.PendingLimit,
	})

	// 保存済みアーカイブの形式チェック（壊れていても起動は続ける）
	if err := svc.CheckArchive(ctx); err != nil {
		log.Printf("⚠️  Archive contains malformed entries: %v", err)
	}
	if msgs, err := svc.List(ctx); err != nil {
		log.Fatalf("❌ Failed to read archive: %v", err)
	} else {
		log.Printf("✅ Archive loaded: %d messages", len(msgs))
	}

	// ハンドラー初期化
	h := handler.New(svc, metrics, cfg)

	// WebSocket ブロードキャスターを開始
	go h.HandleBroadcast()

	router := h.SetupRouter()

	// CORS対応
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "X-Archive-Mode"},
		MaxAge:           300,
		AllowCredentials: true,
	})

	httpHandler := c.Handler(router)

	fmt.Println("========================================")
	fmt.Println("  FakeArchive Server")
	fmt.Println("========================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Server: http://localhost:%s\n", cfg.ServerPort)
	fmt.Printf("  Public URL: %s\n", cfg.PublicBaseURL)
	fmt.Printf("  WebSocket: ws://localhost:%s/ws\n", cfg.ServerPort)
	fmt.Printf("  Store: %s (key %s%s)\n", cfg.StoreBackend, cfg.Namespace, cfg.MessagesKey)
	if cfg.StoreBackend == "mysql" {
		fmt.Printf("  Database: %s@%s:%s/%s\n", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	fmt.Printf("  Allowed Origins: %v\n", cfg.AllowedOrigins)
	fmt.Println("========================================")
	log.Println("🚀 Server started successfully")
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, httpHandler))
}
