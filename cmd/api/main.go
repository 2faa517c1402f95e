package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"siteworks/api/internal/app"
	"siteworks/api/internal/config"
	"siteworks/api/internal/export"
	"siteworks/api/internal/graph"
	"siteworks/api/internal/idempotency"
	"siteworks/api/internal/search"
	"siteworks/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		go searchService.ReindexAllFromPG(ctx)
	}

	exporter := export.NewService(&exportStore{store: dataStore})

	service := app.NewService(cfg, dataStore).
		WithSearch(searchService).
		WithExporter(exporter)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		locker, err := idempotency.NewRedisStore(cfg.RedisURL, cfg.SubmitLockTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer locker.Close()
		service.WithLocker(locker)
		log.Printf("using Redis submission reservations")
	}

	if strings.TrimSpace(cfg.Neo4jURI) != "" {
		linker, err := graph.NewNeo4j(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			log.Fatalf("neo4j connection failed: %v", err)
		}
		defer linker.Close(ctx)
		service.WithGraph(linker)
		log.Printf("using Neo4j traceability edges")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// exportStore narrows the Postgres store to the metadata the renderer needs.
type exportStore struct {
	store *store.PostgresStore
}

func (s *exportStore) GetAsset(ctx context.Context, id string) (export.AssetInfo, error) {
	item, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return export.AssetInfo{}, err
	}
	return export.AssetInfo{
		ID:            item.ID,
		AssetUID:      item.AssetUID,
		ProjectID:     item.ProjectID,
		Type:          item.Type,
		Subtype:       item.Subtype,
		Version:       item.Version,
		ApprovalState: item.ApprovalState,
		RevisionCode:  item.RevisionCode,
		Content:       item.Content,
		UpdatedBy:     item.UpdatedBy,
		UpdatedAt:     item.UpdatedAt,
	}, nil
}

func (s *exportStore) GetProject(ctx context.Context, id string) (export.ProjectInfo, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return export.ProjectInfo{}, err
	}
	return export.ProjectInfo{ID: project.ID, Name: project.Name, Code: project.Code}, nil
}

func (s *exportStore) ListVersions(ctx context.Context, assetUID string) ([]export.VersionInfo, error) {
	versions, err := s.store.ListAssetVersions(ctx, assetUID)
	if err != nil {
		return nil, err
	}
	history := make([]export.VersionInfo, 0, len(versions))
	for _, v := range versions {
		history = append(history, export.VersionInfo{
			Version:       v.Version,
			RevisionCode:  v.RevisionCode,
			ApprovalState: v.ApprovalState,
			ChangeLog:     v.ChangeLog,
			UpdatedBy:     v.UpdatedBy,
			UpdatedAt:     v.UpdatedAt,
		})
	}
	return history, nil
}
