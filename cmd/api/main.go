package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/havenhome/storefront-api/internal/handlers"
	"github.com/havenhome/storefront-api/internal/platform/auth"
	"github.com/havenhome/storefront-api/internal/platform/config"
	pfirestore "github.com/havenhome/storefront-api/internal/platform/firestore"
	"github.com/havenhome/storefront-api/internal/platform/jobs"
	"github.com/havenhome/storefront-api/internal/platform/observability"
	"github.com/havenhome/storefront-api/internal/platform/secrets"
	platformstorage "github.com/havenhome/storefront-api/internal/platform/storage"
	firestoreRepo "github.com/havenhome/storefront-api/internal/repositories/firestore"
	"github.com/havenhome/storefront-api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithDefaultProject(os.Getenv("GOOGLE_CLOUD_PROJECT")),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.ResolveSecret)),
	)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	bucketStore, err := platformstorage.NewBucketStore(storageClient, cfg.Storage.AssetsBucket)
	if err != nil {
		logger.Fatal("failed to initialise bucket store", zap.Error(err))
	}
	uploader, err := platformstorage.NewUploader(bucketStore, cfg.Storage.AssetsBucket, cfg.Storage.URLPrefix,
		platformstorage.WithMaxSize(cfg.Storage.UploadMaxSize),
		platformstorage.WithAllowedContentTypes("image/*"),
	)
	if err != nil {
		logger.Fatal("failed to initialise uploader", zap.Error(err))
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	var publisher services.ContentEventPublisher
	var pubsubClient *pubsub.Client
	if cfg.PubSub.Enabled {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		topic := pubsubClient.Topic(cfg.PubSub.ContentTopic)
		publisher, err = jobs.NewPubSubContentPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise content publisher", zap.Error(err))
		}
	}
	defer func() {
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	contentRepo, err := firestoreRepo.NewContentRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise content repository", zap.Error(err))
	}
	catalogRepo, err := firestoreRepo.NewCatalogRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise catalog repository", zap.Error(err))
	}

	sectionStore, err := services.NewSectionStore(contentRepo)
	if err != nil {
		logger.Fatal("failed to initialise section store", zap.Error(err))
	}
	loadCtx, loadCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := sectionStore.LoadAll(loadCtx); err != nil {
		// Seeds keep the storefront renderable until the next refresh.
		logger.Warn("content load failed; serving built-in defaults", zap.Error(err))
	}
	loadCancel()

	batchSaver, err := services.NewBatchSaver(contentRepo, cfg.Content.BatchConcurrency)
	if err != nil {
		logger.Fatal("failed to initialise batch saver", zap.Error(err))
	}

	contentService, err := services.NewContentService(services.ContentServiceDeps{
		Store:        sectionStore,
		Repository:   contentRepo,
		Saver:        batchSaver,
		Publisher:    publisher,
		Edits:        services.NewEditState(),
		Logger:       observability.EventLogger(logger.Named("content")),
		Clock:        time.Now,
		SanitizeHTML: cfg.Content.SanitizeHTML,
	})
	if err != nil {
		logger.Fatal("failed to initialise content service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository:   catalogRepo,
		Publisher:    publisher,
		Logger:       observability.EventLogger(logger.Named("catalog")),
		Clock:        time.Now,
		SanitizeHTML: cfg.Content.SanitizeHTML,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	assetService, err := services.NewAssetService(services.AssetServiceDeps{
		Uploader: uploader,
		Clock:    time.Now,
		Logger:   observability.EventLogger(logger.Named("assets")),
	})
	if err != nil {
		logger.Fatal("failed to initialise asset service", zap.Error(err))
	}

	editBridge := services.NewEditBridge()
	defer editBridge.Close()

	contentHandlers := handlers.NewContentHandlers(contentService)
	catalogHandlers := handlers.NewCatalogHandlers(catalogService)
	assetHandlers := handlers.NewAssetHandlers(assetService)
	editHandlers := handlers.NewEditRequestHandlers(editBridge)

	health := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfoFromEnv(startedAt)),
		handlers.WithReadinessProbe("firestore", func(ctx context.Context) error {
			probeCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
			defer cancel()
			iter := firestoreClient.Collections(probeCtx)
			_, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		}),
	)

	router := handlers.NewRouter(
		handlers.WithHealthHandlers(health),
		handlers.WithMiddlewares(
			observability.TraceMiddleware(cfg.Firebase.ProjectID),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(cfg.Firebase.ProjectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithContentRoutes(contentHandlers.PublicRoutes),
		handlers.WithCatalogRoutes(catalogHandlers.PublicRoutes),
		handlers.WithAdminMiddlewares(
			authenticator.RequireFirebaseAuth(auth.RoleEditor, auth.RoleAdmin),
		),
		handlers.WithAdminRoutes(func(r chi.Router) {
			contentHandlers.AdminRoutes(r)
			catalogHandlers.AdminRoutes(r)
			assetHandlers.AdminRoutes(r)
			editHandlers.AdminRoutes(r)
		}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("API_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}
