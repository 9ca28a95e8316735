// @title           Group Protocol API
// @version         1.0
// @description     Groups, residents and meeting protocols with PDF export.
// @BasePath        /api/v1
// @securityDefinitions.apikey TokenAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/fkhayef/grpprotocol/docs"
	"github.com/fkhayef/grpprotocol/internal/access"
	"github.com/fkhayef/grpprotocol/internal/blob"
	"github.com/fkhayef/grpprotocol/internal/blob/core"
	"github.com/fkhayef/grpprotocol/internal/cache"
	"github.com/fkhayef/grpprotocol/internal/config"
	"github.com/fkhayef/grpprotocol/internal/database"
	"github.com/fkhayef/grpprotocol/internal/export"
	"github.com/fkhayef/grpprotocol/internal/group"
	"github.com/fkhayef/grpprotocol/internal/metrics"
	"github.com/fkhayef/grpprotocol/internal/permission"
	"github.com/fkhayef/grpprotocol/internal/protocol"
	"github.com/fkhayef/grpprotocol/internal/resident"
	"github.com/fkhayef/grpprotocol/internal/user"
	"github.com/fkhayef/grpprotocol/pkg/logger"
	mw "github.com/fkhayef/grpprotocol/pkg/middleware"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	zl.Info("connected to database")

	if cfg.Migrations {
		if err := database.Migrate(db, zl); err != nil {
			zl.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	files, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		zl.Fatal("failed to open blob store", zap.Error(err))
	}

	var kv cache.KV = cache.Nop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zl.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rc.Close()
		kv = cache.NewRedisKV(rc)
	} else {
		zl.Warn("REDIS_URL not set, mention suggestions are not cached")
	}

	rec := metrics.New()

	// Group feature; its repository also answers membership questions
	groupRepo := group.NewRepository(db)
	resolver := access.NewResolver(groupRepo)
	groupService := group.NewService(groupRepo, resolver, files, zl)
	groupHandler := group.NewHandler(groupService)

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)
	auth := mw.NewAuthenticator(userRepo, cfg.DevAuth, zl)

	// Resident feature
	residentRepo := resident.NewRepository(db)
	residentService := resident.NewService(residentRepo, groupRepo, resolver, files, kv, zl)
	residentHandler := resident.NewHandler(residentService)

	// Protocol feature
	pipeline := export.NewPipeline(export.PDFRenderer{Title: "Protokoll"}, export.NewLetterhead(os.TempDir()), rec, zl)
	protocolRepo := protocol.NewRepository(db)
	protocolService := protocol.NewService(protocolRepo, protocol.Deps{
		Groups:     groupService,
		Residents:  residentService,
		Resolver:   resolver,
		Files:      files,
		Cache:      kv,
		MentionTTL: cfg.MentionCacheTTL,
		Pipeline:   pipeline,
		Metrics:    rec,
		Logger:     zl,
	})
	protocolHandler := protocol.NewHandler(protocolService)

	// Permission grants (staff only)
	permissionRepo := permission.NewRepository(db)
	permissionService := permission.NewService(permissionRepo, zl)
	permissionHandler := permission.NewHandler(permissionService)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(zl))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", rec.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	if files.Driver() == core.DriverFilesystem && strings.HasPrefix(cfg.Blob.PublicURL, "/") {
		prefix := strings.TrimSuffix(cfg.Blob.PublicURL, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Blob.Root))))
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Group(func(r chi.Router) {
			r.Use(mw.Require(mw.Authenticated))
			r.Mount("/users", userHandler.Routes())
			r.Mount("/groups", groupHandler.Routes())
			r.Mount("/residents", residentHandler.Routes())
			r.Mount("/protocols", protocolHandler.Routes())
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.Require(mw.Staff))
			userHandler.RegisterAdmin(r)
			groupHandler.RegisterAdmin(r)
			permissionHandler.RegisterAdmin(r)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
