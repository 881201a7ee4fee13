package main

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // zone data for slim images

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/gunvortv/internal/config"
	"github.com/user/gunvortv/internal/handler"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/middleware"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/repository"
	"github.com/user/gunvortv/internal/router"
	"github.com/user/gunvortv/internal/service"
)

func main() {
	// session payload type
	gob.Register(model.SessionUser{})

	envErr := godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Info().Msg("[Main] no .env file, using process environment")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("[Main] invalid configuration")
	}

	db, err := repository.InitDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("[Main] database connection failed")
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	repos := repository.NewRepositories(db)

	// catalog source, snapshot cache and query layer
	source := service.NewHTTPCatalogSource(cfg.Catalog)
	catalog := service.NewCatalogService(service.NewCatalogCache(source, cfg.Catalog.Revalidate))

	scheduler := service.NewScheduler()
	if err := scheduler.AddJob(cfg.Catalog.WarmSpec, service.NewCatalogWarmJob(catalog)); err != nil {
		logging.Fatal().Err(err).Msg("[Main] schedule catalog warm-up")
	}
	if err := scheduler.AddJob("0 0 3 * * *", service.NewResetTokenCleanupJob(repos.PasswordReset)); err != nil {
		logging.Fatal().Err(err).Msg("[Main] schedule reset token cleanup")
	}
	scheduler.Start()

	// first load off the request path, also when WarmSpec is empty
	go func() {
		if err := scheduler.RunNow("catalog_warm"); err != nil {
			logging.Warn().Err(err).Msg("[Main] initial catalog load failed, requests will retry")
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	store := cookie.NewStore([]byte(cfg.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("gunvorsession", store))

	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(cfg.SiteUrl))

	h := handler.NewHandler(repos, cfg, catalog)
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("[Main] server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("[Main] server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("[Main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("[Main] forced shutdown")
	}
	scheduler.Stop()

	logging.Info().Msg("[Main] server exited")
}
