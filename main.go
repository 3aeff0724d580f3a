package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/kasuganosora/textadventure/server/api/rest"
	"github.com/kasuganosora/textadventure/server/api/sse"
	"github.com/kasuganosora/textadventure/server/audit"
	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/config"
	dbadapter "github.com/kasuganosora/textadventure/server/db"
	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/game/world"
	mw "github.com/kasuganosora/textadventure/server/middleware"
	"github.com/kasuganosora/textadventure/server/model"
	"github.com/kasuganosora/textadventure/server/notify"
	"github.com/kasuganosora/textadventure/server/ranking"
	"github.com/kasuganosora/textadventure/server/save"
	"github.com/kasuganosora/textadventure/server/scheduler"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret must be set")
	}
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	if err := model.AutoMigrate(db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		logger.Fatal("pubsub", zap.Error(err))
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- World content ----
	w, err := world.LoadFile(cfg.World.ContentPath)
	if err != nil {
		logger.Fatal("world", zap.Error(err))
	}
	logger.Info("World loaded",
		zap.String("path", cfg.World.ContentPath),
		zap.Int("scenes", len(w.SceneIDs())),
		zap.String("start", w.Start()))

	// ---- Game Systems ----
	board := ranking.NewBoard(c, db, cfg.Game.RankingSize, logger)
	disp := notify.NewDispatcher(pubsub, c, board, logger)
	mgr := session.NewManager(w, session.Fanout{disp, auditSvc}, logger)
	store := save.NewStore(db, cfg.Game.MaxSaves, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	saveInterval := time.Duration(cfg.Game.SaveIntervalS) * time.Second
	if saveInterval > 0 {
		sched.AddTicker("autosave", saveInterval, func(ctx context.Context) error {
			_, err := store.AutoSave(ctx, mgr.All())
			return err
		})
	}
	sched.AddTicker("ranking_rebuild", 10*time.Minute, func(ctx context.Context) error {
		_, err := board.Rebuild(ctx)
		return err
	})
	if cfg.Game.IdleTimeoutMin > 0 {
		idle := time.Duration(cfg.Game.IdleTimeoutMin) * time.Minute
		sched.AddTicker("session_cleanup", time.Minute, func(ctx context.Context) error {
			var errs []error
			for _, s := range mgr.Idle(time.Now().Add(-idle)) {
				if cp, ok := s.Checkpoint(); ok && cp.Dirty {
					if _, err := store.SaveSession(ctx, s); err != nil {
						// keep the session so its progress is not lost
						errs = append(errs, err)
						continue
					}
				}
				mgr.Remove(s.ID)
				_ = disp.Forget(ctx, s.ID)
				logger.Info("idle session closed", zap.String("session_id", s.ID))
			}
			return errors.Join(errs...)
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := mw.NewRateLimiter(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(limiter.Middleware())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": mgr.Count()})
	})

	apirest.Mount(r, apirest.Deps{
		Config:     cfg,
		DB:         db,
		Cache:      c,
		Sessions:   mgr,
		Saves:      store,
		Ranking:    board,
		Dispatcher: disp,
		Audit:      auditSvc,
		Scheduler:  sched,
		Loot:       item.NewGenerator(nil),
		Logger:     logger,
	})

	sse.NewHandler(pubsub, mgr, cfg.Security, logger).Mount(r, c)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if n, err := store.AutoSave(shutdownCtx, mgr.All()); err != nil {
		logger.Warn("final save", zap.Int("saved", n), zap.Error(err))
	}
}
