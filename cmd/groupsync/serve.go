package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/x/eventstore"
	"github.com/totegamma/groupsync/x/signer"
	"github.com/totegamma/groupsync/x/socket"
	"github.com/totegamma/groupsync/x/util"
)

const metricsInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the group directory api and the live update hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, configPath)
	},
}

func serve(ctx context.Context, path string) error {

	handler := &CustomHandler{Handler: slog.NewJSONHandler(os.Stdout, nil)}
	slog.SetDefault(slog.New(handler))

	slog.Info(fmt.Sprintf("groupsync %s starting...", version))

	config := util.Config{}
	err := config.Load(path)
	if err != nil {
		return err
	}

	runtime, err := config.Runtime()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	slog.Info(fmt.Sprintf("Config loaded! I am: %s", runtime.NodeID))

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true

	skip := func(c echo.Context) bool {
		return c.Path() == "/metrics" || c.Path() == "/health"
	}

	if config.Server.EnableTrace {
		cleanup, err := setupTraceProvider(config.Server.TraceEndpoint, "groupsync", version)
		if err != nil {
			return errors.Wrap(err, "failed to setup trace provider")
		}
		defer cleanup()

		e.Use(otelecho.Middleware("groupsync", otelecho.WithSkipper(skip)))
	}

	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "groupsync",
		LabelFuncs: map[string]echoprometheus.LabelValueFunc{
			"url": func(c echo.Context, err error) string {
				return "REDACTED"
			},
		},
		Skipper: skip,
	}))

	e.Use(middleware.Recover())

	var db *gorm.DB
	var sqlDB *sql.DB
	if config.Server.Dsn != "" {
		db, sqlDB, err = openDB(config.Server.Dsn)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
	}

	var rdb *redis.Client
	if config.Server.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: config.Server.RedisAddr,
			DB:   config.Server.RedisDB,
		})
		err = redisotel.InstrumentTracing(
			rdb,
			redisotel.WithAttributes(
				attribute.KeyValue{
					Key:   "db.name",
					Value: attribute.StringValue("redis"),
				},
			),
		)
		if err != nil {
			return errors.Wrap(err, "failed to setup tracing plugin")
		}
		defer rdb.Close()
	}

	var mc *memcache.Client
	if config.Server.MemcachedAddr != "" {
		mc = memcache.New(config.Server.MemcachedAddr)
		defer mc.Close()
	}

	var store core.EventStore
	switch config.Store.Driver {
	case util.DriverPostgres:
		if db == nil {
			return errors.New("store driver postgres requires server.dsn")
		}
		store = eventstore.NewPostgresStore(db)
	case util.DriverRelay:
		store = eventstore.NewRelayStore(ctx, runtime)
	default:
		return fmt.Errorf("unknown store driver %q", config.Store.Driver)
	}

	keyring, err := signer.NewKeyring(runtime)
	if err != nil {
		return errors.Wrap(err, "failed to load signer keys")
	}

	var bridgeRDB *redis.Client
	if config.Hub.EnableBridge {
		if rdb == nil {
			return errors.New("hub bridge requires server.redisAddr")
		}
		bridgeRDB = rdb
	}

	socketService := SetupSocketService(bridgeRDB, runtime)
	socketService.Start(ctx)
	socketHandler := socket.NewHandler(socketService, runtime)

	groupHandler := SetupGroupHandler(store, mc, keyring, socketService, runtime)

	profile := core.Profile{
		NodeID:   runtime.NodeID,
		Version:  util.GetBuildInfo(version).Version,
		Relays:   runtime.Relays,
		Kinds:    []int{core.KindTextNote, core.KindGroupMetadata, core.KindGroupAdmin, core.KindGroupMember},
		Topics:   []core.Topic{core.TopicGroupMetadata, core.TopicGroupMembers, core.TopicFood, core.TopicAll},
		Nickname: config.Profile.Nickname,
		Contact:  config.Profile.Contact,
	}

	apiV1 := e.Group("/api/v1")
	// group
	apiV1.GET("/groups", groupHandler.List)
	apiV1.POST("/group", groupHandler.Create)
	apiV1.GET("/group/:id", groupHandler.Get)
	apiV1.GET("/group/:id/members", groupHandler.Members)
	apiV1.POST("/group/:id/join", groupHandler.Join)
	apiV1.POST("/group/:id/leave", groupHandler.Leave)
	apiV1.POST("/group/:id/post", groupHandler.Post)

	// socket
	apiV1.GET("/socket", socketHandler.Connect)

	// misc
	apiV1.GET("/profile", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": profile})
	})

	e.GET("/health", func(c echo.Context) (err error) {
		ctx := c.Request().Context()

		if sqlDB != nil {
			err = sqlDB.Ping()
			if err != nil {
				return c.String(http.StatusInternalServerError, "db error")
			}
		}

		if rdb != nil {
			err = rdb.Ping(ctx).Err()
			if err != nil {
				return c.String(http.StatusInternalServerError, "redis error")
			}
		}

		if mc != nil {
			err = mc.Ping()
			if err != nil {
				return c.String(http.StatusInternalServerError, "memcached error")
			}
		}

		return c.String(http.StatusOK, "ok")
	})

	e.GET("/metrics", echoprometheus.NewHandler())

	go func() {
		ticker := time.NewTicker(metricsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				socketService.UpdateMetrics()
			}
		}
	}()

	go func() {
		err := e.Start(config.Server.Listen)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(
				"server stopped",
				slog.String("error", err.Error()),
				slog.String("module", "main"),
			)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openDB(dsn string) (*gorm.DB, *sql.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect database")
	}
	sqlDB, err := db.DB() // for pinging
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect database")
	}

	err = db.Use(tracing.NewPlugin(
		tracing.WithDBName("postgres"),
	))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to setup tracing plugin")
	}

	slog.Info("start migrate")
	err = db.AutoMigrate(&core.EventRecord{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to migrate")
	}

	return db, sqlDB, nil
}
