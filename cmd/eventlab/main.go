package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	config "github.com/davicafu/eventlab/internal/config"

	chRepo "github.com/davicafu/eventlab/internal/analytics/clickhouse"
	"github.com/davicafu/eventlab/internal/analytics/relayer"
	busApp "github.com/davicafu/eventlab/internal/eventbus/application"
	busDomain "github.com/davicafu/eventlab/internal/eventbus/domain"
	busEvents "github.com/davicafu/eventlab/internal/eventbus/infra/inbound/events"
	busHttp "github.com/davicafu/eventlab/internal/eventbus/infra/inbound/http"
	durableTransport "github.com/davicafu/eventlab/internal/eventbus/infra/outbound/durable"
	kafkaTransport "github.com/davicafu/eventlab/internal/eventbus/infra/outbound/kafka"
	redisTransport "github.com/davicafu/eventlab/internal/eventbus/infra/outbound/redis"
	storeApp "github.com/davicafu/eventlab/internal/eventstore/application"
	storeDomain "github.com/davicafu/eventlab/internal/eventstore/domain"
	storeHttp "github.com/davicafu/eventlab/internal/eventstore/infra/inbound/http"
	mongoRepo "github.com/davicafu/eventlab/internal/eventstore/infra/outbound/db/mongodb"
	postgresRepo "github.com/davicafu/eventlab/internal/eventstore/infra/outbound/db/postgre"
	sqliteRepo "github.com/davicafu/eventlab/internal/eventstore/infra/outbound/db/sqlite"
	sharedHttp "github.com/davicafu/eventlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/eventlab/internal/validation"
	"github.com/davicafu/eventlab/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg := config.LoadConfig()

	// ------------- Backend durable -------------
	// El almacén y el bus mantienen conexiones independientes al mismo
	// tipo de backend: el bus publica para replay entre servicios, el
	// almacén sirve la API dedicada de log/snapshots.
	storeBackend, err := openDurableBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open durable backend", zap.Error(err))
	}

	// ------------- Validador + EventStore -------------
	validator := validation.NewValidator(log)

	store := storeApp.NewEventStore(storeBackend, log)
	initResult := store.Initialize(ctx)
	log.Info("EventStore inicializado", zap.String("mode", initResult.Mode))
	defer store.Close()

	// ---------------- EventBus ----------------
	var busManager *busApp.Manager
	onRetry := func() {
		if busManager != nil {
			busManager.RecordRetry()
		}
	}

	var transports []busDomain.Transport
	var durableT *durableTransport.Transport

	if !cfg.Standalone {
		if busBackend, err := openDurableBackend(ctx, cfg, log); err != nil {
			log.Warn("⚠️ Transporte durable del bus no disponible", zap.Error(err))
		} else if busBackend != nil {
			durableT = durableTransport.NewTransport(busBackend, log)
			transports = append(transports, durableT)
		}

		if !cfg.KafkaDisabled {
			transports = append(transports,
				kafkaTransport.NewTransport(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ReconnectDelay, onRetry, log))
		}

		if !cfg.RedisDisabled {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			transports = append(transports, redisTransport.NewTransport(rdb, cfg.RedisChannel, log))
		}
	}

	busManager = busApp.NewManager(validator, transports, durableT, cfg.Standalone, log)
	busManager.Initialize(ctx)
	defer busManager.Close()

	// ------------- Puentes de entrada -------------
	if !cfg.Standalone && !cfg.KafkaDisabled {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			GroupID:  cfg.KafkaGroupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		bridge := busEvents.NewKafkaBridge(reader, busManager, log)
		bridge.Start(ctx)
		defer bridge.Close()
	}

	if !cfg.Standalone && !cfg.RedisDisabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		busEvents.NewRedisBridge(rdb, cfg.RedisChannel, busManager, log).Start(ctx)
	}

	// ------------- Archivo analítico -------------
	var archive *relayer.Worker
	var volumes busHttp.VolumeReader
	if !cfg.ClickHouseDisabled {
		chLog, err := chRepo.NewEventLogRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, archivo analítico deshabilitado", zap.Error(err))
		} else if err := chLog.InitSchema(); err != nil {
			log.Warn("⚠️ No se pudo crear el esquema de ClickHouse", zap.Error(err))
		} else {
			archive = relayer.NewWorker(chLog, 4*cfg.BatchSize, cfg.ArchivePeriod, cfg.BatchSize, log)
			archive.Start(ctx)
			volumes = chLog
			log.Info("✅ Archivo analítico en ClickHouse habilitado")
		}
	}

	// ---------------- HTTP ----------------
	storeHandler := storeHttp.NewStoreHandler(store)
	var archiver busHttp.Archiver
	if archive != nil { // un *Worker nulo dentro de la interfaz no es nil
		archiver = archive
	}
	publishHandler := busHttp.NewPublishHandler(busManager, archiver, volumes)

	router := gin.Default()
	router.Use(sharedHttp.CorrelationMiddleware())
	router.Use(sharedHttp.CORSMiddleware(cfg.CORSOrigins))

	storeHttp.RegisterStoreRoutes(router, storeHandler)
	busHttp.RegisterPublishRoutes(router, publishHandler)

	router.GET("/health", func(c *gin.Context) {
		health := store.HealthCheck(c.Request.Context())
		status := http.StatusOK
		if health.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":     health.Status,
			"store":      health,
			"transports": busManager.TransportStatus(),
		})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server: %v", zap.Error(err))
	}
}

// openDurableBackend abre una conexión nueva al backend configurado.
// Devuelve (nil, nil) cuando el log durable está deshabilitado.
func openDurableBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (storeDomain.DurableBackend, error) {
	switch cfg.EventStoreBackend {
	case "disabled":
		return nil, nil

	case "postgres":
		db, err := sql.Open("pgx", cfg.EventStoreDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open Postgres: %w", err)
		}
		if err := postgresRepo.InitPostgres(db); err != nil {
			log.Warn("⚠️ No se pudo inicializar el esquema de Postgres", zap.Error(err))
		}
		return postgresRepo.NewEventRepoPostgres(db), nil

	case "sqlite":
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		if err := sqliteRepo.InitSQLite(db); err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		return sqliteRepo.NewEventRepoSQLite(db), nil

	case "mongodb":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		return mongoRepo.NewEventRepoMongoDB(ctx, client, cfg.MongoDB)

	default:
		return nil, fmt.Errorf("unknown EVENTSTORE_BACKEND %q", cfg.EventStoreBackend)
	}
}
