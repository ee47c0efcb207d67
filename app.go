package main

import (
	"context"
	"fmt"

	"garment-dashboard/internal/auth"
	"garment-dashboard/internal/events"
	"garment-dashboard/internal/infrastructure"
	"garment-dashboard/internal/service"
	"garment-dashboard/internal/telemetry"
	"garment-dashboard/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app holds the wired server and what must be closed with it
type app struct {
	router    *gin.Engine
	publisher *events.KafkaPublisher
	logger    *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := infrastructure.ConnectDatabase(cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if err := infrastructure.MigrateAllSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database schemas: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	authzService, err := service.NewAuthorizationService(service.DashboardRoutes(), service.APIPermissions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorization service: %w", err)
	}

	roleResolver := service.NewRoleResolver(
		service.NewUserDirectory(db),
		infrastructure.NewGormKeyValueStore(db),
		cfg.RoleCacheTTL,
		logger.Named("roles"),
		metrics,
	)
	guard, err := service.NewGuard(authzService, roleResolver, service.DefaultRoleHomes(), logger.Named("guard"), metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize route guard: %w", err)
	}

	userService := service.NewUserService(db, roleResolver)
	productService := service.NewProductService(db)
	authService := auth.NewService(userService, cfg.JWTSecret, cfg.JWTTTL)

	var store service.OrderStore
	switch cfg.OrderStore {
	case config.OrderStoreDynamoDB:
		client, err := infrastructure.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		store = infrastructure.NewDynamoOrderStore(client, cfg.OrderTableName)
	default:
		store = infrastructure.NewGormOrderStore(db)
	}

	a := &app{logger: logger}
	var publisher service.EventPublisher
	if cfg.KafkaEnabled {
		a.publisher, err = events.NewKafkaPublisher(cfg.Brokers(), cfg.KafkaTopic, logger.Named("events"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}
		publisher = a.publisher
	}

	orderService := service.NewOrderService(store, productService, roleResolver, authzService,
		service.NewEngine(), publisher, logger.Named("orders"), metrics)

	if cfg.SeedData {
		if err := infrastructure.NewSeedDataManager(userService, productService, logger).SeedAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to setup seed data: %w", err)
		}
	}

	a.router = newRouter(routerDeps{
		logger:       logger,
		registry:     registry,
		authService:  authService,
		authzService: authzService,
		roles:        roleResolver,
		guard:        guard,
		users:        userService,
		products:     productService,
		orders:       orderService,
		health: func(ctx context.Context) map[string]error {
			checks := map[string]error{}
			if sqlDB, err := db.DB(); err != nil {
				checks["database"] = err
			} else {
				checks["database"] = sqlDB.PingContext(ctx)
			}
			if cfg.KafkaEnabled {
				if brokers := cfg.Brokers(); len(brokers) > 0 {
					checks["kafka"] = events.HealthCheck(ctx, brokers[0])
				}
			}
			return checks
		},
	})
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close Kafka publisher", zap.Error(err))
		}
	}
}
