package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	inhttp "github.com/suchimauz/clinic-availability-resolver/internal/adapters/in/http"
	"github.com/suchimauz/clinic-availability-resolver/internal/adapters/in/rabbitmq"
	"github.com/suchimauz/clinic-availability-resolver/internal/adapters/out/audit"
	"github.com/suchimauz/clinic-availability-resolver/internal/adapters/out/cache"
	"github.com/suchimauz/clinic-availability-resolver/internal/adapters/out/entitystore"
	"github.com/suchimauz/clinic-availability-resolver/internal/adapters/out/flowrules"
	"github.com/suchimauz/clinic-availability-resolver/internal/adapters/out/logger"
	"github.com/suchimauz/clinic-availability-resolver/internal/adapters/out/upstream"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/services/schedule_resolver_service"
)

func main() {
	// Local development convenience, missing file is fine
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	minLevel := out.LogLevelInfo
	if cfg.IsLocal() {
		minLevel = out.LogLevelDebug
	}

	mainLogger, err := logger.NewConsoleLogger(cfg.App.Timezone, minLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := mainLogger.WithModule("Main")

	log.Info("app.starting", out.LogFields{
		"version":         cfg.App.Version,
		"env":             cfg.App.Env,
		"timezone":        cfg.App.Timezone,
		"integration":     cfg.Integration.Code,
		"strategy":        cfg.Integration.InterAppointmentStrategy,
		"cacheEnabled":    cfg.Cache.Enabled,
		"cacheDriver":     cfg.Cache.Driver,
		"rabbitmqEnabled": cfg.RabbitMQ.Enabled,
	})

	if cfg.IsNotLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	upstreamAdapter := upstream.NewUpstreamAdapter(cfg, mainLogger)
	entityStore := entitystore.NewEntityStoreAdapter(cfg, mainLogger)
	auditSink := audit.NewLoggerAuditSink(mainLogger)
	flowRules := flowrules.NewFlowRulesAdapter(mainLogger)

	var cachePort out.CachePort
	if cfg.Cache.Enabled {
		switch cfg.Cache.Driver {
		case config.CacheDriverRedis:
			redisCache, err := cache.NewRedisCacheAdapter(cfg, mainLogger)
			if err != nil {
				log.Error("app.cache.init_failed", out.LogFields{
					"driver": cfg.Cache.Driver,
					"error":  err.Error(),
				})
				os.Exit(1)
			}
			cachePort = redisCache
		default:
			lruCache, err := cache.NewLRUCacheAdapter(cfg, mainLogger)
			if err != nil {
				log.Error("app.cache.init_failed", out.LogFields{
					"driver": cfg.Cache.Driver,
					"error":  err.Error(),
				})
				os.Exit(1)
			}
			if lruCache != nil {
				cachePort = lruCache
			}
		}
	}

	resolverService := schedule_resolver_service.NewScheduleResolverService(
		upstreamAdapter,
		entityStore,
		cachePort,
		flowRules,
		auditSink,
		mainLogger,
		cfg,
	)

	router := gin.Default()
	controller := inhttp.NewScheduleController(resolverService, entityStore, cfg, mainLogger)
	controller.RegisterRoutes(router)

	if cfg.RabbitMQ.Enabled {
		listener, err := rabbitmq.NewAppointmentListener(resolverService, cfg, mainLogger)
		if err != nil {
			log.Error("app.rabbitmq.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := listener.Start(ctx); err != nil {
			log.Error("app.rabbitmq.start_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		defer func() {
			if err := listener.Stop(); err != nil {
				log.Error("app.rabbitmq.stop_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("app.http.starting", out.LogFields{
			"host": cfg.HTTP.Host,
			"port": cfg.HTTP.Port,
		})

		if err := router.Run(cfg.HTTP.Host + ":" + cfg.HTTP.Port); err != nil {
			log.Error("app.http.failed", out.LogFields{
				"error": err.Error(),
			})
			sigChan <- syscall.SIGTERM
		}
	}()

	sig := <-sigChan
	log.Info("app.shutdown.initiated", out.LogFields{
		"signal": sig.String(),
	})
}
