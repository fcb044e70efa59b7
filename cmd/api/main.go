package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ti/internal/application/inventory"
	"github.com/jhoicas/inventario-ti/internal/application/usecase"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/sqlite"
	httpRouter "github.com/jhoicas/inventario-ti/internal/interfaces/http"
	"github.com/jhoicas/inventario-ti/pkg/config"
	"github.com/jhoicas/inventario-ti/pkg/logger"
	"github.com/jhoicas/inventario-ti/pkg/undo"
)

// store catálogo y libro de un mismo backend.
type store interface {
	repository.ProductRepository
	repository.EventStore
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Str("lock", cfg.Lock.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("abrir almacenamiento")
	}
	defer closeStore()

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Lock.Driver).Msg("inicializar lock")
	}
	defer closeLocker()

	var (
		gatherer prometheus.Gatherer
		undoOpts []undo.Option
	)
	ledgerOpts := []inventory.Option{
		inventory.WithCacheSize(cfg.Ledger.CacheSize),
		inventory.WithReportConcurrency(cfg.Ledger.ReportConcurrency),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)
		gatherer = reg
		undoOpts = append(undoOpts, undo.WithObserver(m.UndoObserver()))
		ledgerOpts = append(ledgerOpts, inventory.WithMetrics(m))
	}

	coordinator := undo.New(cfg.Ledger.UndoWindow, undoOpts...)
	inventoryUC := inventory.NewUseCase(st, st, locker, coordinator, log.Named("inventory"), ledgerOpts...)
	productUC := usecase.NewProductUseCase(st)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:   productUC,
		InventoryUC: inventoryUC,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Ping:        st.Ping,
		Gatherer:    gatherer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStore abre el backend configurado en STORE_DRIVER y aplica sus migraciones.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath, log.Named("migrations"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool, log.Named("migrations")); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewStore(pool), pool.Close, nil
	case config.StoreMemory:
		log.Warn().Msg("libro en memoria: los datos se pierden al reiniciar")
		return memoryStore{memory.NewStore()}, func() {}, nil
	}
	return nil, nil, errors.New("STORE_DRIVER desconocido: " + cfg.Store.Driver)
}

// memoryStore agrega Ping al store en memoria.
type memoryStore struct {
	*memory.Store
}

func (memoryStore) Ping(context.Context) error { return nil }

// newLocker elige el lock por producto: en proceso o redis para varias instancias.
func newLocker(ctx context.Context, cfg *config.Config, log *logger.Logger) (inventory.Locker, func(), error) {
	if cfg.Lock.Driver != config.LockRedis {
		return lock.NewKeyedMutex(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Lock.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, cfg.Lock.TTL, log.Named("lock")), func() { _ = client.Close() }, nil
}
