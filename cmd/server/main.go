package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/rl1809/lottery-cart/internal/adapter/catalog"
	"github.com/rl1809/lottery-cart/internal/adapter/handler"
	"github.com/rl1809/lottery-cart/internal/adapter/handler/ledgerpb"
	"github.com/rl1809/lottery-cart/internal/adapter/notify"
	"github.com/rl1809/lottery-cart/internal/adapter/storage"
	"github.com/rl1809/lottery-cart/internal/config"
	"github.com/rl1809/lottery-cart/internal/core/service"
	"github.com/rl1809/lottery-cart/internal/logging"
	"github.com/rl1809/lottery-cart/internal/port"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile, ledgerFlag, httpAddr string

	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment is read")
	flags.StringVar(&ledgerFlag, "ledger", "", "ledger backend: memory, redis, mysql or remote (overrides LEDGER_BACKEND)")
	flags.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ledgerFlag != "" {
		cfg.LedgerBackend = ledgerFlag
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := &closers{log: log}
	defer deps.closeAll()

	ledger, err := openLedger(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	log.Info("ledger ready", "backend", cfg.LedgerBackend)

	cat, err := openCatalog(ctx, cfg, deps)
	if err != nil {
		return err
	}
	seeded, err := service.SeedStock(ctx, cat, ledger)
	if err != nil {
		return fmt.Errorf("seed stock: %w", err)
	}
	log.Info("stock seeded", "new_tickets", seeded)

	notifier := openNotifier(cfg, deps, log)

	registry := service.NewRegistry(ledger, notifier, service.StoreConfig{
		Window:        cfg.ReservationDuration,
		LedgerTimeout: cfg.LedgerTimeout,
		Logger:        log,
		SessionTTL:    cfg.SessionTTL,
	})

	if cfg.CartBootstrapFile != "" {
		if err := restoreCarts(ctx, cfg.CartBootstrapFile, registry, cat, log); err != nil {
			return err
		}
	}

	// Sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		service.NewSweeper(registry, cfg.SweepInterval, log).Run(sweepCtx)
	}()
	log.Info("expiry sweeper started", "interval", cfg.SweepInterval, "window", cfg.ReservationDuration)

	// gRPC ledger server, not offered when this instance is itself a client
	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" && cfg.LedgerBackend != config.LedgerRemote {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer = grpc.NewServer()
		ledgerpb.RegisterStockLedgerServer(grpcServer, handler.NewGRPCHandler(ledger, log))
		go func() {
			log.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				log.Error("gRPC server error", "err", err)
			}
		}()
	}

	// HTTP server
	secret := cfg.SessionSecret
	if secret == "" {
		secret = "dev-session-secret"
		log.Warn("SESSION_SECRET not set, using an insecure development secret")
	}
	sessions := handler.NewSessions(secret, cfg.SessionTTL, nil)
	h := handler.NewHTTPHandler(registry, ledger, cat, sessions, log)
	if cfg.LedgerAPI {
		h.EnableLedgerAPI()
		log.Warn("raw ledger API enabled, any caller can move stock")
	}
	e := h.NewServer()
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", "err", err)
	}
	log.Info("HTTP server stopped")

	stopSweep()
	wg.Wait()
	log.Info("sweeper stopped")

	// Carts are in memory only: hand every hold back before the ledger goes away.
	released := registry.ReleaseAll(shutdownCtx)
	log.Info("released held stock", "lines", released, "sessions", len(registry.Sessions()))

	if grpcServer != nil {
		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
	}
	return nil
}

func openLedger(ctx context.Context, cfg config.Config, deps *closers, log *slog.Logger) (port.StockLedger, error) {
	switch cfg.LedgerBackend {
	case config.LedgerRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.add("redis", rdb.Close)
		log.Info("connected to redis", "addr", cfg.RedisAddr)
		return storage.NewRedisAdapter(rdb), nil

	case config.LedgerMySQL:
		m, err := deps.mysql(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return m, nil

	case config.LedgerRemote:
		remote, conn, err := storage.DialRemoteLedger(cfg.LedgerRemoteAddr)
		if err != nil {
			return nil, err
		}
		deps.add("ledger connection", conn.Close)
		return remote, nil

	default:
		return storage.NewMemoryLedger(), nil
	}
}

func openCatalog(ctx context.Context, cfg config.Config, deps *closers) (port.Catalog, error) {
	if cfg.CatalogSource == config.CatalogMySQL {
		m, err := deps.mysql(ctx, cfg, deps.log)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	c, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func restoreCarts(ctx context.Context, path string, registry *service.Registry, cat port.Catalog, log *slog.Logger) error {
	snaps, err := catalog.LoadCarts(path)
	if err != nil {
		return err
	}
	lines := 0
	for _, snap := range snaps {
		n, err := registry.Restore(ctx, cat, snap)
		if err != nil {
			log.Warn("cart not restored", "session_id", snap.SessionID, "err", err)
			continue
		}
		lines += n
	}
	log.Info("carts restored", "file", path, "carts", len(snaps), "lines", lines)
	return nil
}

func openNotifier(cfg config.Config, deps *closers, log *slog.Logger) port.Notifier {
	logNotifier := notify.NewLogNotifier(log)
	if cfg.NotifyBackend != config.NotifyAMQP {
		return logNotifier
	}

	pub, err := notify.DialAMQP(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("rabbitmq unavailable, notifications go to the log only", "err", err)
		return logNotifier
	}
	deps.add("rabbitmq", pub.Close)
	return notify.Fanout{logNotifier, pub}
}

// closers tracks resources opened during startup and shares one MySQL
// adapter between the ledger and the catalog.
type closers struct {
	log    *slog.Logger
	names  []string
	fns    []func() error
	mysqlA *storage.MySQLAdapter
}

func (c *closers) add(name string, fn func() error) {
	c.names = append(c.names, name)
	c.fns = append(c.fns, fn)
}

func (c *closers) mysql(ctx context.Context, cfg config.Config, log *slog.Logger) (*storage.MySQLAdapter, error) {
	if c.mysqlA != nil {
		return c.mysqlA, nil
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	c.add("mysql", db.Close)
	log.Info("connected to mysql")

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	c.mysqlA = adapter
	return adapter, nil
}

func (c *closers) closeAll() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			c.log.Warn("close failed", "resource", c.names[i], "err", err)
		}
	}
	c.log.Info("connections closed")
}
