package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oakline-labs/orderproc/internal/config"
	"github.com/oakline-labs/orderproc/internal/discovery"
	"github.com/oakline-labs/orderproc/internal/discovery/consul"
	"github.com/oakline-labs/orderproc/internal/discovery/inmem"
	"github.com/oakline-labs/orderproc/internal/dlq"
	"github.com/oakline-labs/orderproc/internal/intake"
	logger "github.com/oakline-labs/orderproc/internal/logging"
	"github.com/oakline-labs/orderproc/internal/orders"
	"github.com/oakline-labs/orderproc/internal/payment"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/oakline-labs/orderproc/internal/queue/sqlstore"
	"github.com/oakline-labs/orderproc/internal/stock"
	"github.com/oakline-labs/orderproc/internal/telemetry"
	"github.com/oakline-labs/orderproc/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const serviceName = "orderproc"

func main() {
	log := logger.NewLogger(serviceName)

	shutdownTracer, err := telemetry.InitTracer(serviceName)
	if err != nil {
		log.Error("failed to init tracer", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracer()

	queueMetrics := telemetry.NewQueueMetrics(serviceName)
	stockMetrics := telemetry.NewStockMetrics(serviceName)
	businessMetrics := telemetry.NewBusinessMetrics(serviceName)

	startMetricsServer(log)

	stockStore, closeStock, err := buildStockStore(log)
	if err != nil {
		log.Error("failed to build stock store", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStock()
	tracedStock := stock.NewTelemetryMiddleware(stockStore, stockMetrics)

	orderStore, closeOrders, err := buildOrderStore()
	if err != nil {
		log.Error("failed to build order store", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeOrders()

	q, err := buildQueue(logger.Component(log, "queue"), queueMetrics)
	if err != nil {
		log.Error("failed to build queue", slog.Any("err", err))
		os.Exit(1)
	}

	gateway := buildPaymentGateway()

	registry, instanceID, deregister := registerService(logger.Component(log, "service-registry"))
	defer deregister()
	_ = registry

	dlqObserver := dlq.New(orderStore, logger.Component(log, "dlq"))
	q.Subscribe(dlqObserver)

	in := &intake.Intake{Stock: tracedStock, Orders: orderStore, Queue: q, Logger: logger.Component(log, "intake"), Metrics: businessMetrics}
	startSubmissionServer(logger.Component(log, "http"), in, orderStore, tracedStock)

	handler := &worker.Handler{Stock: tracedStock, Orders: orderStore, Payment: gateway, Logger: logger.Component(log, "worker"), Metrics: businessMetrics}
	pool := worker.NewPool(q, handler, worker.Config{}, logger.Component(log, "worker-pool"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go runStallChecker(ctx, q, logger.Component(log, "stall-checker"))
	go runRetentionCleaner(ctx, q, logger.Component(log, "retention-cleaner"))

	log.Info("starting worker pool", slog.String("instance_id", instanceID))
	if err := pool.Run(ctx); err != nil {
		log.Error("worker pool exited with error", slog.Any("err", err))
	}
}

func startMetricsServer(log *slog.Logger) {
	addr := config.GetEnv("METRICS_ADDR", ":9090")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info("starting metrics server", slog.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", slog.Any("err", err))
		}
	}()
}

func buildStockStore(log *slog.Logger) (stock.Store, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		config.GetEnv("POSTGRES_USER", "orderproc"),
		config.GetEnv("POSTGRES_PASSWORD", "orderproc"),
		config.GetEnv("POSTGRES_HOST", "localhost"),
		config.GetEnv("POSTGRES_PORT", "5432"),
		config.GetEnv("POSTGRES_DB", "orderproc"),
	)

	base, err := stock.NewPostgresStore(connStr, zapLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	cache, err := stock.NewItemCache(config.GetEnv("REDIS_ADDR", "localhost:6379"), 5*time.Minute)
	if err != nil {
		base.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	cached := stock.NewCachedStore(base, cache, zapLogger)
	closeFn := func() {
		cache.Close()
		base.Close()
		zapLogger.Sync()
	}
	return cached, closeFn, nil
}

func buildOrderStore() (orders.Store, func(), error) {
	uri := config.GetEnv("MONGO_URI", "mongodb://localhost:27017")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	store := orders.NewMongoStore(client)
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}
	return store, closeFn, nil
}

func buildQueue(log *slog.Logger, metrics *telemetry.QueueMetrics) (*queue.Queue, error) {
	path := config.GetEnv("QUEUE_DB_PATH", "./orderproc-queue.db")
	sqlDB, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := sqlstore.InitDB(context.Background(), db); err != nil {
		return nil, fmt.Errorf("init queue schema: %w", err)
	}

	store := sqlstore.New(db)
	stallTimeout := config.GetEnvDuration("QUEUE_STALL_TIMEOUT", 30*time.Second)
	return queue.New(store, queue.DefaultBackoff, stallTimeout, metrics, log), nil
}

func buildPaymentGateway() payment.Gateway {
	switch config.GetEnv("PAYMENT_GATEWAY", "noop") {
	case "simulated":
		prob := config.GetEnvFloat("PAYMENT_FAILURE_PROBABILITY", 0.1)
		return payment.NewSimulatedGateway(prob)
	case "stripe":
		return payment.NewStripeGateway(config.MustGetEnv("STRIPE_API_KEY"))
	default:
		return payment.NewNoopGateway()
	}
}

func registerService(log *slog.Logger) (discovery.Registry, string, func()) {
	instanceID := discovery.GenerateInstanceID(serviceName)
	consulAddr := config.GetEnv("CONSUL_ADDR", "")
	if consulAddr == "" {
		log.Info("CONSUL_ADDR not set, using in-memory service registry")
		return inmem.NewRegistry(), instanceID, func() {}
	}

	registry, err := consul.NewRegistry(consulAddr, log)
	if err != nil {
		log.Error("failed to build consul registry, falling back to in-memory", slog.Any("err", err))
		return inmem.NewRegistry(), instanceID, func() {}
	}

	ctx := context.Background()
	addr := config.GetEnv("SERVICE_ADDR", "localhost:8080")
	if err := registry.Register(ctx, instanceID, serviceName, addr); err != nil {
		log.Error("failed to register with consul", slog.Any("err", err))
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := registry.HealthCheck(instanceID, serviceName); err != nil {
					log.Error("health check failed", slog.Any("err", err))
				}
			}
		}
	}()

	return registry, instanceID, func() {
		close(stop)
		_ = registry.Deregister(context.Background(), instanceID, serviceName)
	}
}

func runStallChecker(ctx context.Context, q *queue.Queue, log *slog.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := q.CheckStalled(ctx)
			if err != nil {
				log.Error("stall check failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				log.Info("requeued stalled jobs", slog.Int("count", n))
			}
		}
	}
}

func runRetentionCleaner(ctx context.Context, q *queue.Queue, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := q.Clean(ctx, queue.DefaultRetention)
			if err != nil {
				log.Error("retention cleanup failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				log.Info("evicted terminal jobs beyond retention", slog.Int("count", n))
			}
		}
	}
}
