package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/action"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/blobstore"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/dedup"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/dlq"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/driver"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/healthz"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/metrics"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/telemetry"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseStores(raw string) []string {
	var stores []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			stores = append(stores, s)
		}
	}
	return stores
}

func validateStoresForProduction(deploymentMode string, stores []string) error {
	if deploymentMode != "production" {
		return nil
	}
	for _, s := range stores {
		if !dedup.Atomic(s) {
			return fmt.Errorf(
				"CLAIM_STORES contains %q which is unsafe for DEPLOYMENT_MODE=production; "+
					"it does not guarantee one claim per key; use redis or counter",
				s,
			)
		}
	}
	return nil
}

func validateBlobStoreForProduction(deploymentMode, actionSink, blobStoreType string) error {
	if deploymentMode == "production" && actionSink == "blob" && blobStoreType != "s3" {
		return fmt.Errorf(
			"BLOB_STORE_TYPE=%q is unsafe for DEPLOYMENT_MODE=production; "+
				"claim receipts are lost on restart; set BLOB_STORE_TYPE=s3",
			blobStoreType,
		)
	}
	return nil
}

func validateWorkload(keys, repeat int) error {
	if keys <= 0 || repeat <= 0 {
		return fmt.Errorf("WORKLOAD_KEYS=%d and WORKLOAD_REPEAT=%d must both be positive", keys, repeat)
	}
	return nil
}

// checkReport fails a run whose store promises one claim per key but
// produced duplicates. Duplicates from racy stores are expected.
func checkReport(storeType string, r *driver.Report) error {
	dups := r.Duplicates()
	if len(dups) == 0 {
		return nil
	}
	if dedup.Atomic(storeType) {
		return fmt.Errorf("store %s claimed %d of %d keys more than once", storeType, len(dups), len(r.Claims))
	}
	log.Printf("store %s: race reproduced, %d of %d keys claimed more than once (%d claims for %d keys)",
		storeType, len(dups), len(r.Claims), r.ClaimTotal(), len(r.Claims))
	return nil
}

type runner struct {
	driver   *driver.Driver
	observer dedup.Observer
	newStore func(storeType string) (dedup.ClaimStore, error)
	action   action.Action
	keys     int
	repeat   int
	failures chan<- domain.Result
}

// runAll runs one fresh workload per store type, in order, and joins every
// run's error.
func (r *runner) runAll(ctx context.Context, stores []string) error {
	var errs []error
	for _, storeType := range stores {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := r.runOne(ctx, storeType); err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", storeType, err))
		}
	}
	return errors.Join(errs...)
}

func (r *runner) runOne(ctx context.Context, storeType string) error {
	store, err := r.newStore(storeType)
	if err != nil {
		return err
	}
	rec := action.NewRecorder(r.action)
	proc := dedup.New(storeType, store, rec, dedup.WithObserver(r.observer))
	w := domain.NewWorkload(r.keys, r.repeat)

	log.Printf("--- %s: %d keys x %d tasks ---", storeType, r.keys, r.repeat)
	report, runErr := r.driver.Run(ctx, w, proc)
	if report != nil {
		r.forwardFailures(ctx, report.Failures)
		log.Printf("%s: %d/%d tasks completed, %d action executions, %d failures in %v",
			storeType, report.Completed, report.Total, rec.Total(), len(report.Failures), report.Elapsed)
	}
	if runErr != nil {
		return runErr
	}
	return checkReport(storeType, report)
}

func (r *runner) forwardFailures(ctx context.Context, failures []domain.Result) {
	if r.failures == nil {
		return
	}
	for _, f := range failures {
		select {
		case r.failures <- f:
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	deploymentMode := envOrDefault("DEPLOYMENT_MODE", "")
	stores := parseStores(envOrDefault("CLAIM_STORES", "localmap,counter"))
	keys := envIntOrDefault("WORKLOAD_KEYS", 10)
	repeat := envIntOrDefault("WORKLOAD_REPEAT", 10)
	timeout := time.Duration(envIntOrDefault("WORKLOAD_TIMEOUT_SECONDS", 5)) * time.Second
	actionSink := envOrDefault("ACTION_SINK", "log")
	blobStoreType := envOrDefault("BLOB_STORE_TYPE", "memory")

	if err := validateStoresForProduction(deploymentMode, stores); err != nil {
		log.Printf("production safety check failed: %v", err)
		return 2
	}
	if err := validateBlobStoreForProduction(deploymentMode, actionSink, blobStoreType); err != nil {
		log.Printf("production safety check failed: %v", err)
		return 2
	}
	if err := validateWorkload(keys, repeat); err != nil {
		log.Printf("invalid workload: %v", err)
		return 2
	}

	log.Printf("starting submitguard: stores=%s keys=%d repeat=%d timeout=%v action=%s",
		strings.Join(stores, ","), keys, repeat, timeout, actionSink)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.Handle("/healthz", healthz.NewChecker(m))
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Printf("metrics server listening on %s", metricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server error: %v", err)
			}
		}()
		defer func() { _ = metricsSrv.Close() }()
	}

	if envOrDefault("TRACING_ENABLED", "false") == "true" {
		tp, err := telemetry.Init()
		if err != nil {
			log.Printf("tracing disabled: %v", err)
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	}

	kafkaBrokers := envOrDefault("KAFKA_BROKERS", "localhost:9092")
	logger := slog.Default()
	var act action.Action = action.NewLogWriter(logger)
	switch actionSink {
	case "kafka":
		topic := envOrDefault("KAFKA_ACTION_TOPIC", "submitguard.claims")
		producer, err := NewKafkaProducerClient(kafkaBrokers, topic)
		if err != nil {
			log.Printf("FATAL: %v", err)
			return 1
		}
		defer producer.Close()
		act = action.Chain(act, action.NewKafkaPublisher(producer, topic))
		log.Printf("action sink: kafka topic=%s", topic)
	case "blob":
		bucket := envOrDefault("BLOB_BUCKET", "submitguard-claims")
		region := envOrDefault("AWS_REGION", "us-east-1")
		store, err := blobstore.NewBlobStoreFromEnv(ctx, blobStoreType, bucket, region)
		if err != nil {
			log.Printf("FATAL: create blob store: %v", err)
			return 1
		}
		act = action.Chain(act, action.NewBlobMarker(store, "claims/"))
		log.Printf("action sink: blob store=%s bucket=%s", blobStoreType, bucket)
	default:
		log.Println("action sink: log")
	}

	var sink dlq.DeadLetterSink
	switch dlqSinkMode := envOrDefault("DLQ_SINK", "log"); dlqSinkMode {
	case "kafka":
		dlqTopic := envOrDefault("DLQ_TOPIC", "submitguard.failed")
		kafkaSink, err := NewKafkaDLQSink(kafkaBrokers, dlqTopic)
		if err != nil {
			log.Printf("FATAL: create kafka dlq sink: %v", err)
			return 1
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Printf("DLQ sink: kafka topic=%s", dlqTopic)
	default:
		sink = &LogDLQSink{}
		log.Println("DLQ sink: log")
	}
	dlqOpts := []dlq.Option{dlq.WithObserver(m), dlq.WithLogger(logger)}
	if fallbackPath := os.Getenv("DLQ_FALLBACK_PATH"); fallbackPath != "" {
		fileSink, err := dlq.NewFileSink(fallbackPath)
		if err != nil {
			log.Printf("FATAL: create dlq file fallback: %v", err)
			return 1
		}
		dlqOpts = append(dlqOpts, dlq.WithFallback(fileSink))
		log.Printf("DLQ fallback: file=%s", fallbackPath)
	}

	failures := make(chan domain.Result, keys)
	dlqHandler := dlq.NewHandler(failures, sink, dlqOpts...)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dlqHandler.Run(ctx)
	}()

	redisURL := os.Getenv("CLAIM_REDIS_URL")
	prefix := envOrDefault("CLAIM_KEY_PREFIX", "claim:")
	ttl := time.Duration(envIntOrDefault("CLAIM_TTL_SECONDS", 0)) * time.Second
	var remote dedup.ClaimStore
	newStore := func(storeType string) (dedup.ClaimStore, error) {
		if storeType != dedup.StoreRedis {
			return dedup.NewStoreFromEnv(storeType, redisURL, prefix, ttl)
		}
		if remote == nil {
			s, err := dedup.NewStoreFromEnv(storeType, redisURL, prefix, ttl)
			if err != nil {
				return nil, err
			}
			remote = s
		}
		return remote, nil
	}
	defer func() {
		if rs, ok := remote.(*dedup.RemoteStore); ok {
			_ = rs.Close()
		}
	}()

	r := &runner{
		driver:   driver.New(driver.Config{Timeout: timeout}, driver.WithObserver(m), driver.WithLogger(logger)),
		observer: m,
		newStore: newStore,
		action:   act,
		keys:     keys,
		repeat:   repeat,
		failures: failures,
	}
	runErr := r.runAll(ctx, stores)

	close(failures)
	wg.Wait()

	if runErr != nil {
		log.Printf("submitguard finished with errors: %v", runErr)
		return 1
	}
	log.Println("submitguard finished")
	return 0
}
