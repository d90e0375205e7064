// Command example-server runs an HTTP demo that rate-limits requests per
// client IP using a named limiter pulled from a Registry, with optional
// Redis-backed rate-config propagation and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ztelur/smoothlimiter/pkg/limiter"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "example-server: building logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ratePerSecond := envFloat("LIMITER_RATE", 5)
	maxBurstSeconds := envFloat("LIMITER_BURST_SECONDS", 2)

	reg := limiter.NewRegistry(32, func(id limiter.Identity) (*limiter.Limiter, error) {
		return limiter.NewBursty(ratePerSecond, maxBurstSeconds, limiter.WithLogger(log))
	})

	promRegistry := prometheus.NewRegistry()
	recorder := limiter.NewPromRecorder(promRegistry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		watcher := limiter.NewRateConfigWatcher(client, reg, "ratelimiter:config", log)
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("example-server: rate config watcher stopped", zap.Error(err))
			}
		}()
		log.Info("example-server: watching rate config", zap.String("redis_addr", redisAddr))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ping", pingHandler(reg, recorder, log))
	r.Get("/rate/{namespace}/{key}", getRateHandler(reg))
	r.Put("/rate/{namespace}/{key}", setRateHandler(reg, log))
	r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		log.Info("example-server: listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("example-server: serve failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func pingHandler(reg *limiter.Registry, recorder limiter.MetricsRecorder, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := uuid.New().String()
		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			clientIP = host
		}
		id := limiter.Identity{Namespace: "ip", Key: clientIP}

		l, err := reg.Get(id)
		if err != nil {
			log.Error("example-server: registry.Get failed",
				zap.String("correlation_id", correlationID), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ok, err := l.TryAcquire(r.Context(), 1, 0)
		if err != nil {
			log.Warn("example-server: try_acquire canceled",
				zap.String("correlation_id", correlationID), zap.Error(err))
			http.Error(w, "canceled", http.StatusRequestTimeout)
			return
		}
		if !ok {
			recorder.Add("example_server.ping.rejected", 1, nil)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("rate limit exceeded\n"))
			return
		}

		log.Debug("example-server: ping allowed", zap.String("correlation_id", correlationID))
		w.Write([]byte("pong\n"))
	}
}

type rateResponse struct {
	RatePerSecond float64 `json:"rate_per_second"`
}

func getRateHandler(reg *limiter.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := limiter.Identity{Namespace: chi.URLParam(r, "namespace"), Key: chi.URLParam(r, "key")}
		l, err := reg.Get(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(rateResponse{RatePerSecond: l.GetRate()})
	}
}

func setRateHandler(reg *limiter.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := limiter.Identity{Namespace: chi.URLParam(r, "namespace"), Key: chi.URLParam(r, "key")}
		var req rateResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if err := reg.SetRate(id, req.RatePerSecond); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Info("example-server: rate updated via HTTP",
			zap.String("identity", id.String()), zap.Float64("rate_per_second", req.RatePerSecond))
		w.WriteHeader(http.StatusNoContent)
	}
}

func envFloat(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
