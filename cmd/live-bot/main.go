package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"live-stream-bot/api"
	"live-stream-bot/bilibili"
	"live-stream-bot/bot"
	"live-stream-bot/config"
	"live-stream-bot/livestream"
	"live-stream-bot/metrics"
	"live-stream-bot/service"
	"live-stream-bot/sink"
	"live-stream-bot/storage"
	"live-stream-bot/twitch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	core := bot.New(bot.Config{DedupCapacity: cfg.Bot.DedupCapacity})

	var adapter livestream.Adapter
	var roomID string
	switch cfg.Platform {
	case config.PlatformBilibili:
		adapter = bilibili.New(bilibili.Config{
			SessData: cfg.Bilibili.SessData,
			AuthKey:  cfg.Bilibili.AuthKey,
		})
		roomID = cfg.Bilibili.RoomID
	case config.PlatformTwitch:
		adapter = twitch.New(twitch.Config{
			Username:   cfg.Twitch.Username,
			OAuthToken: cfg.Twitch.OAuthToken,
		})
		roomID = cfg.Twitch.Channel
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	livestream.SetObserver(collector)
	adapter.AddHandler(core)
	adapter.AddHandler(collector)
	metrics.RegisterStateGauges(prometheus.DefaultRegisterer, core)

	if cfg.Postgres.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			log.Fatalf("pgxpool.New: %v", err)
		}
		defer pool.Close()

		batcher := storage.NewBatcher(ctx, pool, storage.BatchConfig{
			MaxBatch:      cfg.Batch.MaxBatch,
			FlushEvery:    cfg.Batch.FlushEvery,
			ChanBuffer:    cfg.Batch.ChanBuffer,
			StatsLogEvery: cfg.Batch.StatsLogEvery,
			FlushTimeout:  cfg.Batch.FlushTimeout,
		})
		adapter.AddHandler(service.NewArchiver(batcher, pool, cfg.Batch.FlushTimeout))
	}

	if cfg.Kafka.Enabled() {
		writer := sink.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := writer.Close(); err != nil {
				log.Printf("kafka writer close: %v", err)
			}
		}()
		adapter.AddHandler(sink.NewForwarder(writer, 5*time.Second))
	}

	httpSrv := api.NewServer(cfg.HTTP.Addr, core)
	go func() {
		log.Printf("http: слушаем %s", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server: %v", err)
			cancel()
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	srv := service.New(adapter, core, roomID, cfg.Bot.SummaryEvery)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("service run failed: %v", err)
	}

	log.Println("shutting down...")
}
