package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_store/internal/metrics"
	"github.com/fjod/go_store/internal/publisher"
	"github.com/fjod/go_store/pkg/logger"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish outbox events to Kafka until interrupted",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg, false)
	if err != nil {
		return err
	}
	defer repo.Close()

	writer := publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
	poller := publisher.NewOutboxPoller(repo.Outbox(), writer, cfg.Kafka.PollInterval, metrics.New(), log)
	defer poller.Close()

	log.Info("outbox relay started", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	poller.Run(ctx)
	log.Info("outbox relay stopped")
	return nil
}
