package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nandanugg/gird/config"
	"github.com/nandanugg/gird/module/core"
)

type notification struct {
	DedupKey  string `json:"dedup_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		logger.Fatal("rabbitmq", zap.Error(err))
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("rabbitmq channel", zap.Error(err))
	}
	defer func() { _ = ch.Close() }()

	if err := core.DeclareNotificationTopology(ch); err != nil {
		logger.Fatal("declare topology", zap.Error(err))
	}

	msgs, err := ch.Consume(core.NotificationQueue, "", true, false, false, false, nil)
	if err != nil {
		logger.Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("waiting for geofence notifications", zap.String("queue", core.NotificationQueue))

	// one visible notification per fence: a newer one replaces the last
	shown := map[string]notification{}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			var n notification
			if err := json.Unmarshal(msg.Body, &n); err != nil {
				logger.Warn("invalid notification", zap.Error(err))
				continue
			}
			_, replaced := shown[n.DedupKey]
			shown[n.DedupKey] = n

			logger.Info(n.Title,
				zap.String("body", n.Body),
				zap.String("type", n.Type),
				zap.String("fence_id", n.DedupKey),
				zap.Int64("timestamp", n.Timestamp),
				zap.Bool("replaces_previous", replaced))
		}
	}
}
