package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dripq/dripq/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue management commands",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue statistics",
	RunE:  runQueueStats,
}

func init() {
	queueCmd.AddCommand(queueStatsCmd)
	rootCmd.AddCommand(queueCmd)
}

func openQueue() (queue.Queue, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Redis.URL == "" {
		return nil, fmt.Errorf("redis.url is required for queue commands")
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return queue.NewRedisQueue(client, cfg.Queue.KeyPrefix, cfg.Queue.MinDispatchInterval), nil
}

func runQueueStats(cmd *cobra.Command, args []string) error {
	q, err := openQueue()
	if err != nil {
		return err
	}
	defer q.Close()

	stats, err := q.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read queue stats: %w", err)
	}

	fmt.Printf("Queue statistics:\n")
	fmt.Printf("  Delayed: %d\n", stats.Delayed)
	fmt.Printf("  Failed:  %d\n", stats.Failed)

	return nil
}
