package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sam02425/Document-Portal/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued document jobs",
	Long: `Run the batch worker. Jobs submitted with "docportal enqueue" are taken from
the Redis queue, run through the pipeline and their merged documents stored
as task results. Requires REDIS_URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Cache.RedisURL == "" {
			return fmt.Errorf("worker requires REDIS_URL")
		}
		consumer, err := queue.NewConsumer(queue.ConsumerConfig{
			RedisURL:    a.cfg.Cache.RedisURL,
			QueueName:   a.cfg.Worker.QueueName,
			Concurrency: a.cfg.Worker.Concurrency,
			JobTimeout:  a.cfg.Worker.JobTimeout,
			Processor:   a.pipeline,
			Logger:      a.logger,
		})
		if err != nil {
			return err
		}
		if err := consumer.Start(); err != nil {
			return err
		}

		<-ctx.Done()
		consumer.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
