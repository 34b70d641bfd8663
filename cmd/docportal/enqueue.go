package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sam02425/Document-Portal/internal/imaging"
	"github.com/sam02425/Document-Portal/internal/queue"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [page...]",
	Short: "Submit page images as one document job",
	Long: `Submit page images, in order, as one document job for the worker.

Pages are sent by absolute path, so the worker must see the same filesystem;
use --inline to embed the image bytes instead. With --wait the command polls
until the job finishes and prints the merged document as JSON.

Examples:
  docportal enqueue scan1.jpg scan2.jpg --doc-type invoice
  docportal enqueue --inline --wait --caller store-12 receipt.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().String("doc-type", "", "document type hint (invoice, receipt, shift_report, lottery_report, id)")
	enqueueCmd.Flags().String("caller", "", "caller id that scopes cached results")
	enqueueCmd.Flags().String("job-id", "", "job id (default: new UUID)")
	enqueueCmd.Flags().Bool("inline", false, "embed image bytes in the job instead of paths")
	enqueueCmd.Flags().Bool("wait", false, "wait for the result and print it")
	enqueueCmd.Flags().Duration("poll", 2*time.Second, "result poll interval with --wait")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	docType, _ := cmd.Flags().GetString("doc-type")
	caller, _ := cmd.Flags().GetString("caller")
	jobID, _ := cmd.Flags().GetString("job-id")
	inline, _ := cmd.Flags().GetBool("inline")
	wait, _ := cmd.Flags().GetBool("wait")
	poll, _ := cmd.Flags().GetDuration("poll")

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.RedisURL == "" {
		return fmt.Errorf("enqueue requires REDIS_URL")
	}

	p := queue.Payload{JobID: jobID, CallerID: caller, DocType: docType}
	for _, arg := range args {
		page, hash, err := pagePayload(arg, inline)
		if err != nil {
			return err
		}
		logger.Debug("queue.page.prepared", "name", page.Name, "hash", hash)
		p.Pages = append(p.Pages, page)
	}

	client, err := queue.NewClient(queue.ClientConfig{
		RedisURL:  cfg.Cache.RedisURL,
		QueueName: cfg.Worker.QueueName,
		Retention: cfg.Worker.ResultRetention,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()
	info, err := client.Enqueue(ctx, p)
	if err != nil {
		return err
	}
	logger.Info("queue.job.enqueued", "job_id", info.ID, "queue", info.Queue, "pages", len(p.Pages))
	if !wait {
		fmt.Fprintln(cmd.OutOrStdout(), info.ID)
		return nil
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		doc, err := client.Result(info.ID)
		if err == nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}
		if !errors.Is(err, queue.ErrNotFinished) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pagePayload decodes the page locally so a bad file fails here instead of
// in the worker, and returns the page with its content key.
func pagePayload(path string, inline bool) (queue.PagePayload, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return queue.PagePayload{}, "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return queue.PagePayload{}, "", err
	}
	hash, err := imaging.HashBytes(data)
	if err != nil {
		return queue.PagePayload{}, hash, fmt.Errorf("%s (key %s): %w", path, hash, err)
	}

	page := queue.PagePayload{Name: filepath.Base(abs)}
	if inline {
		page.Data = data
	} else {
		page.Path = abs
	}
	return page, hash, nil
}
