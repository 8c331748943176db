package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

func dlqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay dead letter queues",
	}
	var n int64
	peek := &cobra.Command{
		Use:   "peek [queue]",
		Short: "Show the most recent dead jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			queues := []string{worker.QueueEFactura, worker.QueueEmail}
			if len(args) == 1 {
				queues = args
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := c.Context()
			rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, q := range queues {
				total, err := worker.DLQLength(ctx, rdb, q)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d dead\n", q, total)
				entries, err := worker.PeekDLQ(ctx, rdb, q, n)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(w, "  %s\t%s\tattempts=%d\t%s\n", e.FailedAt, e.JobType, e.Attempts, e.Reason)
				}
			}
			return w.Flush()
		},
	}
	peek.Flags().Int64VarP(&n, "limit", "n", 10, "entries per queue")

	var batch int
	requeue := &cobra.Command{
		Use:   "requeue <queue>",
		Short: "Move the oldest dead jobs back onto their queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := c.Context()
			rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			moved, err := worker.RequeueDLQ(ctx, rdb, args[0], batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "requeued %d job(s) on %s\n", moved, args[0])
			return nil
		},
	}
	requeue.Flags().IntVarP(&batch, "max", "m", 100, "jobs to move")

	cmd.AddCommand(peek, requeue)
	return cmd
}
