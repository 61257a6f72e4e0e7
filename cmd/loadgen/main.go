package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TemirB/storefront-checkout/internal/events"
	"github.com/TemirB/storefront-checkout/internal/loadgen"
	"github.com/TemirB/storefront-checkout/internal/random"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type kafkaFlags struct {
	brokers []string
	topic   string
	group   string
	grace   time.Duration
}

func rootCmd() *cobra.Command {
	var (
		cfg   loadgen.Config
		kafka kafkaFlags
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Send a steady stream of checkouts to a storefront",
		Long: `loadgen fetches the storefront catalog and posts random carts to
/api/checkout at a fixed rate. Part of the carts can be broken on purpose
to exercise the validation path. A status code summary is printed at the end.

With --kafka-brokers set, loadgen also reads the order event topic and
reports how many order.confirmed events arrived during the run.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.InvalidRatio < 0 || cfg.InvalidRatio > 1 {
				return fmt.Errorf("--invalid-ratio must be within [0,1], got %v", cfg.InvalidRatio)
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := &http.Client{Timeout: 10 * time.Second}
			g := loadgen.New(cfg, client, random.New(seed), logger)

			if len(kafka.brokers) == 0 {
				sum, err := g.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sum.String())
				return nil
			}

			return runWithEvents(ctx, cmd, g, kafka, logger)
		},
	}

	cmd.Flags().StringVar(&cfg.Target, "target", "http://localhost:8081", "Storefront base URL")
	cmd.Flags().IntVar(&cfg.Rate, "rate", 10, "Checkouts per second")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 30*time.Second, "How long to run (0 runs until interrupted)")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 8, "Concurrent requests in flight")
	cmd.Flags().Float64Var(&cfg.InvalidRatio, "invalid-ratio", 0.1, "Share of carts that are broken on purpose")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses the clock)")

	cmd.Flags().StringSliceVar(&kafka.brokers, "kafka-brokers", nil, "Brokers to read order events from")
	cmd.Flags().StringVar(&kafka.topic, "kafka-topic", "orders", "Order event topic")
	cmd.Flags().StringVar(&kafka.group, "kafka-group", "storefront-loadgen", "Consumer group")
	cmd.Flags().DurationVar(&kafka.grace, "kafka-grace", 3*time.Second, "How long to keep reading after the last request")

	return cmd
}

// runWithEvents runs the generator and an order event consumer side by side.
func runWithEvents(ctx context.Context, cmd *cobra.Command, g *loadgen.Generator, kf kafkaFlags, logger *zap.Logger) error {
	tally := events.NewTally(logger)
	consumer := events.NewConsumer(tally, events.NewReader(kf.brokers, kf.topic, kf.group), logger)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	var sum loadgen.Summary
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return consumer.Run(consumerCtx)
	})
	eg.Go(func() error {
		defer stopConsumer()
		var err error
		sum, err = g.Run(egctx)
		if err != nil {
			return err
		}
		timer := time.NewTimer(kf.grace)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-egctx.Done():
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	snap := tally.Snapshot()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, sum.String())
	fmt.Fprintf(out, "events=%d confirmed_responses=%d", snap.Total, sum.ByStatus[http.StatusOK])
	for provider, n := range snap.ByProvider {
		fmt.Fprintf(out, " %s=%d", provider, n)
	}
	fmt.Fprintln(out)
	return nil
}
