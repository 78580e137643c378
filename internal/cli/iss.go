package cli

import (
	"context"
	"time"

	"go-space/internal/domain"
	"go-space/internal/orchestrator"

	"github.com/spf13/cobra"
)

func newIssCmd() *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "iss",
		Short: "Track the ISS from a running go-space service",
		Long: `Polls /api/iss of the service at PUBLIC_BASE_URL.

A page refresh runs every ISS_PAGE_INTERVAL and reports errors. Once the first
position has loaded, a map refresh runs every ISS_MAP_INTERVAL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			api := orchestrator.NewHTTPAPI(cfg.Client.PublicBaseURL, cfg.Upstream.Timeout)
			var tracker *orchestrator.ISSTracker
			tracker = orchestrator.NewISSTracker(api,
				orchestrator.WithIntervals(cfg.Client.IssPageInterval, cfg.Client.IssMapInterval),
				orchestrator.WithSink(orchestrator.PositionSinkFunc(func(pos domain.IssPosition) {
					_ = writePosition(out, pos, tracker.Freshness(time.Now()))
				})),
			)

			tracker.Start(ctx)
			<-ctx.Done()
			tracker.Stop()

			if err := tracker.State().Err; err != nil {
				cmd.PrintErrf("last refresh failed: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (default: until interrupted)")
	return cmd
}
