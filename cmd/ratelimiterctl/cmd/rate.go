package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ztelur/smoothlimiter/pkg/limiter"
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Inspect a limiter configuration locally, or change a named limiter's rate via Redis config distribution",
}

var rateGetCmd = &cobra.Command{
	Use:   "get <namespace> <key>",
	Short: "Print the rate of a local limiter built from the limiter-shape flags (diagnostic only; the identity is not looked up)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := buildLimiter()
		if err != nil {
			return err
		}
		fmt.Printf("%.6f permits/sec\n", l.GetRate())
		return nil
	},
}

var rateSetCmd = &cobra.Command{
	Use:   "set <namespace> <key> <rate>",
	Short: "Publish a rate change for an identity to every process watching --redis-addr",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if redisAddr == "" {
			return errors.New("ratelimiterctl: --redis-addr is required for rate set")
		}
		var ratePerSecond float64
		if _, err := fmt.Sscanf(args[2], "%f", &ratePerSecond); err != nil {
			return fmt.Errorf("ratelimiterctl: invalid rate %q: %w", args[2], err)
		}

		client := newRedisClient()
		defer client.Close()

		watcher := limiter.NewRateConfigWatcher(client, nil, "ratelimiter:config", log)
		id := limiter.Identity{Namespace: args[0], Key: args[1]}
		if err := watcher.Publish(cmd.Context(), id, ratePerSecond); err != nil {
			return err
		}
		fmt.Printf("published rate %.6f for %s\n", ratePerSecond, id)
		return nil
	},
}

func init() {
	rateCmd.AddCommand(rateGetCmd)
	rateCmd.AddCommand(rateSetCmd)

	// rate get reuses the acquire command's limiter-shape flags so an
	// operator can sanity-check what a given configuration resolves to
	// without a running registry.
	rateGetCmd.Flags().Float64Var(&acquireRate, "rate", 1, "steady-state rate, in permits per second")
	rateGetCmd.Flags().Float64Var(&acquireBurst, "burst-seconds", 1, "max burst window, in seconds (Bursty policy; ignored if --warmup is set)")
	rateGetCmd.Flags().DurationVar(&acquireWarmup, "warmup", 0, "warm-up period (enables the WarmingUp policy instead of Bursty)")
	rateGetCmd.Flags().Float64Var(&acquireColdFactor, "cold-factor", 3, "ratio of the coldest permit's cost to the steady-state cost (WarmingUp policy)")
}
