package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ztelur/smoothlimiter/pkg/limiter"
)

var (
	acquireRate       float64
	acquireBurst      float64
	acquireWarmup     time.Duration
	acquireColdFactor float64
	acquirePermits    int
	acquireTimeout    time.Duration
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Acquire permits from a one-shot local limiter and print how long it waited",
	Long: `acquire builds a limiter from the given flags, performs a single
Acquire and prints the waited duration, or, if --timeout is set, a single
TryAcquire and prints whether the permits were granted. It is meant for exploring how a given rate/burst/warm-up
configuration paces requests, not for production traffic shaping — each
invocation starts a fresh, unshared limiter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := buildLimiter()
		if err != nil {
			return err
		}

		correlationID := uuid.New().String()
		ctx := cmd.Context()

		if acquireTimeout > 0 {
			ok, err := l.TryAcquire(ctx, acquirePermits, acquireTimeout.Microseconds())
			if err != nil {
				return err
			}
			log.Info("try_acquire result",
				zap.String("correlation_id", correlationID),
				zap.Bool("granted", ok))
			if !ok {
				fmt.Println("denied")
				return nil
			}
			fmt.Println("granted")
			return nil
		}

		waited, err := l.Acquire(ctx, acquirePermits)
		if err != nil {
			return err
		}
		log.Info("acquire result",
			zap.String("correlation_id", correlationID),
			zap.Int64("waited_micros", waited))
		fmt.Printf("waited %s\n", time.Duration(waited)*time.Microsecond)
		return nil
	},
}

func buildLimiter() (*limiter.Limiter, error) {
	if acquireWarmup > 0 {
		return limiter.NewWarmingUp(acquireRate, float64(acquireWarmup.Microseconds()), acquireColdFactor, limiter.WithLogger(log))
	}
	return limiter.NewBursty(acquireRate, acquireBurst, limiter.WithLogger(log))
}

func init() {
	acquireCmd.Flags().Float64Var(&acquireRate, "rate", 1, "steady-state rate, in permits per second")
	acquireCmd.Flags().Float64Var(&acquireBurst, "burst-seconds", 1, "max burst window, in seconds (Bursty policy; ignored if --warmup is set)")
	acquireCmd.Flags().DurationVar(&acquireWarmup, "warmup", 0, "warm-up period (enables the WarmingUp policy instead of Bursty)")
	acquireCmd.Flags().Float64Var(&acquireColdFactor, "cold-factor", 3, "ratio of the coldest permit's cost to the steady-state cost (WarmingUp policy)")
	acquireCmd.Flags().IntVar(&acquirePermits, "permits", 1, "number of permits to request")
	acquireCmd.Flags().DurationVar(&acquireTimeout, "timeout", 0, "use try_acquire with this timeout instead of acquire")
}
