package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ztelur/smoothlimiter/pkg/limiter"
)

var scheduleProfiles []string

var scheduleCmd = &cobra.Command{
	Use:   "schedule <namespace> <key>",
	Short: "Switch a named limiter between time-of-day rate profiles on a cron schedule",
	Long: `schedule runs in the foreground, publishing a rate change for the
given identity to --redis-addr every time one of its --profile cron
expressions fires. Each --profile is "<cron expression>=<rate>", e.g.:

  ratelimiterctl schedule tenant acme \
    --redis-addr localhost:6379 \
    --profile "0 8 * * *=50" \
    --profile "0 22 * * *=5"

raises the rate to 50/s at 08:00 and drops it to 5/s at 22:00, every day,
in the local timezone.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if redisAddr == "" {
			return errors.New("ratelimiterctl: --redis-addr is required for schedule")
		}
		if len(scheduleProfiles) == 0 {
			return errors.New("ratelimiterctl: at least one --profile is required")
		}

		id := limiter.Identity{Namespace: args[0], Key: args[1]}
		watcher := limiter.NewRateConfigWatcher(newRedisClient(), nil, "ratelimiter:config", log)

		c := cron.New()
		for _, profile := range scheduleProfiles {
			expr, rateStr, ok := strings.Cut(profile, "=")
			if !ok {
				return fmt.Errorf("ratelimiterctl: malformed --profile %q, want \"<cron expr>=<rate>\"", profile)
			}
			var ratePerSecond float64
			if _, err := fmt.Sscanf(rateStr, "%f", &ratePerSecond); err != nil {
				return fmt.Errorf("ratelimiterctl: invalid rate in --profile %q: %w", profile, err)
			}
			rate := ratePerSecond
			if _, err := c.AddFunc(expr, func() {
				ctx := cmd.Context()
				if err := watcher.Publish(ctx, id, rate); err != nil {
					log.Error("schedule: publish failed", zap.Error(err), zap.Float64("rate_per_second", rate))
					return
				}
				log.Info("schedule: published rate profile",
					zap.String("identity", id.String()), zap.Float64("rate_per_second", rate))
			}); err != nil {
				return fmt.Errorf("ratelimiterctl: invalid cron expression %q: %w", expr, err)
			}
		}

		c.Start()
		log.Info("schedule: running", zap.String("identity", id.String()), zap.Int("profiles", len(scheduleProfiles)))

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		<-c.Stop().Done()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringArrayVar(&scheduleProfiles, "profile", nil, `cron expression and rate, as "<expr>=<rate>"; repeatable`)
}
