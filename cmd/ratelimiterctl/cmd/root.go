package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	verbose   bool
	redisAddr string

	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ratelimiterctl",
	Short: "Operate and exercise smooth rate limiters",
	Long: `ratelimiterctl drives the pkg/limiter smooth rate limiter from the
command line: acquire permits against a local limiter, push rate changes to
every process watching a Redis config channel, or run a cron-driven
schedule of rate profiles.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			log, err = zap.NewDevelopment()
		} else {
			log, err = zap.NewProduction()
		}
		return err
	},
}

// Execute adds all child commands to the root command and runs it. It is
// called by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.ratelimiterctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address for rate-config distribution (required by rate set and schedule)")

	_ = viper.BindPFlag("redis_addr", rootCmd.PersistentFlags().Lookup("redis-addr"))

	rootCmd.AddCommand(acquireCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".ratelimiterctl")
	}
	viper.SetEnvPrefix("RATELIMITERCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "ratelimiterctl: using config file:", viper.ConfigFileUsed())
	}

	if redisAddr == "" {
		redisAddr = viper.GetString("redis_addr")
	}
}
