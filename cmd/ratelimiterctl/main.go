// Command ratelimiterctl is an operator-facing CLI for exercising and
// reconfiguring smooth rate limiters: run a single acquire/try-acquire
// against a local limiter, push a rate change to every process watching a
// Redis config channel, or run a cron-driven schedule of rate profiles.
package main

import (
	"fmt"
	"os"

	"github.com/ztelur/smoothlimiter/cmd/ratelimiterctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
