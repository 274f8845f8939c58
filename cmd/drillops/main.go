// Command drillops provides manual controls for the drill background jobs:
// triggering warmups, bumping the cache version and inspecting the queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ledgerlens/ledgerlens/cmd/drillops/cli"
)

func main() {
	var (
		redisAddr = flag.String("redis", getenv("REDIS_ADDR", "localhost:6379"), "redis address")
		variants  = flag.String("variants", "", "comma separated drill variants for warmup (empty means all)")
		jsonOut   = flag.Bool("json", false, "emit JSON output")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: drillops [flags] <trigger TASK|inspect>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	jobsCLI, err := cli.NewJobsCLI(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drillops: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	ctx := context.Background()
	switch flag.Arg(0) {
	case "trigger":
		var selected []string
		if *variants != "" {
			selected = strings.Split(*variants, ",")
		}
		os.Exit(jobsCLI.TriggerCommand(ctx, cli.TriggerOptions{
			Task:       flag.Arg(1),
			Variants:   selected,
			JSONOutput: *jsonOut,
		}))
	case "inspect":
		os.Exit(jobsCLI.InspectCommand(ctx, cli.InspectOptions{JSONOutput: *jsonOut}))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
