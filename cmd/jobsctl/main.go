package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelfwatch/shelfwatch/cmd/jobsctl/cli"
	"github.com/shelfwatch/shelfwatch/internal/app"
)

const usage = `usage: jobsctl [flags] <command>

commands:
  trigger <catalog|metadata|inventory>   enqueue a sync run
  stats                                  show default queue counters
  scheduled                              list scheduled tasks

flags:
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("jobsctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	redisAddr := fs.String("redis", "", "redis address (defaults to REDIS_ADDR)")
	jsonOutput := fs.Bool("json", false, "print JSON instead of text")
	size := fs.Int("n", 10, "number of scheduled tasks to list")
	if err := fs.Parse(args); err != nil {
		return cli.ExitFailure
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return cli.ExitFailure
	}

	if *redisAddr == "" {
		cfg, err := app.LoadConfig()
		if err != nil {
			slog.Default().Error("load config", slog.Any("error", err))
			return cli.ExitFailure
		}
		*redisAddr = cfg.RedisAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobsCLI := cli.NewJobsCLI(*redisAddr)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			slog.Default().Warn("close queue client", slog.Any("error", err))
		}
	}()

	out := cli.Output{JSON: *jsonOutput}
	switch fs.Arg(0) {
	case "trigger":
		return jobsCLI.TriggerCommand(ctx, fs.Arg(1), out)
	case "stats":
		return jobsCLI.StatsCommand(ctx, out)
	case "scheduled":
		return jobsCLI.ScheduledCommand(ctx, *size, out)
	default:
		fmt.Fprintf(os.Stderr, "jobsctl: unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return cli.ExitFailure
	}
}
