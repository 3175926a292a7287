package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"github.com/newdim001/biz-pro/cmd/bizctl/cli"
	"github.com/newdim001/biz-pro/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	env := cli.NewEnv(cfg, app.NewLogger(cfg))
	for _, c := range cli.Commands(env) {
		commander.Register(c, "ledger")
	}

	flag.Parse()
	status := commander.Execute(ctx)
	env.Close()
	os.Exit(int(status))
}
