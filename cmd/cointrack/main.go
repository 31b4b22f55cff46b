package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var configFile = flag.String("f", "etc/cointrack.yaml", "the config file")

var commands = []subcommands.Command{
	&marketsCmd{},
	&portfolioCmd{},
	&addCmd{},
	&removeCmd{},
	&favoriteCmd{},
	&historyCmd{},
	&watchCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commander.Execute(ctx)
	stop()
	os.Exit(int(code))
}
