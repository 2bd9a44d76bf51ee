// Command stockquest runs the trading simulator.
//
//	stockquest serve               HTTP/WebSocket server with a live tick
//	stockquest simulate -ticks 50  offline run printed as a report
//	stockquest catalog             list the achievements
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&simulateCmd{}, "")
	commander.Register(&catalogCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
