// Command dirctl inspects and edits the directory's datasets from the
// shell, using the same configuration and backends as the server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bondweb/internal/logging"
)

var logLevel = flag.String("log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

func main() {
	_ = godotenv.Overload()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()
	logging.SetupWriter(os.Stderr, *logLevel, "text")
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(&listCmd{}, "records")
	c.Register(&showCmd{}, "records")
	c.Register(&exportCmd{}, "records")
	c.Register(&parseCmd{}, "records")

	c.Register(&overlayCmd{}, "edits")
	c.Register(&addFieldCmd{}, "edits")
	c.Register(&removeFieldCmd{}, "edits")
	c.Register(&clearCmd{}, "edits")
}
