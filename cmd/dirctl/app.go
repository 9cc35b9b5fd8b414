package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/JonMunkholm/bondweb/internal/application"
	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
)

// actor tags edits made from the command line in the audit journal.
const actor = "dirctl"

// openApp loads the configuration and builds the service.
func openApp(ctx context.Context) (*application.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return application.New(ctx, cfg)
}

// withApp runs fn against a freshly built application and converts the
// outcome to an exit status.
func withApp(ctx context.Context, fn func(ctx context.Context, app *application.App) error) subcommands.ExitStatus {
	app, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	ctx = core.ContextWithActor(ctx, actor)
	if err := fn(ctx, app); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func usageError(usage string) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "usage: %s\n", usage)
	return subcommands.ExitUsageError
}
