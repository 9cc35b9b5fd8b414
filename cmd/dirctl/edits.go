package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/JonMunkholm/bondweb/internal/application"
)

type overlayCmd struct{}

func (*overlayCmd) Name() string     { return "overlay" }
func (*overlayCmd) Synopsis() string { return "print the pending local edits of a dataset" }
func (*overlayCmd) Usage() string {
	return `dirctl overlay <dataset>

  Dumps additions, modifications, deletions and custom fields as JSON.
`
}

func (*overlayCmd) SetFlags(*flag.FlagSet) {}

func (*overlayCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("dirctl overlay <dataset>")
	}
	key := f.Arg(0)
	return withApp(ctx, func(ctx context.Context, app *application.App) error {
		ov, err := app.Service.Overlay(ctx, key)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ov)
	})
}

type addFieldCmd struct{}

func (*addFieldCmd) Name() string     { return "add-field" }
func (*addFieldCmd) Synopsis() string { return "declare a custom field on a dataset" }
func (*addFieldCmd) Usage() string {
	return `dirctl add-field <dataset> <name>
`
}

func (*addFieldCmd) SetFlags(*flag.FlagSet) {}

func (*addFieldCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError("dirctl add-field <dataset> <name>")
	}
	key, name := f.Arg(0), f.Arg(1)
	return withApp(ctx, func(ctx context.Context, app *application.App) error {
		return app.Service.AddField(ctx, key, name)
	})
}

type removeFieldCmd struct{}

func (*removeFieldCmd) Name() string     { return "remove-field" }
func (*removeFieldCmd) Synopsis() string { return "remove a custom field declaration" }
func (*removeFieldCmd) Usage() string {
	return `dirctl remove-field <dataset> <name>

  Values already stored under the field are kept.
`
}

func (*removeFieldCmd) SetFlags(*flag.FlagSet) {}

func (*removeFieldCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError("dirctl remove-field <dataset> <name>")
	}
	key, name := f.Arg(0), f.Arg(1)
	return withApp(ctx, func(ctx context.Context, app *application.App) error {
		return app.Service.RemoveField(ctx, key, name)
	})
}

type clearCmd struct {
	all bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "discard local edits" }
func (*clearCmd) Usage() string {
	return `dirctl clear <dataset> | dirctl clear -all

  Discards the pending local edits of one dataset, or of every editable
  dataset with -all. This cannot be undone.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Clear every editable dataset.")
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.all == (f.NArg() == 1) || f.NArg() > 1 {
		return usageError("dirctl clear <dataset> | dirctl clear -all")
	}
	return withApp(ctx, func(ctx context.Context, app *application.App) error {
		if !c.all {
			return app.Service.ClearEdits(ctx, f.Arg(0))
		}
		cleared, err := app.Resetter.ResetAll(ctx)
		for _, key := range cleared {
			fmt.Fprintf(os.Stderr, "cleared %s\n", key)
		}
		return err
	})
}
