package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/natefinch/atomic"

	"github.com/JonMunkholm/bondweb/internal/application"
	"github.com/JonMunkholm/bondweb/internal/reconcile"
	"github.com/JonMunkholm/bondweb/internal/tabular"
)

type listCmd struct {
	query   string
	jsonOut bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list the records of a dataset" }
func (*listCmd) Usage() string {
	return `dirctl list [-q <query>] [-json] <dataset>

  Prints the effective records of a dataset, local edits applied. With -q
  only records matching the query in their search fields are shown.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "Case and accent insensitive search query.")
	f.BoolVar(&c.jsonOut, "json", false, "Print records as a JSON array.")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("dirctl list [-q <query>] [-json] <dataset>")
	}
	key := f.Arg(0)
	return withApp(ctx, func(ctx context.Context, app *application.App) error {
		def, err := app.Service.Dataset(key)
		if err != nil {
			return err
		}
		records, total, err := app.Service.Search(ctx, key, c.query)
		if err != nil {
			return err
		}
		if c.jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		if err := writeTable(os.Stdout, def, records); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d of %d %s\n", len(records), total, strings.ToLower(def.Label))
		return nil
	})
}

type showCmd struct {
	raw bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "show one record" }
func (*showCmd) Usage() string {
	return `dirctl show [-raw] <dataset> <id>

  Renders a record in the terminal. The id may also be the slug of the
  record's name for datasets without ids.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print the markdown source instead of rendering it.")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError("dirctl show [-raw] <dataset> <id>")
	}
	key, id := f.Arg(0), f.Arg(1)
	return withApp(ctx, func(ctx context.Context, app *application.App) error {
		def, err := app.Service.Dataset(key)
		if err != nil {
			return err
		}
		r, err := app.Service.Get(ctx, key, id)
		if err != nil {
			return err
		}
		md := recordMarkdown(def, r)
		if c.raw {
			_, err := io.WriteString(os.Stdout, md)
			return err
		}
		return printMarkdown(os.Stdout, md)
	})
}

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export a dataset as comma-delimited text" }
func (*exportCmd) Usage() string {
	return `dirctl export [-o <file>] <dataset>

  Writes the effective records of a dataset, local edits applied, as
  comma-delimited text to stdout or to a file.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, replaced atomically. Defaults to stdout.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("dirctl export [-o <file>] <dataset>")
	}
	key := f.Arg(0)
	return withApp(ctx, func(ctx context.Context, app *application.App) error {
		text, err := app.Service.Export(ctx, key)
		if err != nil {
			return err
		}
		return writeOutput(c.output, text)
	})
}

type parseCmd struct {
	output string
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "parse a source file and print it normalised" }
func (*parseCmd) Usage() string {
	return `dirctl parse [-o <file>] <path-or-url>

  Parses a comma or semicolon delimited source the way the server does and
  re-emits it comma-delimited. Useful for checking a file before publishing.
`
}

func (c *parseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, replaced atomically. Defaults to stdout.")
}

func (c *parseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("dirctl parse [-o <file>] <path-or-url>")
	}
	text, err := tabular.NewFetcher(nil).Fetch(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	records := tabular.Parse(text)
	fmt.Fprintf(os.Stderr, "%d records, %d fields, delimiter %q\n",
		len(records), len(reconcile.FieldUnion(records)), tabular.DetectDelimiter(text))

	if err := writeOutput(c.output, reconcile.Serialize(records)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeOutput prints text to stdout, or replaces path with it.
func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	}
	if err := atomic.WriteFile(path, strings.NewReader(text+"\n")); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
