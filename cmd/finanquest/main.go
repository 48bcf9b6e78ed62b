// Command finanquest is the terminal client for the FinanQuest backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"finanquest/internal/cli"
	applog "finanquest/internal/log"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(stderr, "error: load .env:", err)
		return 1
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	logger := cli.SetupLogger(cfg.LogLevel, stderr)
	ctx = applog.NewContext(ctx, logger)

	a, err := newApp(ctx, cfg, logger, stdin, stdout, stderr)
	if err != nil {
		logger.LogError(ctx, "Failed to start", err, applog.ErrorTypeStorage, "startup")
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer a.Close()

	err = cmd.run(ctx, a, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		if err != errUsage {
			fmt.Fprintln(stderr, err)
		}
		return 2
	default:
		fmt.Fprintln(stderr, "error:", describe(err))
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: finanquest <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, n := range names {
		fmt.Fprintf(w, "  %s%s  %s\n", n, strings.Repeat(" ", width-len(n)), commands[n].summary)
	}
}
