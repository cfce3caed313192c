// Command depic resizes, crops and inspects image files and edits or removes
// their embedded metadata.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LazySeaHorse/Just-De-Pic/internal/config"
	"github.com/LazySeaHorse/Just-De-Pic/internal/observability"
	"github.com/LazySeaHorse/Just-De-Pic/internal/services"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	// A missing .env is normal; the environment is used as is
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "depic: unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "depic: failed to load configuration: %v\n", err)
		return exitError
	}

	obsConfig := observability.LoadConfig()
	obsConfig.Environment = cfg.Environment
	obsConfig.LogLevel = cfg.Logging.Level
	obsConfig.LogFormat = cfg.Logging.Format
	obsConfig.LogOutput = cfg.Logging.Output

	logOut := stderr
	if strings.EqualFold(obsConfig.LogOutput, "stdout") {
		logOut = stdout
	}
	logger := observability.NewLoggerWithWriter(logOut, obsConfig)

	provider, err := observability.NewProvider(ctx, obsConfig)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to initialize telemetry")
		return exitError
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx).Err(err).Msg("failed to flush telemetry")
		}
	}()

	metrics, err := provider.OperationMetrics()
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to create metrics")
		return exitError
	}

	container, err := services.NewContainer(cfg, logger, metrics)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to initialize services container")
		return exitError
	}

	fs := flag.NewFlagSet("depic "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: depic %s %s\n\n%s\n", args[0], cmd.args, cmd.summary)
		fs.PrintDefaults()
	}

	env := &commandEnv{ctx: ctx, container: container, stdout: stdout, flags: fs}
	if err := cmd.run(env, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		var uerr usageError
		if errors.As(err, &uerr) {
			if uerr.shown {
				return exitUsage
			}
			fmt.Fprintf(stderr, "depic %s: %v\n", args[0], err)
			fs.Usage()
			return exitUsage
		}
		logger.Error(ctx).Err(err).Str("command", args[0]).Msg("command failed")
		return exitError
	}
	return exitOK
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: depic <command> [flags] <file>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
}
