// Command mudra recognizes hand gestures from a camera or a video file and
// speaks the confirmed ones.
//
// Usage:
//
//	mudra [flags] [run]          recognize until interrupted
//	mudra [flags] list           print the stored gestures
//	mudra [flags] builtins       print the bundled heuristic gestures
//	mudra [flags] delete NAME    remove a stored gesture
//	mudra [flags] clear          remove every stored gesture
//	mudra [flags] plot NAME OUT  write the trajectory of NAME as PNG
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "mudra:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cfg, rest, err := config.Load(args)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	command := "run"
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	switch command {
	case "run":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runEngine(ctx, cfg, log)
	case "list":
		return withStore(cfg, log, func(c *cli) error { return c.list(stdout) })
	case "builtins":
		return listBuiltins(stdout)
	case "delete":
		if len(rest) != 1 {
			return errors.New("usage: mudra delete NAME")
		}
		return withStore(cfg, log, func(c *cli) error { return c.delete(stdout, rest[0]) })
	case "clear":
		return withStore(cfg, log, func(c *cli) error { return c.clear(stdout) })
	case "plot":
		if len(rest) != 2 {
			return errors.New("usage: mudra plot NAME OUT.png")
		}
		return withStore(cfg, log, func(c *cli) error { return c.plot(stdout, rest[0], rest[1]) })
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func withStore(cfg *config.Config, log *zap.SugaredLogger, fn func(*cli) error) error {
	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(&cli{store: st})
}
