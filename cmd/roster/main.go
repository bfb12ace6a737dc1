package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"example.com/roster/internal/action"
	"example.com/roster/internal/config"
	"example.com/roster/internal/render"
	"example.com/roster/internal/session"
	"example.com/roster/internal/status"
	httptransport "example.com/roster/internal/transport/http"
)

const usage = `usage: roster <command> [flags]

commands:
  list                              print the current roster
  signup -activity NAME -email ADDR sign a student up
  withdraw -activity NAME -email ADDR remove a participant
  watch                             print the roster whenever it changes
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], config.Load(), os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, cfg config.Config, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	switch args[0] {
	case "list":
		return runList(ctx, cfg, logger, stdout)
	case "signup":
		return runAction(ctx, action.KindSignup, args[1:], cfg, logger, stdout, stderr)
	case "withdraw":
		return runAction(ctx, action.KindWithdraw, args[1:], cfg, logger, stdout, stderr)
	case "watch":
		return runWatch(ctx, cfg, logger, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func runList(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout io.Writer) int {
	s := session.New(cfg, session.WithLogger(logger))
	err := s.Start(ctx)
	fmt.Fprint(stdout, render.Format(s.Display.View(), render.DefaultStyles()))
	if err != nil {
		return 1
	}
	return 0
}

func runAction(ctx context.Context, kind action.Kind, args []string, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(string(kind), flag.ContinueOnError)
	fs.SetOutput(stderr)
	activity := fs.String("activity", "", "activity name")
	email := fs.String("email", "", "student email address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s := session.New(cfg, session.WithLogger(logger))
	if err := s.Start(ctx); err != nil {
		logger.Warn("initial roster load failed", "error", err)
	}

	var outcome action.Outcome
	switch kind {
	case action.KindSignup:
		s.Form.Set(*activity, *email)
		outcome = s.Controller.Submit(ctx, s.Form)
	case action.KindWithdraw:
		outcome = s.Controller.Withdraw(ctx, *activity, *email)
	}

	styles := render.DefaultStyles()
	if msg, visible := s.Notifier.Current(); visible {
		fmt.Fprintln(stdout, render.FormatStatus(msg, visible, styles))
	}
	fmt.Fprint(stdout, render.Format(s.Display.View(), styles))

	if outcome != action.Succeeded {
		return 1
	}
	return 0
}

func runWatch(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout io.Writer) int {
	styles := render.DefaultStyles()
	var mu sync.Mutex
	emit := func(text string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(stdout, text)
	}

	s := session.New(cfg,
		session.WithLogger(logger),
		session.OnRender(func(v render.View) { emit(render.Format(v, styles)) }),
		session.OnStatus(func(msg status.Message, visible bool) {
			if visible {
				emit(render.FormatStatus(msg, visible, styles) + "\n")
			}
		}),
	)

	var wg sync.WaitGroup
	if cfg.MetricsAddress != "" {
		srvCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress)
		srv := httptransport.NewServer(srvCfg, httptransport.MetricsHandler())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httptransport.Serve(ctx, srv, srvCfg.ShutdownTimeout, logger); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if err := s.Start(ctx); err != nil {
		logger.Warn("initial roster load failed", "error", err)
	}

	code := 0
	if err := s.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watch stopped", "error", err)
		code = 1
	}
	logger.Info("shutdown requested")
	wg.Wait()
	return code
}
