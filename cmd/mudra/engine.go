package main

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/tray"
)

// runEngine recognizes gestures until ctx is cancelled or the tray quits.
func runEngine(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := gesture.NewRegistry()
	if err := registry.RegisterHeuristics(cfg.Builtins...); err != nil {
		return err
	}

	synth, closeSynth, err := newSynthesizer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSynth()
	speaker := speech.NewSpeaker(synth, cfg.Speech.Timeout, log.Named("speech"))
	defer speaker.Close()

	a := app.New(app.Config{
		Store:        st,
		Registry:     registry,
		Engine:       cfg.EngineSettings(),
		Source:       cfg.Source(),
		Detector:     newDetector(cfg, log.Named("detector")),
		TickInterval: cfg.TickInterval,
		Mirror:       cfg.Mirror,
		Log:          log,
	})
	a.Subscribe(speaker)

	plugins := plugin.NewManager(cfg.PluginPath(), log.Named("plugin"))
	if err := plugins.Discover(); err != nil {
		log.Warnw("plugin discovery failed", "dir", plugins.PluginDir(), "error", err)
	}
	dispatcher := plugin.NewDispatcher(plugins, plugin.NewExecutor(cfg.PluginTimeout), log.Named("plugin"))
	defer dispatcher.Close()
	a.Subscribe(dispatcher)

	if err := a.Start(); err != nil {
		return err
	}
	defer a.Stop()

	errCh := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		hub := server.NewEventHub(log.Named("events"))
		a.Subscribe(hub)

		staticDir := cfg.StaticDir
		if staticDir == "" {
			staticDir = findWebDir(cfg.DataDir)
		}
		srv := server.New(server.Config{StaticDir: staticDir, App: a, Hub: hub, Log: log.Named("http")})
		go func() {
			errCh <- srv.ListenAndServe(ctx, cfg.HTTPAddr)
			cancel()
		}()
	}

	if cfg.Tray {
		tr := tray.New()
		a.Subscribe(tr)
		tr.OnToggle(a.SetEnabled)
		tr.OnQuit(cancel)
		if cfg.HTTPAddr != "" {
			tr.OnDashboard(func() { openBrowser(log, dashboardURL(cfg.HTTPAddr)) })
		}
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		// The tray owns the main thread until it quits.
		tr.Run()
		cancel()
	} else {
		<-ctx.Done()
	}

	log.Infow("shutting down")
	if cfg.HTTPAddr != "" {
		return <-errCh
	}
	return nil
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(log *zap.SugaredLogger, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warnw("could not open browser", "url", url, "error", err)
		return
	}
	go cmd.Wait()
}
