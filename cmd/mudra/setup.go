package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/speech/command"
	"github.com/ayusman/mudra/internal/speech/google"
	"github.com/ayusman/mudra/internal/speech/player"
	"github.com/ayusman/mudra/internal/store"
)

// openStore opens the configured backend and loads the gesture library.
func openStore(cfg *config.Config, log *zap.SugaredLogger) (*store.Store, func(), error) {
	path := cfg.GestureStorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(path, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open gesture database: %w", err)
		}
		return store.Open(db, log), func() { db.Close() }, nil
	default:
		return store.Open(store.NewFile(path, log), log), func() {}, nil
	}
}

// newDetector starts the landmark service, or falls back to a detector that
// never sees a hand when the service is not installed.
func newDetector(cfg *config.Config, log *zap.SugaredLogger) detector.Detector {
	d, err := detector.NewMediaPipeDetector(cfg.DetectorSettings(), log)
	if err != nil {
		log.Warnw("hand detector unavailable, recognition disabled", "error", err)
		return detector.NewMockDetector()
	}
	return d
}

// newSynthesizer builds the configured speech backend.
func newSynthesizer(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (speech.Synthesizer, func(), error) {
	switch cfg.Speech.Backend {
	case config.SpeechCommand:
		synth, err := command.New(cfg.Speech.Command, cfg.Speech.CommandArgs...)
		if err != nil {
			return nil, nil, err
		}
		return synth, func() {}, nil
	case config.SpeechGoogle:
		synth, err := google.New(ctx, cfg.GoogleSettings(), player.New(), log)
		if err != nil {
			return nil, nil, fmt.Errorf("google text-to-speech: %w", err)
		}
		return synth, func() { synth.Close() }, nil
	default:
		return speech.Discard, func() {}, nil
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data-dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
