// Package config loads application settings from defaults, a .env file,
// MUDRA_-prefixed environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/speech/google"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MUDRA_"

// Store backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Speech backends
const (
	SpeechNone    = "none"
	SpeechCommand = "command"
	SpeechGoogle  = "google"
)

type Config struct {
	Debug        bool          `env:"DEBUG"`         // development logging
	DataDir      string        `env:"DATA_DIR"`      // directory for the gesture library
	StoreBackend string        `env:"STORE_BACKEND"` // json|sqlite
	StorePath    string        `env:"STORE_PATH"`    // overrides the default file inside DataDir
	Camera       int           `env:"CAMERA"`        // capture device id
	VideoFile    string        `env:"VIDEO_FILE"`    // plays a file instead of the camera when set
	Mirror       bool          `env:"MIRROR"`        // flip frames horizontally before detection
	HTTPAddr     string        `env:"HTTP_ADDR"`     // empty disables the HTTP server
	StaticDir    string        `env:"STATIC_DIR"`    // optional web UI directory
	TickInterval time.Duration `env:"TICK_INTERVAL"` // delay between processed frames
	Tray         bool          `env:"TRAY"`          // show the system tray menu
	Builtins     []string      `env:"BUILTINS" envSeparator:","`

	PluginDir     string        `env:"PLUGIN_DIR"`     // default <data-dir>/plugins
	PluginTimeout time.Duration `env:"PLUGIN_TIMEOUT"` // per plugin run

	Detector DetectorConfig
	Speech   SpeechConfig
	Engine   EngineConfig
}

// DetectorConfig configures the landmark subprocess.
type DetectorConfig struct {
	Python        string        `env:"DETECTOR_PYTHON"`
	Script        string        `env:"DETECTOR_SCRIPT"`
	MaxHands      int           `env:"DETECTOR_MAX_HANDS"`
	MinConfidence float64       `env:"DETECTOR_MIN_CONFIDENCE"`
	IdleTimeout   time.Duration `env:"DETECTOR_IDLE_TIMEOUT"`
}

// SpeechConfig selects and configures the speech backend.
type SpeechConfig struct {
	Backend     string        `env:"SPEECH"`                               // none|command|google
	Command     string        `env:"SPEECH_COMMAND"`                       // program for the command backend
	CommandArgs []string      `env:"SPEECH_COMMAND_ARGS" envSeparator:" "` // {text} is replaced with the phrase
	Timeout     time.Duration `env:"SPEECH_TIMEOUT"`                       // per utterance
	Credentials string        `env:"GOOGLE_CREDENTIALS"`                   // falls back to GOOGLE_APPLICATION_CREDENTIALS
	Language    string        `env:"GOOGLE_TTS_LANGUAGE"`
	Voice       string        `env:"GOOGLE_TTS_VOICE"`
	Rate        float64       `env:"GOOGLE_TTS_SPEAKING_RATE"`
	Pitch       float64       `env:"GOOGLE_TTS_PITCH"`
	VolumeDB    float64       `env:"GOOGLE_TTS_VOLUME_DB"`
}

// EngineConfig holds the recognition thresholds.
type EngineConfig struct {
	HistorySize         int           `env:"HISTORY_SIZE"`
	PositionScale       float64       `env:"POSITION_SCALE"`
	DepthWeight         float64       `env:"DEPTH_WEIGHT"`
	VelocityThreshold   float64       `env:"VELOCITY_THRESHOLD"`
	NoiseThreshold      float64       `env:"NOISE_THRESHOLD"`
	SmoothingWindow     int           `env:"SMOOTHING_WINDOW"`
	SimilarityThreshold float64       `env:"SIMILARITY_THRESHOLD"`
	PredefinedThreshold float64       `env:"PREDEFINED_THRESHOLD"`
	MovementThreshold   float64       `env:"MOVEMENT_THRESHOLD"`
	Dwell               time.Duration `env:"DWELL"`
	Cooldown            time.Duration `env:"COOLDOWN"`
	FrameInterval       time.Duration `env:"LEARN_FRAME_INTERVAL"`
	MaxFrames           int           `env:"LEARN_MAX_FRAMES"`
	MinFrames           int           `env:"LEARN_MIN_FRAMES"`
	MinDisplacement     float64       `env:"LEARN_MIN_DISPLACEMENT"`
}

// Defaults returns the configuration before .env, environment and flags.
func Defaults() *Config {
	dataDir := ".mudra"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".mudra")
	}

	det := detector.DefaultConfig()
	eng := gesture.DefaultEngineConfig()

	return &Config{
		DataDir:      dataDir,
		StoreBackend: BackendJSON,
		Mirror:       true,
		HTTPAddr:     "127.0.0.1:8080",
		TickInterval: 10 * time.Millisecond,
		Tray:         false,

		PluginTimeout: 5 * time.Second,
		Detector: DetectorConfig{
			Python:        "python3",
			MaxHands:      det.MaxHands,
			MinConfidence: det.MinConfidence,
			IdleTimeout:   det.IdleTimeout,
		},
		Speech: SpeechConfig{
			Backend:  SpeechNone,
			Command:  "espeak",
			Timeout:  10 * time.Second,
			Language: "en-US",
			Rate:     1.0,
		},
		Engine: EngineConfig{
			HistorySize:         eng.HistorySize,
			PositionScale:       eng.Cleaner.PositionScale,
			DepthWeight:         eng.Cleaner.DepthWeight,
			VelocityThreshold:   eng.Cleaner.VelocityThreshold,
			NoiseThreshold:      eng.Cleaner.NoiseThreshold,
			SmoothingWindow:     eng.Cleaner.SmoothingWindow,
			SimilarityThreshold: eng.Matcher.SimilarityThreshold,
			PredefinedThreshold: eng.Matcher.PredefinedThreshold,
			MovementThreshold:   eng.Matcher.MovementThreshold,
			Dwell:               eng.Confirm.Dwell,
			Cooldown:            eng.Confirm.Cooldown,
			FrameInterval:       eng.Learning.FrameInterval,
			MaxFrames:           eng.Learning.MaxFrames,
			MinFrames:           eng.Learning.MinFrames,
			MinDisplacement:     eng.Learning.MinDisplacement,
		},
	}
}

// Load reads the configuration for the given command-line arguments
// (without the program name) and returns the positional arguments left
// after the flags. A missing .env file is not an error.
func Load(args []string, envFiles ...string) (*Config, []string, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, nil, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("mudra", flag.ContinueOnError)
	cfg.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.Speech.Backend == SpeechGoogle {
		if err := cfg.exportCredentials(); err != nil {
			return nil, nil, err
		}
	}
	return cfg, fs.Args(), nil
}

func (c *Config) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable development logging")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory holding the gesture library")
	fs.StringVar(&c.StoreBackend, "store", c.StoreBackend, "gesture store backend: json|sqlite")
	fs.StringVar(&c.StorePath, "store-path", c.StorePath, "gesture store file (default inside data-dir)")
	fs.IntVar(&c.Camera, "camera", c.Camera, "camera device id")
	fs.StringVar(&c.VideoFile, "video", c.VideoFile, "read frames from a video file instead of the camera")
	fs.BoolVar(&c.Mirror, "mirror", c.Mirror, "mirror frames horizontally before detection")
	fs.StringVar(&c.HTTPAddr, "addr", c.HTTPAddr, "HTTP listen address, empty to disable")
	fs.StringVar(&c.StaticDir, "static-dir", c.StaticDir, "directory with web UI files")
	fs.DurationVar(&c.TickInterval, "tick", c.TickInterval, "delay between processed frames")
	fs.BoolVar(&c.Tray, "tray", c.Tray, "show the system tray menu")
	fs.Func("builtins", "comma-separated built-in gestures to enable (HELLO,YES,...)", func(v string) error {
		c.Builtins = splitList(v, ",")
		return nil
	})

	fs.StringVar(&c.PluginDir, "plugin-dir", c.PluginDir, "directory of gesture plugins (default inside data-dir)")
	fs.DurationVar(&c.PluginTimeout, "plugin-timeout", c.PluginTimeout, "maximum time for one plugin run")

	fs.StringVar(&c.Detector.Python, "python", c.Detector.Python, "python interpreter for the landmark service")
	fs.StringVar(&c.Detector.Script, "detector-script", c.Detector.Script, "path to landmark_service.py")
	fs.IntVar(&c.Detector.MaxHands, "max-hands", c.Detector.MaxHands, "maximum hands to detect")
	fs.Float64Var(&c.Detector.MinConfidence, "min-confidence", c.Detector.MinConfidence, "minimum detection confidence")

	fs.StringVar(&c.Speech.Backend, "speech", c.Speech.Backend, "speech backend: none|command|google")
	fs.StringVar(&c.Speech.Command, "speech-command", c.Speech.Command, "program for the command speech backend")
	fs.Func("speech-args", "space-separated arguments for the speech command; {text} is the phrase", func(v string) error {
		c.Speech.CommandArgs = splitList(v, " ")
		return nil
	})
	fs.DurationVar(&c.Speech.Timeout, "speech-timeout", c.Speech.Timeout, "maximum time for one utterance")
	fs.StringVar(&c.Speech.Credentials, "google-credentials", c.Speech.Credentials, "Google service account key file")
	fs.StringVar(&c.Speech.Language, "google-language", c.Speech.Language, "Google TTS language code")
	fs.StringVar(&c.Speech.Voice, "google-voice", c.Speech.Voice, "Google TTS voice name")

	e := &c.Engine
	fs.IntVar(&e.HistorySize, "history-size", e.HistorySize, "palm positions kept per hand")
	fs.Float64Var(&e.PositionScale, "position-scale", e.PositionScale, "scale applied to relative palm positions")
	fs.Float64Var(&e.DepthWeight, "depth-weight", e.DepthWeight, "weight of the z axis after scaling")
	fs.Float64Var(&e.VelocityThreshold, "velocity-threshold", e.VelocityThreshold, "maximum palm speed per second")
	fs.Float64Var(&e.NoiseThreshold, "noise-threshold", e.NoiseThreshold, "minimum palm step kept while cleaning")
	fs.IntVar(&e.SmoothingWindow, "smoothing-window", e.SmoothingWindow, "gaussian smoothing window in frames")
	fs.Float64Var(&e.SimilarityThreshold, "similarity-threshold", e.SimilarityThreshold, "minimum score for stored gestures")
	fs.Float64Var(&e.PredefinedThreshold, "predefined-threshold", e.PredefinedThreshold, "minimum score for built-in gestures")
	fs.Float64Var(&e.MovementThreshold, "movement-threshold", e.MovementThreshold, "palm path length per history frame for full movement in built-in scores")
	fs.DurationVar(&e.Dwell, "dwell", e.Dwell, "time a gesture must hold before it is confirmed")
	fs.DurationVar(&e.Cooldown, "cooldown", e.Cooldown, "quiet period after a confirmation")
	fs.DurationVar(&e.FrameInterval, "learn-interval", e.FrameInterval, "minimum spacing of learning frames")
	fs.IntVar(&e.MaxFrames, "learn-max-frames", e.MaxFrames, "learning frames before finalizing automatically")
	fs.IntVar(&e.MinFrames, "learn-min-frames", e.MinFrames, "learning frames required to save a gesture")
	fs.Float64Var(&e.MinDisplacement, "learn-min-displacement", e.MinDisplacement, "palm movement that makes a learning frame new")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown store backend %q (want json or sqlite)", c.StoreBackend)
	}
	switch c.Speech.Backend {
	case SpeechNone, SpeechCommand, SpeechGoogle:
	default:
		return fmt.Errorf("config: unknown speech backend %q (want none, command or google)", c.Speech.Backend)
	}
	if c.Speech.Backend == SpeechCommand && strings.TrimSpace(c.Speech.Command) == "" {
		return errors.New("config: speech command is empty")
	}
	if c.Camera < 0 {
		return fmt.Errorf("config: camera id %d is negative", c.Camera)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval %s must be positive", c.TickInterval)
	}
	if c.PluginTimeout < 0 {
		return fmt.Errorf("config: plugin timeout %s is negative", c.PluginTimeout)
	}

	e := c.Engine
	switch {
	case e.HistorySize < 1:
		return fmt.Errorf("config: history size %d must be at least 1", e.HistorySize)
	case e.SmoothingWindow < 1:
		return fmt.Errorf("config: smoothing window %d must be at least 1", e.SmoothingWindow)
	case e.MinFrames < 1:
		return fmt.Errorf("config: learn min frames %d must be at least 1", e.MinFrames)
	case e.MaxFrames < e.MinFrames:
		return fmt.Errorf("config: learn max frames %d is below min frames %d", e.MaxFrames, e.MinFrames)
	case e.Dwell < 0 || e.Cooldown < 0 || e.FrameInterval < 0:
		return errors.New("config: durations must not be negative")
	case e.PositionScale <= 0:
		return fmt.Errorf("config: position scale %v must be positive", e.PositionScale)
	}
	for _, th := range []float64{e.SimilarityThreshold, e.PredefinedThreshold} {
		if th < 0 || th > 1 {
			return fmt.Errorf("config: score threshold %v outside [0, 1]", th)
		}
	}

	for _, name := range c.Builtins {
		canonical, err := gesture.CanonicalName(name)
		if err != nil {
			return fmt.Errorf("config: builtin %q: %w", name, err)
		}
		if _, ok := gesture.Heuristics()[canonical]; !ok {
			return fmt.Errorf("config: unknown builtin gesture %q", name)
		}
	}
	return nil
}

// exportCredentials makes the key file visible to the Google SDK, which
// only reads GOOGLE_APPLICATION_CREDENTIALS.
func (c *Config) exportCredentials() error {
	cred := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if cp := strings.TrimSpace(c.Speech.Credentials); cp != "" {
		if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cp); err != nil {
			return fmt.Errorf("config: set google credentials: %w", err)
		}
		cred = cp
	}
	if cred == "" {
		return errors.New("config: google speech needs GOOGLE_APPLICATION_CREDENTIALS or -google-credentials")
	}
	if _, err := os.Stat(cred); err != nil {
		return fmt.Errorf("config: google key file: %w", err)
	}
	c.Speech.Credentials = cred
	return nil
}

// GestureStorePath returns the store file for the configured backend.
func (c *Config) GestureStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	if c.StoreBackend == BackendSQLite {
		return filepath.Join(c.DataDir, "gestures.db")
	}
	return filepath.Join(c.DataDir, "gestures.json")
}

// PluginPath returns the plugin directory.
func (c *Config) PluginPath() string {
	if c.PluginDir != "" {
		return c.PluginDir
	}
	return filepath.Join(c.DataDir, "plugins")
}

// Source returns the initial video source.
func (c *Config) Source() capture.Source {
	return capture.Source{Camera: c.Camera, File: c.VideoFile}
}

// DetectorSettings converts to detector.Config.
func (c *Config) DetectorSettings() detector.Config {
	d := detector.DefaultConfig()
	d.MaxHands = c.Detector.MaxHands
	d.MinConfidence = c.Detector.MinConfidence
	d.ScriptPath = c.Detector.Script
	d.Python = c.Detector.Python
	if c.Detector.IdleTimeout > 0 {
		d.IdleTimeout = c.Detector.IdleTimeout
	}
	return d
}

// GoogleSettings converts to the Google TTS backend configuration.
func (c *Config) GoogleSettings() google.Config {
	return google.Config{
		Language:     c.Speech.Language,
		Voice:        c.Speech.Voice,
		SpeakingRate: c.Speech.Rate,
		Pitch:        c.Speech.Pitch,
		VolumeGainDb: c.Speech.VolumeDB,
	}
}

// EngineSettings converts the thresholds to gesture.EngineConfig.
func (c *Config) EngineSettings() gesture.EngineConfig {
	e := c.Engine
	return gesture.EngineConfig{
		HistorySize: e.HistorySize,
		Cleaner: gesture.CleanerConfig{
			PositionScale:     e.PositionScale,
			DepthWeight:       e.DepthWeight,
			VelocityThreshold: e.VelocityThreshold,
			NoiseThreshold:    e.NoiseThreshold,
			SmoothingWindow:   e.SmoothingWindow,
		},
		Matcher: gesture.MatcherConfig{
			SimilarityThreshold: e.SimilarityThreshold,
			PredefinedThreshold: e.PredefinedThreshold,
			MovementThreshold:   e.MovementThreshold,
		},
		Confirm: gesture.ConfirmConfig{
			Dwell:    e.Dwell,
			Cooldown: e.Cooldown,
		},
		Learning: gesture.LearningConfig{
			FrameInterval:   e.FrameInterval,
			MaxFrames:       e.MaxFrames,
			MinFrames:       e.MinFrames,
			MinDisplacement: e.MinDisplacement,
		},
	}
}

// NewLogger builds the application logger: development output in debug
// mode, JSON production output otherwise.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func splitList(v, sep string) []string {
	var out []string
	for _, item := range strings.Split(v, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
