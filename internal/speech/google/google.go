// Package google synthesizes speech with Google Cloud Text-to-Speech.
package google

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/speech/player"
)

// Config selects the voice and audio settings.
type Config struct {
	Language     string
	Voice        string
	SpeakingRate float64
	Pitch        float64
	VolumeGainDb float64
}

// Synthesizer sends text to Google TTS and plays the MP3 result.
type Synthesizer struct {
	client *gctts.Client
	player player.Player
	cfg    Config
	log    *zap.SugaredLogger
}

// New creates the API client using application default credentials.
func New(ctx context.Context, cfg Config, p player.Player, log *zap.SugaredLogger) (*Synthesizer, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	client, err := gctts.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google tts client: %w", err)
	}
	return &Synthesizer{client: client, player: p, cfg: cfg, log: log}, nil
}

// Close releases the API client.
func (s *Synthesizer) Close() error {
	return s.client.Close()
}

// Speak synthesizes text and blocks until playback ends.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	started := time.Now()
	resp, err := s.client.SynthesizeSpeech(ctx, Request(s.cfg, text))
	if err != nil {
		return fmt.Errorf("google tts synthesize: %w", err)
	}
	s.log.Debugw("google tts synthesize completed", "took", time.Since(started).String())

	return s.player.Play(ctx, "mp3", io.NopCloser(bytes.NewReader(resp.GetAudioContent())))
}

// Request builds the synthesis request for text.
func Request(cfg Config, text string) *ttspb.SynthesizeSpeechRequest {
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = "en-US"
	}
	return &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{
			InputSource: &ttspb.SynthesisInput_Text{Text: text},
		},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         cfg.Voice,
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
			SpeakingRate:  cfg.SpeakingRate,
			Pitch:         cfg.Pitch,
			VolumeGainDb:  cfg.VolumeGainDb,
		},
	}
}
