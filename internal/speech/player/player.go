// Package player plays synthesized audio through the default output device.
package player

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedFormat is returned for formats other than mp3 and wav.
var ErrUnsupportedFormat = errors.New("unsupported format for direct playback; use mp3 or wav")

// Player plays an encoded audio stream to completion.
type Player interface {
	Play(ctx context.Context, format string, r io.ReadCloser) error
}

// Default plays mp3 and wav through beep's speaker.
type Default struct {
	volumeDB float64

	mu   sync.Mutex
	rate beep.SampleRate
}

// New creates a player without volume change (0 dB).
func New() *Default { return &Default{} }

// NewWithVolume creates a player with a volume offset in dB (negative is quieter).
func NewWithVolume(db float64) *Default { return &Default{volumeDB: db} }

func (d *Default) Play(ctx context.Context, format string, r io.ReadCloser) error {
	streamer, sampleFormat, err := decode(format, r)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := d.init(sampleFormat.SampleRate); err != nil {
		return err
	}

	vol := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   d.volumeDB,
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func decode(format string, r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(format) {
	case "mp3":
		return mp3.Decode(r)
	case "wav":
		return wav.Decode(r)
	default:
		r.Close()
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

// init opens the speaker once per sample rate.
func (d *Default) init(rate beep.SampleRate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rate == rate {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return err
	}
	d.rate = rate
	return nil
}
