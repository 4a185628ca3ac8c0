package app

import (
	"errors"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// runPipeline is the main loop. Each tick:
// 1. Read a frame from the active source
// 2. Mirror it horizontally when configured
// 3. Detect hands and describe them
// 4. Translate the observations into an outcome
// 5. Draw the overlay and publish the JPEG for streaming
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.source.ReadFrame()
			if err != nil {
				// Log only when the failure changes so a finished video or a
				// missing camera does not flood the log.
				if lastErr == nil || lastErr.Error() != err.Error() {
					if errors.Is(err, capture.ErrEndOfStream) {
						a.log.Infow("video source finished")
					} else {
						a.log.Warnw("error reading frame", "error", err)
					}
				}
				lastErr = err
				continue
			}
			lastErr = nil

			a.Process(frame, time.Now())
			frame.Close()
		}
	}
}

// Process runs one tick on frame. A failure inside the tick is logged and
// reported as gesture.OutcomeNone.
func (a *App) Process(frame *gocv.Mat, now time.Time) (out gesture.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorw("tick panicked", "panic", r)
			out = gesture.Outcome{Kind: gesture.OutcomeNone}
		}
	}()
	a.ticks.Add(1)

	if a.config.Mirror && !frame.Empty() {
		gocv.Flip(*frame, frame, 1)
	}

	hands, err := a.detector.Detect(frame)
	if err != nil {
		a.log.Warnw("error detecting hands", "error", err)
		return gesture.Outcome{Kind: gesture.OutcomeNone}
	}
	observations := detector.DescribeAll(hands)

	a.mu.Lock()
	out = a.engine.Translate(observations, now)
	a.mu.Unlock()

	if !frame.Empty() {
		a.publish(frame, hands, out)
	}
	return out
}

// publish draws the overlay and stores the encoded frame.
func (a *App) publish(frame *gocv.Mat, hands []detector.HandLandmarks, out gesture.Outcome) {
	drawOverlay(frame, hands, a.caption(out))

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.log.Debugw("error encoding frame", "error", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.frameMu.Lock()
	a.latest = data
	a.frameMu.Unlock()
}

// caption is the subtitle drawn on the frame.
func (a *App) caption(out gesture.Outcome) string {
	switch out.Kind {
	case gesture.OutcomeLearning:
		a.mu.Lock()
		name, frames, _ := a.engine.Learning()
		a.mu.Unlock()
		if name == "" {
			name = out.Name
		}
		return "learning " + name + ": " + strconv.Itoa(frames) + " frames"
	case gesture.OutcomeNoHand:
		return ""
	}
	if ev, ok := a.LastGesture(); ok && time.Since(ev.Time) < 2*time.Second {
		return ev.Name
	}
	return ""
}
