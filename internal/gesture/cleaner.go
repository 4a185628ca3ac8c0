package gesture

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
)

// CleanerConfig holds the constants used to normalize a recorded sequence.
type CleanerConfig struct {
	// PositionScale multiplies every palm offset from the first frame.
	PositionScale float64

	// DepthWeight further scales the z component.
	DepthWeight float64

	// VelocityThreshold caps the palm speed (units per second) between
	// consecutive retained frames.
	VelocityThreshold float64

	// NoiseThreshold is the base movement below which a frame is dropped.
	// The effective threshold grows with the last clamped speed.
	NoiseThreshold float64

	// SmoothingWindow is the Gaussian kernel width. Sequences shorter than
	// this are left unsmoothed.
	SmoothingWindow int
}

// DefaultCleanerConfig returns the standard cleaning constants.
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{
		PositionScale:     1.2,
		DepthWeight:       0.5,
		VelocityThreshold: 0.12,
		NoiseThreshold:    0.02,
		SmoothingWindow:   3,
	}
}

// Cleaner converts a raw learning buffer into a reference sequence.
type Cleaner struct {
	cfg CleanerConfig
}

// NewCleaner creates a Cleaner with the given constants.
func NewCleaner(cfg CleanerConfig) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// Config returns the cleaner's constants.
func (c *Cleaner) Config() CleanerConfig {
	return c.cfg
}

// Clean re-references palm positions to the first frame, clamps velocity,
// drops frames that barely moved and smooths the result. The input is not
// modified. A sequence that is already cleaned is returned as a copy.
func (c *Cleaner) Clean(seq Sequence) Sequence {
	if seq.Cleaned {
		return seq.Clone()
	}
	if len(seq.Frames) == 0 {
		return Sequence{Frames: []Frame{}, Cleaned: true}
	}

	ref := seq.Frames[0].Palm.Vec()
	kept := make([]Frame, 0, len(seq.Frames))
	var lastVelocity r3.Vec

	for i, frame := range seq.Frames {
		pos := c.relative(frame.Palm.Vec(), ref)

		if i > 0 {
			prev := kept[len(kept)-1]
			prevPos := prev.Palm.Vec()

			if dt := frame.Time.Sub(prev.Time).Seconds(); dt > 0 {
				velocity := r3.Scale(1/dt, r3.Sub(pos, prevPos))
				if speed := r3.Norm(velocity); speed > c.cfg.VelocityThreshold {
					velocity = r3.Scale(c.cfg.VelocityThreshold/speed, velocity)
				}
				pos = r3.Add(prevPos, r3.Scale(dt, velocity))
				lastVelocity = velocity
			}

			movement := r3.Norm(r3.Sub(pos, prevPos))
			if movement < c.cfg.NoiseThreshold*(1+r3.Norm(lastVelocity)) {
				continue
			}
		}

		out := frame.clone()
		out.Palm = detector.PointFromVec(pos)
		kept = append(kept, out)
	}

	if c.cfg.SmoothingWindow > 0 && len(kept) >= c.cfg.SmoothingWindow {
		kept = c.smooth(kept)
	}

	return Sequence{Frames: kept, Cleaned: true}
}

func (c *Cleaner) relative(pos, ref r3.Vec) r3.Vec {
	rel := r3.Scale(c.cfg.PositionScale, r3.Sub(pos, ref))
	rel.Z *= c.cfg.DepthWeight
	return rel
}

// smooth applies a centered Gaussian kernel to the palm positions. Near the
// ends the kernel is truncated and its remaining weights re-normalized.
func (c *Cleaner) smooth(frames []Frame) []Frame {
	half := c.cfg.SmoothingWindow / 2
	weights := gaussianWeights(c.cfg.SmoothingWindow)

	out := make([]Frame, len(frames))
	for i := range frames {
		var sum r3.Vec
		var total float64
		for j := max(0, i-half); j <= min(len(frames)-1, i+half); j++ {
			w := weights[j-i+half]
			sum = r3.Add(sum, r3.Scale(w, frames[j].Palm.Vec()))
			total += w
		}
		out[i] = frames[i]
		out[i].Palm = detector.PointFromVec(r3.Scale(1/total, sum))
	}
	return out
}

// gaussianWeights returns the kernel for offsets -size/2..size/2 with
// sigma = size/6.
func gaussianWeights(size int) []float64 {
	half := size / 2
	sigma := float64(size) / 6
	weights := make([]float64, 2*half+1)
	for k := range weights {
		d := float64(k - half)
		weights[k] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	return weights
}
