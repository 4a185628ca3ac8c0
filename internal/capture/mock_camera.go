package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// errNoFrames is returned by a MockCamera built without frames.
var errNoFrames = errors.New("mock camera has no frames")

// MockCamera replays a fixed set of frames. It stands in for a device or a
// video file in tests: a looping mock behaves like a camera, a non-looping
// one like a clip that ends with ErrEndOfStream.
type MockCamera struct {
	mu      sync.Mutex
	frames  []*gocv.Mat
	loop    bool
	next    int
	open    bool
	openErr error
	fps     int

	opens, closes, reads int
}

// NewMockCamera creates a mock that replays frames, optionally looping.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open rewinds playback. It fails with the error set by SetOpenError.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.opens++
	if c.openErr != nil {
		return c.openErr
	}
	c.open = true
	c.next = 0
	return nil
}

// Close stops playback. Only closing an open camera is counted.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		c.closes++
		c.open = false
	}
	return nil
}

// ReadFrame returns a copy of the next frame; the caller owns it.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if len(c.frames) == 0 {
		return nil, errNoFrames
	}
	if c.next == len(c.frames) {
		if !c.loop {
			return nil, ErrEndOfStream
		}
		c.next = 0
	}

	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

// SetFPS records the requested rate.
func (c *MockCamera) SetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fps > 0 {
		c.fps = fps
	}
}

// FPS returns the last rate set, DefaultFPS initially.
func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether Open succeeded and Close has not been called since.
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetOpenError makes subsequent Open calls fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// Counts returns how many times the camera was opened and closed.
func (c *MockCamera) Counts() (opens, closes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes
}

// Reads returns the number of frames handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
