package viz

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

func sampleSequence(n int) gesture.Sequence {
	seq := gesture.Sequence{Cleaned: true}
	for i := range n {
		seq.Frames = append(seq.Frames, gesture.Frame{
			Palm: detector.Point3D{X: 0.05 * float64(i), Y: 0.02 * float64(i*i), Z: -0.01},
			Hand: gesture.Right,
		})
	}
	return seq
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.png")

	if err := WritePNG(path, "WAVE", sampleSequence(6)); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read plot: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG file")
	}
}

func TestRenderPNG_SingleFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPNG(&buf, "FIST", sampleSequence(1)); err != nil {
		t.Fatalf("RenderPNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG stream")
	}
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderChart(&buf, "WAVE", sampleSequence(4)); err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}

	html := buf.String()
	for _, want := range []string{"<html", "WAVE", "echarts"} {
		if !strings.Contains(html, want) {
			t.Errorf("chart HTML missing %q", want)
		}
	}
}

func TestEmptySequence(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderChart(&buf, "NONE", gesture.Sequence{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("RenderChart() error = %v, want ErrEmpty", err)
	}
	if err := WritePNG(filepath.Join(t.TempDir(), "x.png"), "NONE", gesture.Sequence{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("WritePNG() error = %v, want ErrEmpty", err)
	}
}
