package app

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

var (
	landmarkColor = color.RGBA{R: 0, G: 220, B: 0, A: 0}
	captionColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	shadowColor   = color.RGBA{R: 0, G: 0, B: 0, A: 0}
)

// drawOverlay marks the detected landmarks and writes caption along the
// bottom edge of the frame.
func drawOverlay(frame *gocv.Mat, hands []detector.HandLandmarks, caption string) {
	w, h := frame.Cols(), frame.Rows()
	for _, hand := range hands {
		for _, p := range hand.Points {
			pt := image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
			gocv.Circle(frame, pt, 3, landmarkColor, -1)
		}
	}

	if caption == "" {
		return
	}
	origin := image.Pt(16, h-20)
	gocv.PutText(frame, caption, origin.Add(image.Pt(2, 2)), gocv.FontHersheySimplex, 0.9, shadowColor, 3)
	gocv.PutText(frame, caption, origin, gocv.FontHersheySimplex, 0.9, captionColor, 2)
}
