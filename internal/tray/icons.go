package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/sadopc/powernap/internal/countdown"
)

const iconSize = 22

// iconColors holds the palette for one timer state.
type iconColors struct {
	Face   color.RGBA
	Border color.RGBA
	Hand   color.RGBA
}

var (
	idleColors = iconColors{
		Face:   color.RGBA{117, 117, 117, 255},
		Border: color.RGBA{158, 158, 158, 255},
		Hand:   color.RGBA{255, 255, 255, 255},
	}
	runningColors = iconColors{
		Face:   color.RGBA{56, 142, 60, 255},
		Border: color.RGBA{76, 175, 80, 255},
		Hand:   color.RGBA{255, 255, 255, 255},
	}
	pausedColors = iconColors{
		Face:   color.RGBA{239, 108, 0, 255},
		Border: color.RGBA{255, 167, 38, 255},
		Hand:   color.RGBA{255, 255, 255, 255},
	}
	firingColors = iconColors{
		Face:   color.RGBA{198, 40, 40, 255},
		Border: color.RGBA{239, 83, 80, 255},
		Hand:   color.RGBA{255, 255, 255, 255},
	}
)

// Pre-generated icons, one per state.
var (
	iconIdle    = generateIcon(idleColors)
	iconRunning = generateIcon(runningColors)
	iconPaused  = generateIcon(pausedColors)
	iconFiring  = generateIcon(firingColors)
)

func iconFor(snap countdown.Snapshot) []byte {
	switch {
	case snap.Firing:
		return iconFiring
	case snap.State == countdown.Running:
		return iconRunning
	case snap.State == countdown.Paused:
		return iconPaused
	}
	return iconIdle
}

// generateIcon draws a round clock face with two hands and returns it as PNG.
func generateIcon(c iconColors) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))

	center := float64(iconSize) / 2
	radius := center - 1
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			d := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			switch {
			case d > radius:
			case d > radius-1.5:
				img.Set(x, y, c.Border)
			default:
				img.Set(x, y, c.Face)
			}
		}
	}

	// Hands at a quarter past twelve.
	drawHand(img, center, -math.Pi/2, radius*0.5, c.Hand)
	drawHand(img, center, 0, radius*0.7, c.Hand)

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func drawHand(img *image.RGBA, center, angle, length float64, c color.RGBA) {
	for r := 0.0; r <= length; r += 0.5 {
		x := int(center + r*math.Cos(angle))
		y := int(center + r*math.Sin(angle))
		img.Set(x, y, c)
	}
}
