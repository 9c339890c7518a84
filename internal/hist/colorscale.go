package hist

import "fmt"

// RGB is one display color.
type RGB struct {
	R, G, B uint8
}

// Hex renders the color as "#rrggbb" for terminal styling.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

type colorStop struct {
	at    float64
	color RGB
}

// Heat scale for count/percentage cells, dark slate through deep red
// to orange. The stops cluster below 0.5, where most cells land.
var heatStops = []colorStop{
	{0.00, RGB{0x2a, 0x27, 0x3a}},
	{0.15, RGB{0x63, 0x32, 0x40}},
	{0.30, RGB{0x8f, 0x37, 0x3e}},
	{0.50, RGB{0xc0, 0x3a, 0x35}},
	{0.70, RGB{0xe5, 0x54, 0x2d}},
	{1.00, RGB{0xff, 0x87, 0x1f}},
}

// Diverging scale endpoints for differential cells.
var (
	diffWorse   = RGB{0xd6, 0x45, 0x45} // player misses more than the field
	diffNeutral = RGB{0x4a, 0x4a, 0x55}
	diffBetter  = RGB{0x3f, 0xa3, 0x4d} // player misses less

	// NoDataColor marks a differential cell with no events on either
	// side; distinct from a genuine zero difference.
	NoDataColor = RGB{0x30, 0x30, 0x3a}
)

func lerp(a, b RGB, t float64) RGB {
	return RGB{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
	}
}

// HeatColor maps an intensity in [0,1] through the heat stops with
// linear RGB interpolation between adjacent stops.
func HeatColor(intensity float64) RGB {
	if intensity <= heatStops[0].at {
		return heatStops[0].color
	}
	last := heatStops[len(heatStops)-1]
	if intensity >= last.at {
		return last.color
	}
	for i := 1; i < len(heatStops); i++ {
		if intensity <= heatStops[i].at {
			lo, hi := heatStops[i-1], heatStops[i]
			t := (intensity - lo.at) / (hi.at - lo.at)
			return lerp(lo.color, hi.color, t)
		}
	}
	return last.color
}

// DiffColor maps a clamped differential score (±50) onto the diverging
// red(worse)-neutral-green(better) scale.
func DiffColor(score float64) RGB {
	if score > 50 {
		score = 50
	}
	if score < -50 {
		score = -50
	}
	if score < 0 {
		return lerp(diffNeutral, diffWorse, -score/50)
	}
	return lerp(diffNeutral, diffBetter, score/50)
}
