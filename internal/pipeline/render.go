package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
)

const (
	imageSize  = 1000
	markerSize = 2
)

var backgroundColour = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}

type rgb struct {
	r, g, b float64
}

// colormap anchor points, interpolated linearly between stops.
var magma = []rgb{
	{0.001, 0.000, 0.014},
	{0.159, 0.068, 0.352},
	{0.445, 0.122, 0.506},
	{0.716, 0.215, 0.475},
	{0.944, 0.378, 0.365},
	{0.997, 0.682, 0.466},
	{0.987, 0.991, 0.750},
}

var viridisReversed = []rgb{
	{0.993, 0.906, 0.144},
	{0.626, 0.854, 0.223},
	{0.288, 0.758, 0.428},
	{0.127, 0.567, 0.551},
	{0.207, 0.372, 0.553},
	{0.283, 0.141, 0.458},
	{0.267, 0.005, 0.329},
}

func sample(cm []rgb, t float64) color.RGBA {
	if t <= 0 {
		return toRGBA(cm[0])
	}
	if t >= 1 {
		return toRGBA(cm[len(cm)-1])
	}
	pos := t * float64(len(cm)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := cm[i], cm[i+1]
	return toRGBA(rgb{
		r: a.r + (b.r-a.r)*frac,
		g: a.g + (b.g-a.g)*frac,
		b: a.b + (b.b-a.b)*frac,
	})
}

func toRGBA(c rgb) color.RGBA {
	return color.RGBA{
		R: uint8(math.Round(c.r * 255)),
		G: uint8(math.Round(c.g * 255)),
		B: uint8(math.Round(c.b * 255)),
		A: 0xff,
	}
}

// renderScatter draws the network nodes colored by value on a dark square
// canvas and returns the encoded PNG. The plot window spans extent meters in
// every direction from the analysis center.
func renderScatter(points []point, values []float64, extent float64, cm []rgb) ([]byte, error) {
	if len(points) == 0 || len(points) != len(values) {
		return nil, errors.New("mismatched points and values")
	}

	low, high := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	span := high - low
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, imageSize, imageSize))
	for x := 0; x < imageSize; x++ {
		for y := 0; y < imageSize; y++ {
			img.SetRGBA(x, y, backgroundColour)
		}
	}

	scale := float64(imageSize) / (2 * extent)
	for i, p := range points {
		if math.Abs(p.X) > extent || math.Abs(p.Y) > extent {
			continue
		}
		px := int((p.X + extent) * scale)
		// image rows grow downwards, north is up
		py := int((extent - p.Y) * scale)

		c := sample(cm, (values[i]-low)/span)
		for dx := 0; dx < markerSize; dx++ {
			for dy := 0; dy < markerSize; dy++ {
				if px+dx < imageSize && py+dy < imageSize {
					img.SetRGBA(px+dx, py+dy, c)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
