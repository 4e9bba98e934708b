package reco

import (
	"fmt"
	"math"
)

// HillasMoments is the second-moment ellipse description of a shower
// image: total amplitude, centroid, axis lengths, orientation and the
// longitudinal higher moments. Lengths and positions carry the unit of
// the input coordinates.
type HillasMoments struct {
	Size     float64
	CenX     float64
	CenY     float64
	Length   float64
	Width    float64
	Psi      float64
	R        float64
	Phi      float64
	Skewness float64
	Kurtosis float64
	Unit     UnitKind
}

// HillasParameters computes amplitude-weighted image moments over the
// given pixel coordinates. Degenerate images (fewer than two pixels
// with signal, vanishing amplitude, vanishing variance) produce a
// ParameterizationError.
func HillasParameters(x, y, image []float64, unit UnitKind) (*HillasMoments, error) {
	if len(x) != len(y) || len(x) != len(image) {
		return nil, fmt.Errorf("coordinate and image lengths differ: %d, %d, %d", len(x), len(y), len(image))
	}

	size := 0.
	signalPixels := 0
	for _, w := range image {
		size += w
		if w > 0 {
			signalPixels++
		}
	}
	if size <= 0 {
		return nil, &ParameterizationError{Reason: "image amplitude is zero"}
	}
	if signalPixels < 2 {
		return nil, &ParameterizationError{Reason: "fewer than two pixels with signal"}
	}

	cenX := 0.
	cenY := 0.
	for i, w := range image {
		cenX += w * x[i]
		cenY += w * y[i]
	}
	cenX /= size
	cenY /= size

	sxx := 0.
	syy := 0.
	sxy := 0.
	for i, w := range image {
		dx := x[i] - cenX
		dy := y[i] - cenY
		sxx += w * dx * dx
		syy += w * dy * dy
		sxy += w * dx * dy
	}
	sxx /= size
	syy /= size
	sxy /= size

	common := (sxx + syy) / 2
	diff := (sxx - syy) / 2
	delta := math.Sqrt(diff*diff + sxy*sxy)
	major := common + delta
	minor := common - delta
	if major <= 0 {
		return nil, &ParameterizationError{Reason: "image variance is zero"}
	}
	// A minor variance below rounding noise is an exactly collinear image.
	if minor < major*1e-12 {
		minor = 0
	}

	psi := 0.5 * math.Atan2(2*sxy, sxx-syy)
	length := math.Sqrt(major)
	width := 0.
	if minor > 0 {
		width = math.Sqrt(minor)
	}

	cosPsi := math.Cos(psi)
	sinPsi := math.Sin(psi)
	m3 := 0.
	m4 := 0.
	for i, w := range image {
		longitudinal := (x[i]-cenX)*cosPsi + (y[i]-cenY)*sinPsi
		m3 += w * longitudinal * longitudinal * longitudinal
		m4 += w * longitudinal * longitudinal * longitudinal * longitudinal
	}
	m3 /= size
	m4 /= size

	moments := &HillasMoments{
		Size:     size,
		CenX:     cenX,
		CenY:     cenY,
		Length:   length,
		Width:    width,
		Psi:      psi,
		R:        math.Hypot(cenX, cenY),
		Phi:      math.Atan2(cenY, cenX),
		Skewness: m3 / (length * length * length),
		Kurtosis: m4 / (length * length * length * length),
		Unit:     unit,
	}
	return moments, nil
}
