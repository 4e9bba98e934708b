package reco

import (
	"fmt"
	"math"
	"sort"
)

// Reference camera layouts. Real pixel positions come from the run
// header; these generators produce the matching layouts for simulated
// runs and for exercising the geometry inference.

// HexPixelGrid lays out nPixels on a hexagonal grid with the given
// flat-to-flat spacing, keeping the pixels closest to the camera
// center.
func HexPixelGrid(nPixels int, spacing float64) ([]float64, []float64) {
	rings := 0
	for total := 1; total < nPixels; rings++ {
		total += 6 * (rings + 1)
	}

	x := make([]float64, 0, 1+3*rings*(rings+1))
	y := make([]float64, 0, 1+3*rings*(rings+1))
	for q := -rings; q <= rings; q++ {
		rMin := max(-rings, -q-rings)
		rMax := min(rings, -q+rings)
		for r := rMin; r <= rMax; r++ {
			x = append(x, spacing*(float64(q)+float64(r)/2))
			y = append(y, spacing*math.Sqrt(3)/2*float64(r))
		}
	}
	return trimToCenter(x, y, nPixels)
}

// SquarePixelGrid lays out nPixels on a square grid with the given
// spacing, keeping the pixels closest to the camera center.
func SquarePixelGrid(nPixels int, spacing float64) ([]float64, []float64) {
	side := int(math.Ceil(math.Sqrt(float64(nPixels))))
	x := make([]float64, 0, side*side)
	y := make([]float64, 0, side*side)
	offset := float64(side-1) / 2
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			x = append(x, spacing*(float64(i)-offset))
			y = append(y, spacing*(float64(j)-offset))
		}
	}
	return trimToCenter(x, y, nPixels)
}

// trimToCenter keeps the n pixels closest to the origin, breaking
// radius ties by polar angle so the result is deterministic.
func trimToCenter(x, y []float64, n int) ([]float64, []float64) {
	type pixel struct {
		x, y, r2, phi float64
	}
	pixels := make([]pixel, len(x))
	for i := range x {
		pixels[i] = pixel{x[i], y[i], x[i]*x[i] + y[i]*y[i], math.Atan2(y[i], x[i])}
	}
	sort.Slice(pixels, func(i, j int) bool {
		if pixels[i].r2 != pixels[j].r2 {
			return pixels[i].r2 < pixels[j].r2
		}
		return pixels[i].phi < pixels[j].phi
	})

	outX := make([]float64, n)
	outY := make([]float64, n)
	for i := 0; i < n; i++ {
		outX[i] = pixels[i].x
		outY[i] = pixels[i].y
	}
	return outX, outY
}

// ReferenceCamera builds the pixel layout and focal length of one of
// the known camera types.
func ReferenceCamera(camType string) ([]float64, []float64, float64, error) {
	for _, spec := range cameraTable {
		if spec.camType != camType {
			continue
		}
		var x, y []float64
		switch spec.shape {
		case ShapeSquare:
			x, y = SquarePixelGrid(spec.nPixels, spec.pixSpacing)
		default:
			x, y = HexPixelGrid(spec.nPixels, spec.pixSpacing)
		}
		return x, y, spec.focalLength, nil
	}
	return nil, nil, 0, fmt.Errorf("unknown camera type %q", camType)
}
