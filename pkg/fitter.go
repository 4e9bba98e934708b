package reco

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/mat"
)

// ReconstructedShower is the geometric stereo solution: arrival
// direction in the horizon frame and impact point in the tilted frame.
// The ground-frame core is filled in after the fit, once per event.
type ReconstructedShower struct {
	Alt         float64
	Az          float64
	CoreX       float64
	CoreY       float64
	GroundCoreX float64
	GroundCoreY float64
	NTels       int
}

// ShowerGeometryFitter predicts the shower geometry from the
// camera-frame moments of the selected telescopes and their per
// telescope pointings, given as azimuth and zenith angle in radians.
type ShowerGeometryFitter interface {
	Predict(moments map[uint16]*HillasMoments, instrument *InstrumentInfo, telAzimuth, telZenith map[uint16]float64) (*ReconstructedShower, error)
}

// AxisIntersectionFitter reconstructs the shower by intersecting the
// image axes of all selected telescopes: once in the nominal frame for
// the arrival direction, once in the tilted frame for the impact
// point. Both intersections weight each axis by its image amplitude.
type AxisIntersectionFitter struct {
	Registry *GeometryRegistry
}

func NewAxisIntersectionFitter(registry *GeometryRegistry) *AxisIntersectionFitter {
	return &AxisIntersectionFitter{Registry: registry}
}

func (f *AxisIntersectionFitter) Predict(moments map[uint16]*HillasMoments, instrument *InstrumentInfo, telAzimuth, telZenith map[uint16]float64) (*ReconstructedShower, error) {
	if len(moments) < 2 {
		return nil, fmt.Errorf("axis intersection needs at least two telescopes, got %d", len(moments))
	}

	ids := maps.Keys(moments)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	arrayPointing := HorizonCoord{
		Alt: math.Pi/2 - telZenith[ids[0]],
		Az:  telAzimuth[ids[0]],
	}
	tilt := NewTiltedTransform(arrayPointing)

	nomX := make([]float64, 0, len(ids))
	nomY := make([]float64, 0, len(ids))
	tiltedX := make([]float64, 0, len(ids))
	tiltedY := make([]float64, 0, len(ids))
	psi := make([]float64, 0, len(ids))
	weights := make([]float64, 0, len(ids))

	for _, telID := range ids {
		telescope, ok := instrument.Telescopes[telID]
		if !ok {
			return nil, fmt.Errorf("telescope %d not in run header", telID)
		}
		geom, err := f.Registry.GetGeometry(telID, telescope.PixelX, telescope.PixelY, telescope.FocalLength)
		if err != nil {
			return nil, fmt.Errorf("fitting telescope %d: %w", telID, err)
		}

		m := moments[telID]
		cosRot := math.Cos(geom.CamRotation)
		sinRot := math.Sin(geom.CamRotation)
		offsetX := (m.CenX*cosRot + m.CenY*sinRot) / geom.FocalLength
		offsetY := (-m.CenX*sinRot + m.CenY*cosRot) / geom.FocalLength

		telPointing := HorizonCoord{
			Alt: math.Pi/2 - telZenith[telID],
			Az:  telAzimuth[telID],
		}
		if telPointing != arrayPointing {
			offsetX, offsetY = HorizonToOffset(OffsetToHorizon(offsetX, offsetY, telPointing), arrayPointing)
		}

		tx, ty := tilt.ToTilted(telescope.TelPosX, telescope.TelPosY, telescope.TelPosZ)

		nomX = append(nomX, offsetX)
		nomY = append(nomY, offsetY)
		tiltedX = append(tiltedX, tx)
		tiltedY = append(tiltedY, ty)
		psi = append(psi, m.Psi-geom.CamRotation)
		weights = append(weights, m.Size)
	}

	dirX, dirY, err := intersectLines(nomX, nomY, psi, weights)
	if err != nil {
		return nil, fmt.Errorf("direction fit: %w", err)
	}
	coreX, coreY, err := intersectLines(tiltedX, tiltedY, psi, weights)
	if err != nil {
		return nil, fmt.Errorf("core fit: %w", err)
	}

	direction := OffsetToHorizon(dirX, dirY, arrayPointing)
	if math.IsNaN(direction.Alt) || math.IsNaN(direction.Az) || math.IsNaN(coreX) || math.IsNaN(coreY) {
		return nil, fmt.Errorf("axis intersection produced NaN")
	}

	return &ReconstructedShower{
		Alt:   direction.Alt,
		Az:    direction.Az,
		CoreX: coreX,
		CoreY: coreY,
		NTels: len(moments),
	}, nil
}

// intersectLines solves the weighted least-squares intersection of
// lines through (anchorX[i], anchorY[i]) at angle psi[i]. Each line
// contributes one equation -sin(psi)*x + cos(psi)*y = -sin(psi)*ax +
// cos(psi)*ay, scaled by the square root of its weight.
func intersectLines(anchorX, anchorY, psi, weights []float64) (float64, float64, error) {
	n := len(anchorX)
	system := mat.NewDense(n, 2, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		w := math.Sqrt(weights[i])
		sinPsi, cosPsi := math.Sincos(psi[i])
		system.Set(i, 0, -w*sinPsi)
		system.Set(i, 1, w*cosPsi)
		rhs.SetVec(i, w*(-sinPsi*anchorX[i]+cosPsi*anchorY[i]))
	}

	var qr mat.QR
	qr.Factorize(system)
	var solution mat.VecDense
	if err := qr.SolveVecTo(&solution, false, rhs); err != nil {
		return 0, 0, fmt.Errorf("solving axis intersection: %w", err)
	}
	return solution.AtVec(0), solution.AtVec(1), nil
}
