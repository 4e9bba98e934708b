package reco

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crossingEvent builds a consistent three-telescope event: image axes
// that intersect in a chosen source position in the nominal frame and
// a chosen impact point in the tilted frame. Camera centroids and
// orientations are derived backwards through the camera rotation, so a
// correct fit must recover the inputs.
func crossingEvent(t *testing.T, pointing HorizonCoord, srcX, srcY, coreX, coreY float64) (map[uint16]*HillasMoments, *InstrumentInfo, map[uint16]float64, map[uint16]float64) {
	t.Helper()

	x, y, focal, err := ReferenceCamera(CameraLSTCam)
	require.NoError(t, err)
	rot := 100.893 * DegToRad

	groundPos := [][3]float64{
		{0, 0, 0},
		{150, 0, 0},
		{0, 120, 0},
	}
	sizes := []float64{200, 250, 300}
	displacements := []float64{0.002, 0.003, 0.0025}

	tilt := NewTiltedTransform(pointing)
	moments := make(map[uint16]*HillasMoments)
	telescopes := make(map[uint16]*TelescopeInstrument)
	telAzimuth := make(map[uint16]float64)
	telZenith := make(map[uint16]float64)

	for i, pos := range groundPos {
		telID := uint16(i + 1)
		tx, ty := tilt.ToTilted(pos[0], pos[1], pos[2])

		// Axis orientation through the impact point in the tilted
		// frame; the same angle anchors the nominal-frame axis on the
		// source.
		psi := math.Atan2(coreY-ty, coreX-tx)
		cenNomX := srcX - displacements[i]*math.Cos(psi)
		cenNomY := srcY - displacements[i]*math.Sin(psi)

		// Undo the camera rotation and the focal scaling the fitter
		// will apply.
		cenCamX := focal * (cenNomX*math.Cos(rot) - cenNomY*math.Sin(rot))
		cenCamY := focal * (cenNomX*math.Sin(rot) + cenNomY*math.Cos(rot))

		moments[telID] = &HillasMoments{
			Size: sizes[i],
			CenX: cenCamX,
			CenY: cenCamY,
			Psi:  psi + rot,
			Unit: UnitMeter,
		}
		telescopes[telID] = &TelescopeInstrument{
			TelID:       telID,
			NPixels:     len(x),
			FocalLength: focal,
			PixelX:      x,
			PixelY:      y,
			TelPosX:     pos[0],
			TelPosY:     pos[1],
			TelPosZ:     pos[2],
		}
		telAzimuth[telID] = pointing.Az
		telZenith[telID] = math.Pi/2 - pointing.Alt
	}

	instrument := &InstrumentInfo{RunNumber: 1, Telescopes: telescopes}
	return moments, instrument, telAzimuth, telZenith
}

func TestAxisIntersectionFitter(t *testing.T) {
	pointing := HorizonCoord{Alt: 70 * DegToRad, Az: 0}
	srcX, srcY := 0.01, 0.005
	coreX, coreY := 50., -30.

	moments, instrument, telAz, telZen := crossingEvent(t, pointing, srcX, srcY, coreX, coreY)

	fitter := NewAxisIntersectionFitter(NewGeometryRegistry())
	shower, err := fitter.Predict(moments, instrument, telAz, telZen)
	require.NoError(t, err)

	want := OffsetToHorizon(srcX, srcY, pointing)
	assert.InDelta(t, want.Alt, shower.Alt, 1e-9)
	assert.InDelta(t, want.Az, shower.Az, 1e-9)
	assert.InDelta(t, coreX, shower.CoreX, 1e-6)
	assert.InDelta(t, coreY, shower.CoreY, 1e-6)
	assert.Equal(t, 3, shower.NTels)
}

func TestAxisIntersectionFitterParallelAxes(t *testing.T) {
	pointing := HorizonCoord{Alt: 70 * DegToRad, Az: 0}
	moments, instrument, telAz, telZen := crossingEvent(t, pointing, 0.01, 0.005, 50, -30)

	// Two telescopes with identical axis orientation give no crossing.
	delete(moments, 3)
	delete(instrument.Telescopes, 3)
	moments[2].Psi = moments[1].Psi

	fitter := NewAxisIntersectionFitter(NewGeometryRegistry())
	shower, err := fitter.Predict(moments, instrument, telAz, telZen)
	assert.Error(t, err)
	assert.Nil(t, shower)
}

func TestAxisIntersectionFitterNeedsTwoTelescopes(t *testing.T) {
	pointing := HorizonCoord{Alt: 70 * DegToRad, Az: 0}
	moments, instrument, telAz, telZen := crossingEvent(t, pointing, 0.01, 0.005, 50, -30)
	delete(moments, 2)
	delete(moments, 3)

	fitter := NewAxisIntersectionFitter(NewGeometryRegistry())
	_, err := fitter.Predict(moments, instrument, telAz, telZen)
	assert.Error(t, err)
}

func TestAxisIntersectionFitterMissingTelescope(t *testing.T) {
	pointing := HorizonCoord{Alt: 70 * DegToRad, Az: 0}
	moments, instrument, telAz, telZen := crossingEvent(t, pointing, 0.01, 0.005, 50, -30)
	delete(instrument.Telescopes, 2)

	fitter := NewAxisIntersectionFitter(NewGeometryRegistry())
	_, err := fitter.Predict(moments, instrument, telAz, telZen)
	assert.Error(t, err)
}

func TestIntersectLines(t *testing.T) {
	// A horizontal line through (0, 1) and a vertical line through
	// (1, 0) cross at (1, 1), whatever the weights.
	x, y, err := intersectLines(
		[]float64{0, 1},
		[]float64{1, 0},
		[]float64{0, math.Pi / 2},
		[]float64{1, 4},
	)
	require.NoError(t, err)
	assert.InDelta(t, 1, x, 1e-12)
	assert.InDelta(t, 1, y, 1e-12)
}
