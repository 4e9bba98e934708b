package main

import (
	"fmt"
	"math"
	"math/rand"

	reco "stereoreco/pkg"
)

// Light yield of the toy shower model, photoelectrons per TeV at the
// core, and the attenuation radius of the light pool.
var responses = map[string]float64{
	reco.CameraLSTCam:    1200,
	reco.CameraNectarCam: 400,
	reco.CameraFlashCam:  350,
	reco.CameraGCT:       100,
}

const (
	lightScaleRadius = 150.
	imageSigmaLong   = 0.0021
	imageSigmaTrans  = 0.0007
	coneRadius       = 1.0 * reco.DegToRad
	coreRadius       = 300.
	flasherCharge    = 50.
	maxADC           = 4095
)

// BuildArray places the requested telescopes on a ring around the
// array center, reading pixel layouts and optics from the reference
// cameras.
func BuildArray(nLST, nNectar, nFlash, nGCT int, ringRadius float64) (*reco.InstrumentInfo, error) {
	requested := []struct {
		camType string
		count   int
	}{
		{reco.CameraLSTCam, nLST},
		{reco.CameraNectarCam, nNectar},
		{reco.CameraFlashCam, nFlash},
		{reco.CameraGCT, nGCT},
	}

	total := nLST + nNectar + nFlash + nGCT
	if total < 2 {
		return nil, fmt.Errorf("array needs at least two telescopes, got %d", total)
	}

	instrument := &reco.InstrumentInfo{
		Telescopes: make(map[uint16]*reco.TelescopeInstrument),
	}
	telID := uint16(1)
	placed := 0
	for _, req := range requested {
		for i := 0; i < req.count; i++ {
			pixelX, pixelY, focalLength, err := reco.ReferenceCamera(req.camType)
			if err != nil {
				return nil, err
			}
			angle := 2 * math.Pi * float64(placed) / float64(total)
			instrument.Telescopes[telID] = &reco.TelescopeInstrument{
				TelID:       telID,
				NPixels:     len(pixelX),
				FocalLength: focalLength,
				PixelX:      pixelX,
				PixelY:      pixelY,
				TelPosX:     ringRadius * math.Cos(angle),
				TelPosY:     ringRadius * math.Sin(angle),
				TelPosZ:     0,
			}
			telID++
			placed++
		}
	}
	return instrument, nil
}

type ShowerGenerator struct {
	rng        *rand.Rand
	instrument *reco.InstrumentInfo
	registry   *reco.GeometryRegistry
	pointing   reco.HorizonCoord
	tilt       reco.TiltedTransform
	calib      *reco.TelescopeCalibration
	runNumber  uint32
	emin       float64
	emax       float64
	noiseSigma float64
}

func NewShowerGenerator(seed int64, instrument *reco.InstrumentInfo, runNumber uint32,
	pointing reco.HorizonCoord, emin, emax, noiseSigma float64) *ShowerGenerator {
	return &ShowerGenerator{
		rng:        rand.New(rand.NewSource(seed)),
		instrument: instrument,
		registry:   reco.NewGeometryRegistry(),
		pointing:   pointing,
		tilt:       reco.NewTiltedTransform(pointing),
		calib:      reco.DefaultCalibration(),
		runNumber:  runNumber,
		emin:       emin,
		emax:       emax,
		noiseSigma: noiseSigma,
	}
}

// sampleEnergy draws from a power law with spectral index -2 by
// inverting its cumulative distribution.
func (g *ShowerGenerator) sampleEnergy() float64 {
	u := g.rng.Float64()
	return 1 / (1/g.emin - u*(1/g.emin-1/g.emax))
}

// GenerateEvent synthesizes one air shower: power-law energy, arrival
// direction in a cone around the pointing, core on a disk around the
// array center, and per-telescope images as elliptical blobs whose
// major axis points from the source position along the core-telescope
// direction.
func (g *ShowerGenerator) GenerateEvent(eventID uint32, timestamp uint64) (*reco.EventType, error) {
	energy := g.sampleEnergy()

	r := coneRadius * math.Sqrt(g.rng.Float64())
	phi := 2 * math.Pi * g.rng.Float64()
	trueDirection := reco.OffsetToHorizon(r*math.Cos(phi), r*math.Sin(phi), g.pointing)

	cr := coreRadius * math.Sqrt(g.rng.Float64())
	cphi := 2 * math.Pi * g.rng.Float64()
	coreX := cr * math.Cos(cphi)
	coreY := cr * math.Sin(cphi)
	coreTiltX, coreTiltY := g.tilt.ToTilted(coreX, coreY, 0)

	srcX, srcY := reco.HorizonToOffset(trueDirection, g.pointing)

	event := &reco.EventType{
		RunNumber: g.runNumber,
		EventID:   eventID,
		Timestamp: timestamp,
		Pointing:  g.pointing,
		MC: reco.ShowerTruth{
			Alt:    trueDirection.Alt,
			Az:     trueDirection.Az,
			Energy: energy,
			CoreX:  coreX,
			CoreY:  coreY,
		},
		RawCharges: make(map[uint16]*reco.RawTelescopeData),
		PeCharges:  make(map[uint16]*reco.GainCharges),
		Images:     make(map[uint16][]float64),
	}

	for telID, telescope := range g.instrument.Telescopes {
		geom, err := g.registry.GetGeometry(telID, telescope.PixelX, telescope.PixelY, telescope.FocalLength)
		if err != nil {
			return nil, err
		}

		tx, ty := g.tilt.ToTilted(telescope.TelPosX, telescope.TelPosY, telescope.TelPosZ)
		impact := math.Hypot(tx-coreTiltX, ty-coreTiltY)
		ux, uy := 1.0, 0.0
		if impact > 0 {
			ux = (tx - coreTiltX) / impact
			uy = (ty - coreTiltY) / impact
		}

		size := responses[geom.CamType] * energy * math.Exp(-impact/lightScaleRadius)
		size *= math.Exp(0.1 * g.rng.NormFloat64())

		displacement := 0.010 * (0.5 + impact/(2*lightScaleRadius))
		centroidX := srcX + displacement*ux
		centroidY := srcY + displacement*uy

		nomX, nomY := reco.CameraToNominal(geom.PixelX, geom.PixelY, geom.FocalLength, geom.CamRotation, g.pointing, g.pointing)
		charges := g.ellipseCharges(nomX, nomY, centroidX, centroidY, ux, uy, size)
		event.RawCharges[telID] = g.digitize(charges)
	}
	return event, nil
}

// GenerateCalibrationEvent synthesizes a flat-field flasher event:
// the same charge in every pixel of every camera.
func (g *ShowerGenerator) GenerateCalibrationEvent(eventID uint32, timestamp uint64) *reco.EventType {
	event := &reco.EventType{
		RunNumber:  g.runNumber,
		EventID:    eventID,
		Timestamp:  timestamp,
		Pointing:   g.pointing,
		RawCharges: make(map[uint16]*reco.RawTelescopeData),
		PeCharges:  make(map[uint16]*reco.GainCharges),
		Images:     make(map[uint16][]float64),
	}
	for telID, telescope := range g.instrument.Telescopes {
		charges := make([]float64, telescope.NPixels)
		for pix := range charges {
			charges[pix] = flasherCharge + g.noiseSigma*g.rng.NormFloat64()
		}
		event.RawCharges[telID] = g.digitize(charges)
	}
	return event
}

// ellipseCharges distributes size photoelectrons over the pixels with
// a two dimensional gaussian aligned with (ux, uy).
func (g *ShowerGenerator) ellipseCharges(nomX, nomY []float64, centroidX, centroidY, ux, uy, size float64) []float64 {
	weights := make([]float64, len(nomX))
	total := 0.
	for pix := range nomX {
		dx := nomX[pix] - centroidX
		dy := nomY[pix] - centroidY
		l := dx*ux + dy*uy
		w := -dx*uy + dy*ux
		weights[pix] = math.Exp(-0.5 * (l*l/(imageSigmaLong*imageSigmaLong) + w*w/(imageSigmaTrans*imageSigmaTrans)))
		total += weights[pix]
	}

	charges := make([]float64, len(nomX))
	for pix := range charges {
		q := 0.
		if total > 0 {
			q = size * weights[pix] / total
		}
		if q > 0 {
			q += math.Sqrt(q) * g.rng.NormFloat64()
		}
		charges[pix] = q + g.noiseSigma*g.rng.NormFloat64()
	}
	return charges
}

// digitize converts photoelectron charges back to raw ADC samples in
// both gain channels, clipping at the 12 bit range.
func (g *ShowerGenerator) digitize(charges []float64) *reco.RawTelescopeData {
	data := &reco.RawTelescopeData{
		NPixels: len(charges),
		HiGain:  make([]uint16, len(charges)),
		LoGain:  make([]uint16, len(charges)),
	}
	for pix, q := range charges {
		data.HiGain[pix] = clampADC(g.calib.PedestalHG + q/g.calib.GainHG)
		data.LoGain[pix] = clampADC(g.calib.PedestalLG + q/g.calib.GainLG)
	}
	return data
}

func clampADC(value float64) uint16 {
	if value < 0 {
		return 0
	}
	if value > maxADC {
		return maxADC
	}
	return uint16(value)
}
