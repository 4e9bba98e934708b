package reco

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/stat"
)

type ReconstructedEnergy struct {
	Energy float64
	NTels  int
}

// EnergyEstimator follows a two-call contract: SetEventProperties
// registers the per-telescope inputs of the current event, Predict
// then combines them with the fitted geometry. Predict without a
// prior SetEventProperties fails with NotConfiguredError.
type EnergyEstimator interface {
	SetEventProperties(moments map[uint16]*HillasMoments, camTypes map[uint16]string, telX, telY map[uint16]float64, pointing HorizonCoord)
	Predict(shower *ReconstructedShower) (*ReconstructedEnergy, error)
}

// ScalingEnergyEstimator estimates the energy from the image
// amplitudes: each telescope converts its size to an energy through a
// per-camera response in photoelectrons per TeV, corrected for the
// light attenuation with impact distance, and the event energy is the
// size-weighted mean of the single-telescope estimates.
type ScalingEnergyEstimator struct {
	responses   map[string]float64
	scaleRadius float64

	hasEvent bool
	moments  map[uint16]*HillasMoments
	camTypes map[uint16]string
	telX     map[uint16]float64
	telY     map[uint16]float64
}

func NewScalingEnergyEstimator() *ScalingEnergyEstimator {
	return &ScalingEnergyEstimator{
		responses: map[string]float64{
			CameraLSTCam:    1200,
			CameraNectarCam: 400,
			CameraFlashCam:  350,
			CameraGCT:       100,
		},
		scaleRadius: 150,
	}
}

func (e *ScalingEnergyEstimator) SetEventProperties(moments map[uint16]*HillasMoments, camTypes map[uint16]string, telX, telY map[uint16]float64, pointing HorizonCoord) {
	e.moments = moments
	e.camTypes = camTypes
	e.telX = telX
	e.telY = telY
	e.hasEvent = true
}

func (e *ScalingEnergyEstimator) Predict(shower *ReconstructedShower) (*ReconstructedEnergy, error) {
	if !e.hasEvent {
		return nil, &NotConfiguredError{}
	}

	ids := maps.Keys(e.moments)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	estimates := make([]float64, 0, len(ids))
	weights := make([]float64, 0, len(ids))
	for _, telID := range ids {
		response, ok := e.responses[e.camTypes[telID]]
		if !ok {
			continue
		}
		m := e.moments[telID]
		impact := math.Hypot(e.telX[telID]-shower.CoreX, e.telY[telID]-shower.CoreY)
		estimates = append(estimates, m.Size/response*math.Exp(impact/e.scaleRadius))
		weights = append(weights, m.Size)
	}
	if len(estimates) == 0 {
		return nil, fmt.Errorf("no telescope with a known energy response")
	}

	return &ReconstructedEnergy{
		Energy: stat.Mean(estimates, weights),
		NTels:  len(estimates),
	}, nil
}
