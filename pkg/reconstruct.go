package reco

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"
)

// EventReconstructionInput collects the per-telescope quantities of
// the telescopes that passed preselection, keyed by telescope id.
// Pixel coordinates and areas refer to the nominal frame, telescope
// positions to the tilted frame.
type EventReconstructionInput struct {
	NomPixelX  map[uint16][]float64
	NomPixelY  map[uint16][]float64
	PixelArea  map[uint16][]float64
	Signal     map[uint16][]float64
	TelX       map[uint16]float64
	TelY       map[uint16]float64
	TelAzimuth map[uint16]float64
	TelZenith  map[uint16]float64
	CamType    map[uint16]string
	CamMoments map[uint16]*HillasMoments
	NomMoments map[uint16]*HillasMoments
}

func NewEventReconstructionInput() *EventReconstructionInput {
	return &EventReconstructionInput{
		NomPixelX:  make(map[uint16][]float64),
		NomPixelY:  make(map[uint16][]float64),
		PixelArea:  make(map[uint16][]float64),
		Signal:     make(map[uint16][]float64),
		TelX:       make(map[uint16]float64),
		TelY:       make(map[uint16]float64),
		TelAzimuth: make(map[uint16]float64),
		TelZenith:  make(map[uint16]float64),
		CamType:    make(map[uint16]string),
		CamMoments: make(map[uint16]*HillasMoments),
		NomMoments: make(map[uint16]*HillasMoments),
	}
}

// ReconstructedEvent is one output row: the fitted shower next to the
// simulated truth it should be compared against.
type ReconstructedEvent struct {
	EventID     uint32
	Timestamp   uint64
	RecoAlt     float64
	RecoAz      float64
	RecoEnergy  float64
	TrueAlt     float64
	TrueAz      float64
	TrueEnergy  float64
	NTelescopes int
}

// EventReconstructor runs the per-event pipeline: image reduction and
// selection per telescope, then the stereoscopic fit and the energy
// estimate over the surviving set.
type EventReconstructor struct {
	Instrument *InstrumentInfo
	Registry   *GeometryRegistry
	Cuts       CutTable
	Reducer    *ImageReducer
	Fitter     ShowerGeometryFitter
	Energy     EnergyEstimator
}

func NewEventReconstructor(instrument *InstrumentInfo, registry *GeometryRegistry, cuts CutTable, fitter ShowerGeometryFitter, energy EnergyEstimator) *EventReconstructor {
	return &EventReconstructor{
		Instrument: instrument,
		Registry:   registry,
		Cuts:       cuts,
		Reducer:    NewImageReducer(),
		Fitter:     fitter,
		Energy:     energy,
	}
}

// ReconstructEvent turns one calibrated event into an output row. A
// nil row with a nil error means the event fell below the stereo
// multiplicity or the fit did not converge; only structural problems
// (unknown camera, missing cuts, inconsistent run header) surface as
// errors.
func (r *EventReconstructor) ReconstructEvent(event *EventType) (*ReconstructedEvent, error) {
	tilt := NewTiltedTransform(event.Pointing)
	input := NewEventReconstructionInput()

	ids := maps.Keys(event.Images)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, telID := range ids {
		image := event.Images[telID]
		telescope, ok := r.Instrument.Telescopes[telID]
		if !ok {
			return nil, fmt.Errorf("telescope %d has data but no run header entry", telID)
		}
		geom, err := r.Registry.GetGeometry(telID, telescope.PixelX, telescope.PixelY, telescope.FocalLength)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", event.EventID, err)
		}
		cuts, err := r.Cuts.CutsFor(geom.CamType)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", event.EventID, err)
		}

		nomX, nomY := CameraToNominal(geom.PixelX, geom.PixelY, geom.FocalLength, geom.CamRotation, event.Pointing, event.Pointing)

		reduced, err := r.Reducer.Reduce(geom, image, nomX, nomY, cuts.TailCuts)
		if err != nil {
			var parErr *ParameterizationError
			if errors.As(err, &parErr) {
				if configuration.Verbosity > 1 {
					message := fmt.Sprintf("Event %d telescope %d: %v", event.EventID, telID, err)
					logger.Info(message, "reconstruct")
				}
				continue
			}
			return nil, fmt.Errorf("event %d telescope %d: %w", event.EventID, telID, err)
		}
		if !Preselect(reduced.NomMoments, cuts) {
			continue
		}

		tx, ty := tilt.ToTilted(telescope.TelPosX, telescope.TelPosY, telescope.TelPosZ)

		input.NomPixelX[telID] = reduced.NomX
		input.NomPixelY[telID] = reduced.NomY
		input.PixelArea[telID] = reduced.Area
		input.Signal[telID] = reduced.Signal
		input.TelX[telID] = tx
		input.TelY[telID] = ty
		input.TelAzimuth[telID] = event.Pointing.Az
		input.TelZenith[telID] = math.Pi/2 - event.Pointing.Alt
		input.CamType[telID] = geom.CamType
		input.CamMoments[telID] = reduced.CamMoments
		input.NomMoments[telID] = reduced.NomMoments
	}

	if len(input.CamMoments) < 2 {
		return nil, nil
	}

	shower, err := r.Fitter.Predict(input.CamMoments, r.Instrument, input.TelAzimuth, input.TelZenith)
	if err != nil {
		logger.Error(fmt.Sprintf("Geometry fit failed on event %d: %v", event.EventID, err))
		return nil, nil
	}
	shower.GroundCoreX, shower.GroundCoreY, _ = tilt.ToGround(shower.CoreX, shower.CoreY)
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Event %d: alt %.4f az %.4f core (%.1f, %.1f) m ground (%.1f, %.1f) m",
			event.EventID, shower.Alt, shower.Az, shower.CoreX, shower.CoreY, shower.GroundCoreX, shower.GroundCoreY)
		logger.Info(message, "reconstruct")
	}

	r.Energy.SetEventProperties(input.NomMoments, input.CamType, input.TelX, input.TelY, event.Pointing)
	energy, err := r.Energy.Predict(shower)
	if err != nil {
		logger.Error(fmt.Sprintf("Energy estimate failed on event %d: %v", event.EventID, err))
		return nil, nil
	}

	return &ReconstructedEvent{
		EventID:     event.EventID,
		Timestamp:   event.Timestamp,
		RecoAlt:     shower.Alt,
		RecoAz:      shower.Az,
		RecoEnergy:  energy.Energy,
		TrueAlt:     event.MC.Alt,
		TrueAz:      event.MC.Az,
		TrueEnergy:  event.MC.Energy,
		NTelescopes: shower.NTels,
	}, nil
}
