package reco

// TelescopeCalibration holds the per-telescope conversion constants
// between raw ADC counts and photoelectrons. A single set per telescope
// is enough here since the simulated electronics are uniform across a
// camera.
type TelescopeCalibration struct {
	PedestalHG    float64 `db:"PedestalHG"`
	PedestalLG    float64 `db:"PedestalLG"`
	GainHG        float64 `db:"GainHG"`
	GainLG        float64 `db:"GainLG"`
	FlatField     float64 `db:"FlatField"`
	SaturationADC uint16  `db:"SaturationADC"`
}

// DefaultCalibration matches the nominal electronics settings used by
// the event generator.
func DefaultCalibration() *TelescopeCalibration {
	return &TelescopeCalibration{
		PedestalHG:    400,
		PedestalLG:    400,
		GainHG:        0.05,
		GainLG:        0.9,
		FlatField:     1.0,
		SaturationADC: 3500,
	}
}

type CalibrationMap map[uint16]*TelescopeCalibration

// For returns the constants for a telescope, falling back to the
// defaults when the database carries no entry for it.
func (m CalibrationMap) For(telID uint16) *TelescopeCalibration {
	if m != nil {
		if calib, ok := m[telID]; ok {
			return calib
		}
	}
	return DefaultCalibration()
}

// R1Calibrator converts raw ADC samples to photoelectron charges,
// keeping both gain channels.
type R1Calibrator struct {
	Constants CalibrationMap
}

func (c *R1Calibrator) Calibrate(event *EventType) {
	for telID, raw := range event.RawCharges {
		calib := c.Constants.For(telID)
		charges := &GainCharges{
			HiGain: make([]float64, len(raw.HiGain)),
		}
		for pix, adc := range raw.HiGain {
			charges.HiGain[pix] = (float64(adc) - calib.PedestalHG) * calib.GainHG
		}
		if len(raw.LoGain) > 0 {
			charges.LoGain = make([]float64, len(raw.LoGain))
			for pix, adc := range raw.LoGain {
				charges.LoGain[pix] = (float64(adc) - calib.PedestalLG) * calib.GainLG
			}
		}
		event.PeCharges[telID] = charges
	}
}

// DL0Reducer selects one gain channel per pixel. The high gain channel
// is used unless its raw sample saturated, in which case the low gain
// value takes over. Cameras read out with a single channel always use
// it.
type DL0Reducer struct {
	Constants CalibrationMap
}

func (r *DL0Reducer) Reduce(event *EventType) {
	for telID, charges := range event.PeCharges {
		calib := r.Constants.For(telID)
		raw := event.RawCharges[telID]
		image := make([]float64, len(charges.HiGain))
		for pix := range charges.HiGain {
			image[pix] = charges.HiGain[pix]
			if len(charges.LoGain) > 0 && raw.HiGain[pix] > calib.SaturationADC {
				image[pix] = charges.LoGain[pix]
			}
		}
		event.Images[telID] = image
	}
}

// DL1Calibrator applies the flat-field correction in place.
type DL1Calibrator struct {
	Constants CalibrationMap
}

func (c *DL1Calibrator) Calibrate(event *EventType) {
	for telID, image := range event.Images {
		calib := c.Constants.For(telID)
		for pix := range image {
			image[pix] *= calib.FlatField
		}
	}
}
