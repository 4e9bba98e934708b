package reco

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func calibEvent() *EventType {
	return &EventType{
		EventID:    1,
		RawCharges: make(map[uint16]*RawTelescopeData),
		PeCharges:  make(map[uint16]*GainCharges),
		Images:     make(map[uint16][]float64),
	}
}

func TestR1Calibration(t *testing.T) {
	event := calibEvent()
	event.RawCharges[1] = &RawTelescopeData{
		NPixels: 3,
		HiGain:  []uint16{400, 420, 500},
		LoGain:  []uint16{400, 500, 900},
	}

	calibrator := &R1Calibrator{Constants: nil}
	calibrator.Calibrate(event)

	charges := event.PeCharges[1]
	wantHi := []float64{0, 1, 5}
	wantLo := []float64{0, 90, 450}
	for pix := range wantHi {
		if math.Abs(charges.HiGain[pix]-wantHi[pix]) > 1e-9 {
			t.Errorf("high gain pixel %d = %v, want %v", pix, charges.HiGain[pix], wantHi[pix])
		}
		if math.Abs(charges.LoGain[pix]-wantLo[pix]) > 1e-9 {
			t.Errorf("low gain pixel %d = %v, want %v", pix, charges.LoGain[pix], wantLo[pix])
		}
	}
}

func TestR1CalibrationSingleGain(t *testing.T) {
	event := calibEvent()
	event.RawCharges[1] = &RawTelescopeData{NPixels: 2, HiGain: []uint16{400, 440}}

	calibrator := &R1Calibrator{}
	calibrator.Calibrate(event)

	charges := event.PeCharges[1]
	if charges.LoGain != nil {
		t.Errorf("low gain channel appeared out of nowhere: %v", charges.LoGain)
	}
	if math.Abs(charges.HiGain[1]-2) > 1e-9 {
		t.Errorf("high gain pixel 1 = %v, want 2", charges.HiGain[1])
	}
}

func TestDL0GainSelection(t *testing.T) {
	event := calibEvent()
	event.RawCharges[1] = &RawTelescopeData{
		NPixels: 3,
		HiGain:  []uint16{3000, 3500, 3600},
		LoGain:  []uint16{0, 0, 0},
	}
	event.PeCharges[1] = &GainCharges{
		HiGain: []float64{1, 2, 3},
		LoGain: []float64{10, 20, 30},
	}

	reducer := &DL0Reducer{}
	reducer.Reduce(event)

	// The low gain channel takes over only above the saturation level,
	// a raw sample exactly at it still counts as clean.
	want := []float64{1, 2, 30}
	if diff := cmp.Diff(want, event.Images[1]); diff != "" {
		t.Errorf("gain-selected image mismatch (-want +got):\n%s", diff)
	}
}

func TestDL0SingleGainKeepsHighGain(t *testing.T) {
	event := calibEvent()
	event.RawCharges[1] = &RawTelescopeData{NPixels: 2, HiGain: []uint16{4000, 4000}}
	event.PeCharges[1] = &GainCharges{HiGain: []float64{180, 180}}

	reducer := &DL0Reducer{}
	reducer.Reduce(event)

	want := []float64{180, 180}
	if diff := cmp.Diff(want, event.Images[1]); diff != "" {
		t.Errorf("single-gain image mismatch (-want +got):\n%s", diff)
	}
}

func TestDL1FlatField(t *testing.T) {
	event := calibEvent()
	event.Images[1] = []float64{1, 2, 3}

	constants := CalibrationMap{1: {
		PedestalHG: 400, PedestalLG: 400,
		GainHG: 0.05, GainLG: 0.9,
		FlatField: 2, SaturationADC: 3500,
	}}
	calibrator := &DL1Calibrator{Constants: constants}
	calibrator.Calibrate(event)

	want := []float64{2, 4, 6}
	if diff := cmp.Diff(want, event.Images[1]); diff != "" {
		t.Errorf("flat-fielded image mismatch (-want +got):\n%s", diff)
	}
}

func TestCalibrationMapFallback(t *testing.T) {
	custom := &TelescopeCalibration{GainHG: 0.1, SaturationADC: 3000}
	constants := CalibrationMap{2: custom}

	if got := constants.For(2); got != custom {
		t.Error("For ignored the registered constants")
	}
	if diff := cmp.Diff(DefaultCalibration(), constants.For(5)); diff != "" {
		t.Errorf("fallback constants mismatch (-want +got):\n%s", diff)
	}

	var none CalibrationMap
	if diff := cmp.Diff(DefaultCalibration(), none.For(1)); diff != "" {
		t.Errorf("nil map constants mismatch (-want +got):\n%s", diff)
	}
}

func TestCalibrationChain(t *testing.T) {
	event := calibEvent()
	event.RawCharges[1] = &RawTelescopeData{
		NPixels: 3,
		HiGain:  []uint16{400, 500, 4000},
		LoGain:  []uint16{400, 800, 1000},
	}

	(&R1Calibrator{}).Calibrate(event)
	(&DL0Reducer{}).Reduce(event)
	(&DL1Calibrator{}).Calibrate(event)

	// Pixel 2 saturates the high gain channel and comes out of the low
	// gain one: (1000 - 400) * 0.9.
	want := []float64{0, 5, 540}
	image := event.Images[1]
	for pix := range want {
		if math.Abs(image[pix]-want[pix]) > 1e-9 {
			t.Errorf("pixel %d = %v, want %v", pix, image[pix], want[pix])
		}
	}
}
