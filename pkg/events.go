package reco

// HorizonCoord is an altitude/azimuth pair in radians. Altitude is
// measured from the horizon, azimuth from North increasing towards East.
type HorizonCoord struct {
	Alt float64
	Az  float64
}

// ShowerTruth carries the simulated shower parameters of an event.
type ShowerTruth struct {
	Alt    float64
	Az     float64
	Energy float64
	CoreX  float64
	CoreY  float64
}

// RawTelescopeData holds the integrated ADC charges of one telescope,
// one value per pixel and gain channel.
type RawTelescopeData struct {
	NPixels int
	HiGain  []uint16
	LoGain  []uint16
}

// GainCharges holds pedestal-subtracted charges in photoelectrons for
// both gain channels, before gain selection.
type GainCharges struct {
	HiGain []float64
	LoGain []float64
}

type EventType struct {
	RunNumber  uint32
	EventID    uint32
	Timestamp  uint64
	Pointing   HorizonCoord
	MC         ShowerTruth
	RawCharges map[uint16]*RawTelescopeData
	PeCharges  map[uint16]*GainCharges
	Images     map[uint16][]float64
	Error      bool
}

// TelescopeInstrument is the raw per-telescope description read from the
// run header: pixel positions and focal length only. Camera type,
// rotation, pixel area and neighbor lists are inferred downstream.
type TelescopeInstrument struct {
	TelID       uint16
	NPixels     int
	FocalLength float64
	PixelX      []float64
	PixelY      []float64
	TelPosX     float64
	TelPosY     float64
	TelPosZ     float64
}

type InstrumentInfo struct {
	RunNumber  uint32
	Telescopes map[uint16]*TelescopeInstrument
}
