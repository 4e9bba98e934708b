package reco

// Array-run file format. Little-endian binary: one run header with the
// instrument description, then a stream of events until EOF. Every struct
// below is read and written whole, so field sizes must stay uniform within
// each struct (uint32 blocks, float64 blocks) to keep the in-memory size
// equal to the on-disk size.

type RunMagicType uint32
type EventMagicType uint32

const RUN_MAGIC_NUMBER RunMagicType = 0x41525331    // "ARS1"
const EVENT_MAGIC_NUMBER EventMagicType = 0x41455631 // "AEV1"

const RUN_FORMAT_VERSION uint32 = 1

/* ---------- Event type ---------- */
type EventTypeType uint32

const (
	START_OF_RUN EventTypeType = iota + 1
	END_OF_RUN
	PHYSICS_EVENT
	CALIBRATION_EVENT
)

/* ---------- Run header ---------- */
type RunHeaderStruct struct {
	RunMagic    RunMagicType
	RunVersion  uint32
	RunHeadSize uint32
	RunNumber   uint32
	NTelescopes uint32
	RunStartSec uint32
}

/* ---------- Per-telescope instrument block ---------- */
// TelescopeHeaderStruct is followed by TelescopeGeomStruct and the raw
// pixel position arrays (x then y, NPixels float64 each, camera-plane
// meters). BlockSize covers everything after the header itself.
type TelescopeHeaderStruct struct {
	BlockSize uint32
	TelId     uint32
	NPixels   uint32
	Reserved  uint32
}

type TelescopeGeomStruct struct {
	FocalLength float64
	TelPosX     float64
	TelPosY     float64
	TelPosZ     float64
}

/* ---------- Event header ---------- */
// EventSize covers the full event including this header. EventHeadSize
// covers the header plus the MC block that follows it.
type EventHeaderStruct struct {
	EventSize          uint32
	EventMagic         EventMagicType
	EventHeadSize      uint32
	EventType          EventTypeType
	EventRunNb         uint32
	EventId            uint32
	EventTimestampSec  uint32
	EventTimestampUsec uint32
	EventNTel          uint32
	EventReserved      uint32
}

/* ---------- Simulation block ---------- */
// Angles in radians, energy in TeV, core position in ground-frame meters.
// The array pointing is shared by all telescopes of the event.
type EventMCStruct struct {
	PointingAlt float64
	PointingAz  float64
	TrueAlt     float64
	TrueAz      float64
	TrueEnergy  float64
	CoreX       float64
	CoreY       float64
}

/* ---------- Per-telescope event block ---------- */
// Followed by the high-gain and low-gain integrated charge arrays
// (NPixels uint16 ADC counts each when NGains is 2).
type TelescopeEventHeaderStruct struct {
	BlockSize uint32
	TelId     uint32
	NPixels   uint32
	NGains    uint32
}

// ValidEvent reports whether an event carries a shower to reconstruct.
// Calibration events are counted and skipped.
func ValidEvent(header EventHeaderStruct) bool {
	return header.EventType == PHYSICS_EVENT
}
