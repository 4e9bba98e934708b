package reco

import "math"

// UnitKind tags coordinate arrays and moment sets with their physical unit.
// Camera-plane quantities are in meters, nominal-frame quantities in radians.
type UnitKind int

const (
	UnitMeter UnitKind = iota
	UnitRadian
)

func (u UnitKind) String() string {
	switch u {
	case UnitMeter:
		return "m"
	case UnitRadian:
		return "rad"
	default:
		return "unknown"
	}
}

const DegToRad = math.Pi / 180.
const RadToDeg = 180. / math.Pi
