package reco

import "math"

// Coordinate frames and the transforms between them. All functions are
// pure: parameters in, fresh values out, nothing mutated.
//
// Conventions: the unit sphere uses x=East, y=North, z=Up. Altitude is
// measured from the horizon, azimuth from North towards East, both in
// radians. Tangent-plane offsets are expressed in the (azimuthal,
// altitudinal) basis of the pointing: x along increasing azimuth, y
// along increasing altitude.

type vec3 [3]float64

func (v vec3) dot(w vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

func (p HorizonCoord) unitVector() vec3 {
	cosAlt := math.Cos(p.Alt)
	return vec3{
		cosAlt * math.Sin(p.Az),
		cosAlt * math.Cos(p.Az),
		math.Sin(p.Alt),
	}
}

// pointingBasis gives the orthonormal triad at a pointing: the unit
// vector of increasing azimuth, of increasing altitude, and the
// pointing direction itself.
func pointingBasis(p HorizonCoord) (vec3, vec3, vec3) {
	sinAlt := math.Sin(p.Alt)
	cosAlt := math.Cos(p.Alt)
	sinAz := math.Sin(p.Az)
	cosAz := math.Cos(p.Az)

	eAz := vec3{cosAz, -sinAz, 0}
	eAlt := vec3{-sinAlt * sinAz, -sinAlt * cosAz, cosAlt}
	n := vec3{cosAlt * sinAz, cosAlt * cosAz, sinAlt}
	return eAz, eAlt, n
}

// HorizonToOffset projects a sky position onto the tangent plane at the
// pointing (gnomonic projection). The target must lie in the hemisphere
// around the pointing.
func HorizonToOffset(target, pointing HorizonCoord) (float64, float64) {
	eAz, eAlt, n := pointingBasis(pointing)
	v := target.unitVector()
	along := v.dot(n)
	return v.dot(eAz) / along, v.dot(eAlt) / along
}

// OffsetToHorizon is the inverse gnomonic projection: tangent-plane
// offsets at the pointing back to a sky position.
func OffsetToHorizon(offsetX, offsetY float64, pointing HorizonCoord) HorizonCoord {
	eAz, eAlt, n := pointingBasis(pointing)
	norm := math.Sqrt(1 + offsetX*offsetX + offsetY*offsetY)
	var v vec3
	for i := 0; i < 3; i++ {
		v[i] = (n[i] + offsetX*eAz[i] + offsetY*eAlt[i]) / norm
	}
	alt := math.Asin(v[2])
	az := math.Atan2(v[0], v[1])
	if az < 0 {
		az += 2 * math.Pi
	}
	return HorizonCoord{Alt: alt, Az: az}
}

// CameraToNominal converts camera-plane pixel positions (meters) into
// nominal-frame angular offsets (radians) around the array pointing.
// The camera is first de-rotated, then scaled onto the tangent plane at
// the telescope pointing by the focal length. When the telescope tracks
// the array pointing the offsets are returned directly, so the zero
// offset stays exact; a diverged telescope pointing re-projects through
// the sky position.
func CameraToNominal(x, y []float64, focalLength, camRotation float64, telPointing, arrayPointing HorizonCoord) ([]float64, []float64) {
	sinRot := math.Sin(camRotation)
	cosRot := math.Cos(camRotation)
	samePointing := telPointing == arrayPointing

	nomX := make([]float64, len(x))
	nomY := make([]float64, len(y))
	for i := range x {
		alignedX := x[i]*cosRot + y[i]*sinRot
		alignedY := -x[i]*sinRot + y[i]*cosRot
		offsetX := alignedX / focalLength
		offsetY := alignedY / focalLength
		if samePointing {
			nomX[i] = offsetX
			nomY[i] = offsetY
			continue
		}
		sky := OffsetToHorizon(offsetX, offsetY, telPointing)
		nomX[i], nomY[i] = HorizonToOffset(sky, arrayPointing)
	}
	return nomX, nomY
}

// TiltedTransform maps between the ground frame and the tilted frame
// perpendicular to an array pointing. Build one per event.
type TiltedTransform struct {
	eAz  vec3
	eAlt vec3
	n    vec3
}

func NewTiltedTransform(pointing HorizonCoord) TiltedTransform {
	eAz, eAlt, n := pointingBasis(pointing)
	return TiltedTransform{eAz: eAz, eAlt: eAlt, n: n}
}

// ToTilted projects a ground-frame position onto the tilted plane.
func (t TiltedTransform) ToTilted(x, y, z float64) (float64, float64) {
	p := vec3{x, y, z}
	return p.dot(t.eAz), p.dot(t.eAlt)
}

// ToGround maps a tilted-frame position back onto the z=0 ground plane
// by sliding along the pointing axis. The pointing must be above the
// horizon.
func (t TiltedTransform) ToGround(tiltedX, tiltedY float64) (float64, float64, float64) {
	var q vec3
	for i := 0; i < 3; i++ {
		q[i] = tiltedX*t.eAz[i] + tiltedY*t.eAlt[i]
	}
	s := -q[2] / t.n[2]
	return q[0] + s*t.n[0], q[1] + s*t.n[1], 0
}
