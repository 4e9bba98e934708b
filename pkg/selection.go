package reco

import "math"

// TailCuts is the two-level cleaning threshold pair in photoelectrons.
type TailCuts struct {
	Boundary float64 `hdf5:"boundaryThresh"`
	Picture  float64 `hdf5:"pictureThresh"`
}

// CameraCuts are the per-camera-type selection cuts. AmpCut is in
// photoelectrons, DistCut in radians; comparisons against nominal-frame
// moments happen in radians on both sides.
type CameraCuts struct {
	AmpCut   float64  `hdf5:"ampCut"`
	DistCut  float64  `hdf5:"distCut"`
	TailCuts TailCuts `hdf5:"tailCuts"`
}

type CutTable map[string]CameraCuts

// DefaultCutTable gives the reference cuts, used when the run database
// has no override or in no-DB mode. Distance cuts are stored in degrees
// in the database and converted here once.
func DefaultCutTable() CutTable {
	return CutTable{
		CameraLSTCam: {
			AmpCut:   100,
			DistCut:  2.0 * DegToRad,
			TailCuts: TailCuts{Boundary: 8, Picture: 16},
		},
		CameraNectarCam: {
			AmpCut:   100,
			DistCut:  3.3 * DegToRad,
			TailCuts: TailCuts{Boundary: 7, Picture: 14},
		},
		CameraFlashCam: {
			AmpCut:   100,
			DistCut:  3.0 * DegToRad,
			TailCuts: TailCuts{Boundary: 7, Picture: 14},
		},
		CameraGCT: {
			AmpCut:   50,
			DistCut:  3.8 * DegToRad,
			TailCuts: TailCuts{Boundary: 3, Picture: 6},
		},
	}
}

func (t CutTable) CutsFor(camType string) (CameraCuts, error) {
	cuts, ok := t[camType]
	if !ok {
		return CameraCuts{}, &MissingCutsError{CamType: camType}
	}
	return cuts, nil
}

// Preselect decides whether a parameterized image is good enough for
// the stereoscopic fit: amplitude above the cut, centroid inside the
// usable field of view, and a resolved ellipse (zero width means a
// degenerate line image and is rejected). Absent moments never pass.
func Preselect(moments *HillasMoments, cuts CameraCuts) bool {
	if moments == nil {
		return false
	}
	dist := math.Hypot(moments.CenX, moments.CenY)
	return moments.Size > cuts.AmpCut &&
		dist < cuts.DistCut &&
		moments.Width > 0
}
