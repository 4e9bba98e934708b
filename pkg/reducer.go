package reco

// ImageReducer turns a calibrated camera image into Hillas moments in
// both the camera frame and the nominal frame. The stages are function
// fields so tests can substitute instrumented versions.
type ImageReducer struct {
	Clean   func(geom *TelescopeGeometry, image []float64, cuts TailCuts) []bool
	Dilate  func(geom *TelescopeGeometry, mask []bool) []bool
	Moments func(x []float64, y []float64, image []float64, unit UnitKind) (*HillasMoments, error)
}

func NewImageReducer() *ImageReducer {
	return &ImageReducer{
		Clean:   TailcutsClean,
		Dilate:  Dilate,
		Moments: HillasParameters,
	}
}

// ReducedImage holds the surviving pixels after cleaning and the
// moments computed from them. Area is the pixel solid angle in
// steradian, the camera-plane area projected through the focal length.
type ReducedImage struct {
	Mask       []bool
	X          []float64
	Y          []float64
	NomX       []float64
	NomY       []float64
	Area       []float64
	Signal     []float64
	CamMoments *HillasMoments
	NomMoments *HillasMoments
}

// Reduce cleans the image, grows the mask by two dilation rounds to
// recover the shower tails, and parameterizes the surviving pixels.
// nomX and nomY are the nominal-frame pixel positions matching
// geom.PixelX and geom.PixelY element by element.
func (r *ImageReducer) Reduce(geom *TelescopeGeometry, image []float64, nomX []float64, nomY []float64, cuts TailCuts) (*ReducedImage, error) {
	mask := r.Clean(geom, image, cuts)
	mask = r.Dilate(geom, mask)
	mask = r.Dilate(geom, mask)

	focal2 := geom.FocalLength * geom.FocalLength
	reduced := &ReducedImage{Mask: mask}
	for pix, keep := range mask {
		if !keep {
			continue
		}
		reduced.X = append(reduced.X, geom.PixelX[pix])
		reduced.Y = append(reduced.Y, geom.PixelY[pix])
		reduced.NomX = append(reduced.NomX, nomX[pix])
		reduced.NomY = append(reduced.NomY, nomY[pix])
		reduced.Area = append(reduced.Area, geom.PixelArea[pix]/focal2)
		reduced.Signal = append(reduced.Signal, image[pix])
	}

	camMoments, err := r.Moments(reduced.X, reduced.Y, reduced.Signal, UnitMeter)
	if err != nil {
		return nil, err
	}
	nomMoments, err := r.Moments(reduced.NomX, reduced.NomY, reduced.Signal, UnitRadian)
	if err != nil {
		return nil, err
	}
	reduced.CamMoments = camMoments
	reduced.NomMoments = nomMoments
	return reduced, nil
}
