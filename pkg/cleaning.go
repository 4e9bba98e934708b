package reco

// TailcutsClean selects the pixels of an image using a two-level
// threshold: pixels at or above the picture level, plus pixels at or
// above the boundary level that touch a picture pixel.
func TailcutsClean(geom *TelescopeGeometry, image []float64, cuts TailCuts) []bool {
	abovePicture := make([]bool, len(image))
	for i, signal := range image {
		abovePicture[i] = signal >= cuts.Picture
	}

	mask := make([]bool, len(image))
	for i, signal := range image {
		if abovePicture[i] {
			mask[i] = true
			continue
		}
		if signal < cuts.Boundary {
			continue
		}
		for _, nb := range geom.Neighbors[i] {
			if abovePicture[nb] {
				mask[i] = true
				break
			}
		}
	}
	return mask
}

// Dilate grows a pixel mask by one neighbor ring. The input mask is
// left untouched.
func Dilate(geom *TelescopeGeometry, mask []bool) []bool {
	dilated := make([]bool, len(mask))
	copy(dilated, mask)
	for i, selected := range mask {
		if !selected {
			continue
		}
		for _, nb := range geom.Neighbors[i] {
			dilated[nb] = true
		}
	}
	return dilated
}
