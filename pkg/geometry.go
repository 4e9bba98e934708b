package reco

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

const (
	CameraLSTCam    = "LSTCam"
	CameraNectarCam = "NectarCam"
	CameraFlashCam  = "FlashCam"
	CameraGCT       = "GCT"
)

type PixelShape int

const (
	ShapeHexagonal PixelShape = iota
	ShapeSquare
)

func (s PixelShape) String() string {
	switch s {
	case ShapeHexagonal:
		return "hexagonal"
	case ShapeSquare:
		return "square"
	default:
		return "unknown"
	}
}

// Reference camera table. A telescope is identified by its exact pixel
// count plus the focal length within half a meter; LSTCam and NectarCam
// share the pixel count and differ only in optics.
type cameraSpec struct {
	camType     string
	nPixels     int
	focalLength float64
	shape       PixelShape
	rotation    float64
	pixSpacing  float64
}

const focalLengthTolerance = 0.5

var cameraTable = []cameraSpec{
	{CameraLSTCam, 1855, 28.0, ShapeHexagonal, 100.893 * DegToRad, 0.05},
	{CameraNectarCam, 1855, 16.0, ShapeHexagonal, 100.893 * DegToRad, 0.06},
	{CameraFlashCam, 1764, 16.0, ShapeHexagonal, 0, 0.05},
	{CameraGCT, 2048, 2.283, ShapeSquare, 0, 0.0062},
}

// TelescopeGeometry is the derived per-telescope camera description:
// everything the run header does not carry but the pipeline needs.
type TelescopeGeometry struct {
	TelID       uint16
	CamType     string
	NPixels     int
	FocalLength float64
	PixelX      []float64
	PixelY      []float64
	PixelArea   []float64
	PixSpacing  float64
	Shape       PixelShape
	CamRotation float64
	Neighbors   [][]int
}

// GeometryRegistry caches derived geometries per telescope id. The
// first request for an id infers and stores the geometry, later
// requests return the cached value. The lock gives at-most-once
// inference per id even when telescopes of one event are processed
// concurrently.
type GeometryRegistry struct {
	mu    sync.Mutex
	geoms map[uint16]*TelescopeGeometry
}

func NewGeometryRegistry() *GeometryRegistry {
	return &GeometryRegistry{geoms: make(map[uint16]*TelescopeGeometry)}
}

func (r *GeometryRegistry) GetGeometry(telID uint16, pixelX, pixelY []float64, focalLength float64) (*TelescopeGeometry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if geom, ok := r.geoms[telID]; ok {
		return geom, nil
	}

	geom, err := buildGeometry(telID, pixelX, pixelY, focalLength)
	if err != nil {
		return nil, err
	}
	r.geoms[telID] = geom

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Telescope %d: %s, %d pixels, spacing %.4f m",
			telID, geom.CamType, geom.NPixels, geom.PixSpacing)
		logger.Info(message, "geometry")
	}
	return geom, nil
}

func buildGeometry(telID uint16, pixelX, pixelY []float64, focalLength float64) (*TelescopeGeometry, error) {
	spec, err := inferCameraType(telID, len(pixelX), focalLength)
	if err != nil {
		return nil, err
	}

	spacing := minPixelSpacing(pixelX, pixelY)
	area := pixelArea(spec.shape, spacing)
	areas := make([]float64, len(pixelX))
	for i := range areas {
		areas[i] = area
	}

	geom := &TelescopeGeometry{
		TelID:       telID,
		CamType:     spec.camType,
		NPixels:     len(pixelX),
		FocalLength: focalLength,
		PixelX:      pixelX,
		PixelY:      pixelY,
		PixelArea:   areas,
		PixSpacing:  spacing,
		Shape:       spec.shape,
		CamRotation: spec.rotation,
		Neighbors:   findNeighbors(pixelX, pixelY, spacing),
	}
	return geom, nil
}

func inferCameraType(telID uint16, nPixels int, focalLength float64) (cameraSpec, error) {
	for _, spec := range cameraTable {
		if spec.nPixels == nPixels && math.Abs(spec.focalLength-focalLength) < focalLengthTolerance {
			return spec, nil
		}
	}
	return cameraSpec{}, &UnknownCameraError{TelID: telID, NPixels: nPixels, FocalLength: focalLength}
}

func minPixelSpacing(pixelX, pixelY []float64) float64 {
	minD2 := math.Inf(1)
	for i := 0; i < len(pixelX); i++ {
		for j := i + 1; j < len(pixelX); j++ {
			dx := pixelX[i] - pixelX[j]
			dy := pixelY[i] - pixelY[j]
			d2 := dx*dx + dy*dy
			if d2 < minD2 {
				minD2 = d2
			}
		}
	}
	return math.Sqrt(minD2)
}

// pixelArea gives the area of one pixel from the grid spacing: regular
// hexagons with flat-to-flat size s cover sqrt(3)/2*s^2, squares s^2.
func pixelArea(shape PixelShape, spacing float64) float64 {
	switch shape {
	case ShapeHexagonal:
		return math.Sqrt(3) / 2 * spacing * spacing
	default:
		return spacing * spacing
	}
}

// findNeighbors links pixels closer than 1.5 times the grid spacing:
// six neighbors on hexagonal grids, eight on square ones.
func findNeighbors(pixelX, pixelY []float64, spacing float64) [][]int {
	radius := 1.5 * spacing
	radius2 := radius * radius
	neighbors := make([][]int, len(pixelX))
	for i := range neighbors {
		neighbors[i] = make([]int, 0, 8)
	}
	for i := 0; i < len(pixelX); i++ {
		for j := i + 1; j < len(pixelX); j++ {
			dx := pixelX[i] - pixelX[j]
			dy := pixelY[i] - pixelY[j]
			if dx*dx+dy*dy <= radius2 {
				neighbors[i] = append(neighbors[i], j)
				neighbors[j] = append(neighbors[j], i)
			}
		}
	}
	return neighbors
}

// InferCameraTypes derives the camera type of every telescope in the
// run, filling the registry cache along the way.
func InferCameraTypes(instrument *InstrumentInfo, registry *GeometryRegistry) (map[uint16]string, error) {
	camTypes := make(map[uint16]string)
	ids := maps.Keys(instrument.Telescopes)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, telID := range ids {
		telescope := instrument.Telescopes[telID]
		geom, err := registry.GetGeometry(telID, telescope.PixelX, telescope.PixelY, telescope.FocalLength)
		if err != nil {
			return nil, err
		}
		camTypes[telID] = geom.CamType
	}
	return camTypes, nil
}
