package reco

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferCameraType(t *testing.T) {
	tests := []struct {
		name    string
		nPixels int
		focal   float64
		want    string
	}{
		{"LSTCam", 1855, 28.0, CameraLSTCam},
		{"NectarCam", 1855, 16.0, CameraNectarCam},
		{"FlashCam", 1764, 16.0, CameraFlashCam},
		{"GCT", 2048, 2.283, CameraGCT},
		{"LSTCam focal length off by less than the tolerance", 1855, 28.4, CameraLSTCam},
		{"NectarCam focal length off by less than the tolerance", 1855, 15.6, CameraNectarCam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := inferCameraType(1, tt.nPixels, tt.focal)
			if err != nil {
				t.Fatalf("inferCameraType: %v", err)
			}
			if spec.camType != tt.want {
				t.Errorf("camType = %q, want %q", spec.camType, tt.want)
			}
		})
	}
}

func TestInferCameraTypeUnknown(t *testing.T) {
	_, err := inferCameraType(3, 1855, 20.0)

	var unknown *UnknownCameraError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint16(3), unknown.TelID)
	assert.Equal(t, 1855, unknown.NPixels)
}

func TestBuildGeometryLSTCam(t *testing.T) {
	x, y, focal, err := ReferenceCamera(CameraLSTCam)
	require.NoError(t, err)

	geom, err := buildGeometry(1, x, y, focal)
	require.NoError(t, err)

	assert.Equal(t, CameraLSTCam, geom.CamType)
	assert.Equal(t, 1855, geom.NPixels)
	assert.Equal(t, ShapeHexagonal, geom.Shape)
	assert.InDelta(t, 100.893*DegToRad, geom.CamRotation, 1e-15)
	assert.InDelta(t, 0.05, geom.PixSpacing, 1e-12)
	assert.InDelta(t, math.Sqrt(3)/2*0.05*0.05, geom.PixelArea[0], 1e-12)

	// The first pixel of the generated layout is the camera center,
	// an interior pixel of the hexagonal grid.
	assert.Len(t, geom.Neighbors[0], 6)
}

func TestBuildGeometryGCT(t *testing.T) {
	x, y, focal, err := ReferenceCamera(CameraGCT)
	require.NoError(t, err)

	geom, err := buildGeometry(4, x, y, focal)
	require.NoError(t, err)

	assert.Equal(t, CameraGCT, geom.CamType)
	assert.Equal(t, ShapeSquare, geom.Shape)
	assert.Equal(t, 0., geom.CamRotation)
	assert.InDelta(t, 0.0062, geom.PixSpacing, 1e-12)
	assert.InDelta(t, 0.0062*0.0062, geom.PixelArea[0], 1e-12)
	assert.Len(t, geom.Neighbors[0], 8)
}

func TestGeometryRegistryCaches(t *testing.T) {
	x, y, focal, err := ReferenceCamera(CameraGCT)
	require.NoError(t, err)

	registry := NewGeometryRegistry()
	first, err := registry.GetGeometry(7, x, y, focal)
	require.NoError(t, err)

	// Later requests for the same id never re-infer, whatever they
	// carry.
	second, err := registry.GetGeometry(7, nil, nil, 0)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGeometryRegistryUnknownCamera(t *testing.T) {
	registry := NewGeometryRegistry()
	_, err := registry.GetGeometry(2, make([]float64, 12), make([]float64, 12), 5.0)

	var unknown *UnknownCameraError
	require.ErrorAs(t, err, &unknown)

	// A failed inference leaves no cache entry behind.
	x, y, focal, err := ReferenceCamera(CameraGCT)
	require.NoError(t, err)
	geom, err := registry.GetGeometry(2, x, y, focal)
	require.NoError(t, err)
	assert.Equal(t, CameraGCT, geom.CamType)
}

func TestPixelArea(t *testing.T) {
	if got := pixelArea(ShapeHexagonal, 0.05); math.Abs(got-math.Sqrt(3)/2*0.0025) > 1e-15 {
		t.Errorf("hexagonal area = %v", got)
	}
	if got := pixelArea(ShapeSquare, 0.05); got != 0.0025 {
		t.Errorf("square area = %v", got)
	}
}

func TestFindNeighborsHexFlower(t *testing.T) {
	// A center pixel with a full first ring: six neighbors for the
	// center, three for each ring pixel.
	spacing := 0.05
	x := []float64{0}
	y := []float64{0}
	for k := 0; k < 6; k++ {
		angle := float64(k) * 60 * DegToRad
		x = append(x, spacing*math.Cos(angle))
		y = append(y, spacing*math.Sin(angle))
	}

	neighbors := findNeighbors(x, y, spacing)

	if len(neighbors[0]) != 6 {
		t.Errorf("center has %d neighbors, want 6", len(neighbors[0]))
	}
	for i := 1; i < 7; i++ {
		if len(neighbors[i]) != 3 {
			t.Errorf("ring pixel %d has %d neighbors, want 3", i, len(neighbors[i]))
		}
	}
}

func TestFindNeighborsSquareGrid(t *testing.T) {
	geom := gridGeometry(3, 3, 0.01)

	if len(geom.Neighbors[4]) != 8 {
		t.Errorf("center has %d neighbors, want 8", len(geom.Neighbors[4]))
	}
	if len(geom.Neighbors[0]) != 3 {
		t.Errorf("corner has %d neighbors, want 3", len(geom.Neighbors[0]))
	}
}

func TestInferCameraTypes(t *testing.T) {
	lstX, lstY, lstFocal, err := ReferenceCamera(CameraLSTCam)
	require.NoError(t, err)
	gctX, gctY, gctFocal, err := ReferenceCamera(CameraGCT)
	require.NoError(t, err)

	instrument := &InstrumentInfo{
		RunNumber: 42,
		Telescopes: map[uint16]*TelescopeInstrument{
			1: {TelID: 1, NPixels: len(lstX), FocalLength: lstFocal, PixelX: lstX, PixelY: lstY},
			9: {TelID: 9, NPixels: len(gctX), FocalLength: gctFocal, PixelX: gctX, PixelY: gctY},
		},
	}

	camTypes, err := InferCameraTypes(instrument, NewGeometryRegistry())
	require.NoError(t, err)

	want := map[uint16]string{1: CameraLSTCam, 9: CameraGCT}
	assert.Equal(t, want, camTypes)
}
