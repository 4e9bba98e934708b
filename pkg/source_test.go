package reco

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleInstrument() *InstrumentInfo {
	return &InstrumentInfo{
		RunNumber: 7,
		Telescopes: map[uint16]*TelescopeInstrument{
			1: {
				TelID: 1, NPixels: 3, FocalLength: 28,
				PixelX:  []float64{0.1, 0.2, 0.3},
				PixelY:  []float64{-0.1, 0, 0.1},
				TelPosX: 10, TelPosY: 20, TelPosZ: 5,
			},
			2: {
				TelID: 2, NPixels: 2, FocalLength: 16,
				PixelX:  []float64{0, 0.06},
				PixelY:  []float64{0, 0},
				TelPosX: -75, TelPosY: 30,
			},
		},
	}
}

func sampleEvent(id uint32) *EventType {
	return &EventType{
		EventID:   id,
		Timestamp: 1_723_456_789_123_456 + uint64(id),
		Pointing:  HorizonCoord{Alt: 1.2, Az: 0.3},
		MC:        ShowerTruth{Alt: 1.21, Az: 0.29, Energy: 1.5, CoreX: 120, CoreY: -80},
		RawCharges: map[uint16]*RawTelescopeData{
			1: {NPixels: 3, HiGain: []uint16{410, 450, 500}, LoGain: []uint16{401, 405, 410}},
			2: {NPixels: 2, HiGain: []uint16{420, 520}},
		},
	}
}

func writeRunFile(t *testing.T, events []*EventType, kinds []EventTypeType) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run007.ars")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := NewRunFileWriter(file)
	require.NoError(t, writer.WriteRunHeader(7, 1_723_456_789, sampleInstrument()))
	for i, event := range events {
		require.NoError(t, writer.WriteEvent(event, kinds[i]))
	}
	return path
}

func openRun(t *testing.T, path string) *os.File {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	_, _, err = ReadRunHeader(file)
	require.NoError(t, err)
	return file
}

func TestRunFileRoundTrip(t *testing.T) {
	first := sampleEvent(1)
	second := sampleEvent(2)
	path := writeRunFile(t, []*EventType{first, second},
		[]EventTypeType{PHYSICS_EVENT, PHYSICS_EVENT})

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	header, instrument, err := ReadRunHeader(file)
	require.NoError(t, err)
	require.Equal(t, uint32(7), header.RunNumber)
	require.Equal(t, uint32(2), header.NTelescopes)
	if diff := cmp.Diff(sampleInstrument(), instrument); diff != "" {
		t.Errorf("instrument mismatch (-want +got):\n%s", diff)
	}

	source := NewEventSource(file)
	for _, want := range []*EventType{first, second} {
		event, err := source.NextEvent()
		require.NoError(t, err)
		require.Equal(t, want.EventID, event.EventID)
		require.Equal(t, uint32(7), event.RunNumber)
		require.Equal(t, want.Timestamp, event.Timestamp)
		if diff := cmp.Diff(want.Pointing, event.Pointing); diff != "" {
			t.Errorf("event %d pointing mismatch (-want +got):\n%s", want.EventID, diff)
		}
		if diff := cmp.Diff(want.MC, event.MC); diff != "" {
			t.Errorf("event %d truth mismatch (-want +got):\n%s", want.EventID, diff)
		}
		if diff := cmp.Diff(want.RawCharges, event.RawCharges); diff != "" {
			t.Errorf("event %d charges mismatch (-want +got):\n%s", want.EventID, diff)
		}
	}

	_, err = source.NextEvent()
	require.ErrorIs(t, err, io.EOF)
}

func TestEventSourceWindow(t *testing.T) {
	saved := GetConfiguration()
	defer SetConfiguration(saved)

	events := make([]*EventType, 5)
	kinds := make([]EventTypeType, 5)
	for i := range events {
		events[i] = sampleEvent(uint32(i + 1))
		kinds[i] = PHYSICS_EVENT
	}
	file := openRun(t, writeRunFile(t, events, kinds))

	cfg := saved
	cfg.Skip = 1
	cfg.MaxEvents = 3
	SetConfiguration(cfg)

	source := NewEventSource(file)
	var ids []uint32
	for {
		event, err := source.NextEvent()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ids = append(ids, event.EventID)
	}
	require.Equal(t, []uint32{2, 3}, ids)
}

func TestEventSourceSkipsCalibrationEvents(t *testing.T) {
	events := []*EventType{sampleEvent(1), sampleEvent(2), sampleEvent(3)}
	kinds := []EventTypeType{PHYSICS_EVENT, CALIBRATION_EVENT, PHYSICS_EVENT}
	file := openRun(t, writeRunFile(t, events, kinds))

	source := NewEventSource(file)
	var ids []uint32
	for {
		event, err := source.NextEvent()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ids = append(ids, event.EventID)
	}
	require.Equal(t, []uint32{1, 3}, ids)
}

func TestEventSourceTelescopeFilter(t *testing.T) {
	saved := GetConfiguration()
	defer SetConfiguration(saved)

	file := openRun(t, writeRunFile(t, []*EventType{sampleEvent(1)},
		[]EventTypeType{PHYSICS_EVENT}))

	cfg := saved
	cfg.Telescopes = []uint16{2}
	SetConfiguration(cfg)

	source := NewEventSource(file)
	event, err := source.NextEvent()
	require.NoError(t, err)

	require.Len(t, event.RawCharges, 1)
	require.Contains(t, event.RawCharges, uint16(2))
}

func TestCountEvents(t *testing.T) {
	events := []*EventType{sampleEvent(1), sampleEvent(2), sampleEvent(3), sampleEvent(4)}
	kinds := []EventTypeType{CALIBRATION_EVENT, PHYSICS_EVENT, PHYSICS_EVENT, PHYSICS_EVENT}
	file := openRun(t, writeRunFile(t, events, kinds))

	count, err := CountEvents(file)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	// Counting seeks back, the source still starts at the first event.
	source := NewEventSource(file)
	event, err := source.NextEvent()
	require.NoError(t, err)
	require.Equal(t, uint32(2), event.EventID)
}

func TestReadRunHeaderBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ars")
	file, err := os.Create(path)
	require.NoError(t, err)
	header := RunHeaderStruct{RunMagic: 0xDEADBEEF, RunVersion: RUN_FORMAT_VERSION}
	require.NoError(t, binary.Write(file, binary.LittleEndian, header))
	require.NoError(t, file.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	_, _, err = ReadRunHeader(in)
	require.Error(t, err)
}

func TestReadRunHeaderBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ars")
	file, err := os.Create(path)
	require.NoError(t, err)
	header := RunHeaderStruct{RunMagic: RUN_MAGIC_NUMBER, RunVersion: 99}
	require.NoError(t, binary.Write(file, binary.LittleEndian, header))
	require.NoError(t, file.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	_, _, err = ReadRunHeader(in)
	require.Error(t, err)
}

func TestReadArrayEventWrongMagic(t *testing.T) {
	header := EventHeaderStruct{EventMagic: 0x0BADBEEF, EventId: 12}

	event, err := ReadArrayEvent(nil, header)
	require.NoError(t, err)
	require.True(t, event.Error)
}

func TestReadArrayEventTruncatedPayload(t *testing.T) {
	header := EventHeaderStruct{EventMagic: EVENT_MAGIC_NUMBER, EventId: 12}

	_, err := ReadArrayEvent(make([]byte, 10), header)
	require.Error(t, err)
}
