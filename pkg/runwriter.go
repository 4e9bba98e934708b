package reco

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"unsafe"

	"golang.org/x/exp/maps"
)

// RunFileWriter emits array-run files in the format the event source
// reads. Telescope blocks are written in ascending id order so files
// are reproducible.
type RunFileWriter struct {
	File      *os.File
	RunNumber uint32
}

func NewRunFileWriter(file *os.File) *RunFileWriter {
	return &RunFileWriter{File: file}
}

func (w *RunFileWriter) WriteRunHeader(runNumber uint32, startSec uint32, instrument *InstrumentInfo) error {
	var header RunHeaderStruct
	header = RunHeaderStruct{
		RunMagic:    RUN_MAGIC_NUMBER,
		RunVersion:  RUN_FORMAT_VERSION,
		RunHeadSize: uint32(unsafe.Sizeof(header)),
		RunNumber:   runNumber,
		NTelescopes: uint32(len(instrument.Telescopes)),
		RunStartSec: startSec,
	}
	if err := binary.Write(w.File, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("error writing run header: %w", err)
	}
	w.RunNumber = runNumber

	ids := maps.Keys(instrument.Telescopes)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, telID := range ids {
		if err := w.writeTelescopeInstrument(instrument.Telescopes[telID]); err != nil {
			return fmt.Errorf("error writing telescope %d block: %w", telID, err)
		}
	}
	return nil
}

func (w *RunFileWriter) writeTelescopeInstrument(telescope *TelescopeInstrument) error {
	geom := TelescopeGeomStruct{
		FocalLength: telescope.FocalLength,
		TelPosX:     telescope.TelPosX,
		TelPosY:     telescope.TelPosY,
		TelPosZ:     telescope.TelPosZ,
	}
	geomSize := unsafe.Sizeof(geom)
	npix := telescope.NPixels

	telHeader := TelescopeHeaderStruct{
		BlockSize: uint32(geomSize) + uint32(2*8*npix),
		TelId:     uint32(telescope.TelID),
		NPixels:   uint32(npix),
	}
	if err := binary.Write(w.File, binary.LittleEndian, telHeader); err != nil {
		return err
	}
	if err := binary.Write(w.File, binary.LittleEndian, geom); err != nil {
		return err
	}
	if err := binary.Write(w.File, binary.LittleEndian, telescope.PixelX); err != nil {
		return err
	}
	if err := binary.Write(w.File, binary.LittleEndian, telescope.PixelY); err != nil {
		return err
	}
	return nil
}

// WriteEvent appends one event. The raw charge maps must be filled;
// calibration events carry the same block layout as physics events.
func (w *RunFileWriter) WriteEvent(event *EventType, evtType EventTypeType) error {
	var header EventHeaderStruct
	var mc EventMCStruct
	var telHeader TelescopeEventHeaderStruct
	headerSize := uint32(unsafe.Sizeof(header))
	mcSize := uint32(unsafe.Sizeof(mc))
	telHeaderSize := uint32(unsafe.Sizeof(telHeader))

	eventSize := headerSize + mcSize
	for _, data := range event.RawCharges {
		eventSize += telHeaderSize + uint32(2*nGains(data)*data.NPixels)
	}

	header = EventHeaderStruct{
		EventSize:          eventSize,
		EventMagic:         EVENT_MAGIC_NUMBER,
		EventHeadSize:      headerSize + mcSize,
		EventType:          evtType,
		EventRunNb:         w.RunNumber,
		EventId:            event.EventID,
		EventTimestampSec:  uint32(event.Timestamp / 1_000_000),
		EventTimestampUsec: uint32(event.Timestamp % 1_000_000),
		EventNTel:          uint32(len(event.RawCharges)),
	}
	if err := binary.Write(w.File, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("error writing event %d header: %w", event.EventID, err)
	}

	mc = EventMCStruct{
		PointingAlt: event.Pointing.Alt,
		PointingAz:  event.Pointing.Az,
		TrueAlt:     event.MC.Alt,
		TrueAz:      event.MC.Az,
		TrueEnergy:  event.MC.Energy,
		CoreX:       event.MC.CoreX,
		CoreY:       event.MC.CoreY,
	}
	if err := binary.Write(w.File, binary.LittleEndian, mc); err != nil {
		return fmt.Errorf("error writing event %d MC block: %w", event.EventID, err)
	}

	ids := maps.Keys(event.RawCharges)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, telID := range ids {
		data := event.RawCharges[telID]
		telHeader = TelescopeEventHeaderStruct{
			BlockSize: uint32(2 * nGains(data) * data.NPixels),
			TelId:     uint32(telID),
			NPixels:   uint32(data.NPixels),
			NGains:    uint32(nGains(data)),
		}
		if err := binary.Write(w.File, binary.LittleEndian, telHeader); err != nil {
			return err
		}
		if err := binary.Write(w.File, binary.LittleEndian, data.HiGain); err != nil {
			return err
		}
		if len(data.LoGain) > 0 {
			if err := binary.Write(w.File, binary.LittleEndian, data.LoGain); err != nil {
				return err
			}
		}
	}
	return nil
}

func nGains(data *RawTelescopeData) int {
	if len(data.LoGain) > 0 {
		return 2
	}
	return 1
}
