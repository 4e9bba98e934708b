package reco

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"
)

// ReadRunHeader reads the run header and the instrument description.
// The file is left positioned at the first event.
func ReadRunHeader(file *os.File) (RunHeaderStruct, *InstrumentInfo, error) {
	var header RunHeaderStruct
	headerSize := unsafe.Sizeof(header)
	headerBinary := make([]byte, headerSize)
	_, err := io.ReadFull(file, headerBinary)
	if err != nil {
		return header, nil, fmt.Errorf("error reading run header: %w", err)
	}
	headerReader := bytes.NewReader(headerBinary)
	binary.Read(headerReader, binary.LittleEndian, &header)

	if header.RunMagic != RUN_MAGIC_NUMBER {
		return header, nil, fmt.Errorf("wrong run magic number: 0x%08x", uint32(header.RunMagic))
	}
	if header.RunVersion != RUN_FORMAT_VERSION {
		return header, nil, fmt.Errorf("unsupported run format version: %d", header.RunVersion)
	}

	instrument := &InstrumentInfo{
		RunNumber:  header.RunNumber,
		Telescopes: make(map[uint16]*TelescopeInstrument),
	}

	for t := 0; t < int(header.NTelescopes); t++ {
		telescope, err := readTelescopeInstrument(file)
		if err != nil {
			return header, nil, fmt.Errorf("error reading telescope block %d: %w", t, err)
		}
		instrument.Telescopes[telescope.TelID] = telescope
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Run %d: %d telescopes", header.RunNumber, header.NTelescopes)
		logger.Info(message, "source")
	}
	return header, instrument, nil
}

func readTelescopeInstrument(file *os.File) (*TelescopeInstrument, error) {
	var telHeader TelescopeHeaderStruct
	telHeaderSize := unsafe.Sizeof(telHeader)
	telHeaderBinary := make([]byte, telHeaderSize)
	if _, err := io.ReadFull(file, telHeaderBinary); err != nil {
		return nil, err
	}
	telHeaderReader := bytes.NewReader(telHeaderBinary)
	binary.Read(telHeaderReader, binary.LittleEndian, &telHeader)

	blockBinary := make([]byte, telHeader.BlockSize)
	if _, err := io.ReadFull(file, blockBinary); err != nil {
		return nil, err
	}
	blockReader := bytes.NewReader(blockBinary)

	var geom TelescopeGeomStruct
	if err := binary.Read(blockReader, binary.LittleEndian, &geom); err != nil {
		return nil, err
	}

	npix := int(telHeader.NPixels)
	telescope := &TelescopeInstrument{
		TelID:       uint16(telHeader.TelId),
		NPixels:     npix,
		FocalLength: geom.FocalLength,
		PixelX:      make([]float64, npix),
		PixelY:      make([]float64, npix),
		TelPosX:     geom.TelPosX,
		TelPosY:     geom.TelPosY,
		TelPosZ:     geom.TelPosZ,
	}
	if err := binary.Read(blockReader, binary.LittleEndian, &telescope.PixelX); err != nil {
		return nil, err
	}
	if err := binary.Read(blockReader, binary.LittleEndian, &telescope.PixelY); err != nil {
		return nil, err
	}
	return telescope, nil
}

// CountEvents walks the event stream counting physics events and seeks
// back to where it started. Run it right after ReadRunHeader.
func CountEvents(file *os.File) (int, error) {
	startPosition, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	evtCount := 0
	for {
		var header EventHeaderStruct
		headerSize := unsafe.Sizeof(header)
		headerBinary := make([]byte, headerSize)
		nRead, err := file.Read(headerBinary)
		if err != nil {
			if err != io.EOF {
				errMessage := fmt.Errorf("error reading header counting events: %w", err)
				logger.Error(errMessage.Error())
			}
			break
		}
		if nRead == 0 {
			break
		}

		headerReader := bytes.NewReader(headerBinary)
		binary.Read(headerReader, binary.LittleEndian, &header)
		if header.EventMagic != EVENT_MAGIC_NUMBER {
			return evtCount, fmt.Errorf("wrong event magic number: 0x%08x", uint32(header.EventMagic))
		}
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Evt id: %d, type %d", header.EventId, header.EventType)
			logger.Info(message, "evtCounter")
		}
		payloadSize := header.EventSize - uint32(headerSize)
		file.Seek(int64(payloadSize), io.SeekCurrent)

		if !ValidEvent(header) {
			if configuration.Verbosity > 1 {
				message := fmt.Sprintf("Skipping non-physics event: %d", header.EventId)
				logger.Info(message, "evtCounter")
			}
			continue
		}
		evtCount++
	}

	// Back to the first event
	file.Seek(startPosition, io.SeekStart)
	return evtCount, nil
}

// ReadEventFromFile reads one event header and its payload. The payload
// holds the MC block followed by the per-telescope charge blocks.
func ReadEventFromFile(file *os.File) (EventHeaderStruct, []byte, error) {
	var header EventHeaderStruct
	headerSize := unsafe.Sizeof(header)
	headerBinary := make([]byte, headerSize)
	nRead, err := file.Read(headerBinary)
	if err != nil {
		return header, nil, err
	}
	if nRead == 0 {
		return header, nil, io.EOF
	}

	headerReader := bytes.NewReader(headerBinary)
	binary.Read(headerReader, binary.LittleEndian, &header)

	payloadSize := header.EventSize - uint32(headerSize)
	eventData := make([]byte, payloadSize)
	if _, err := io.ReadFull(file, eventData); err != nil {
		return header, nil, fmt.Errorf("error reading event %d payload: %w", header.EventId, err)
	}
	return header, eventData, nil
}

// ReadArrayEvent decodes an event payload into the event container.
func ReadArrayEvent(eventData []byte, header EventHeaderStruct) (EventType, error) {
	event := EventType{
		RawCharges: make(map[uint16]*RawTelescopeData),
		PeCharges:  make(map[uint16]*GainCharges),
		Images:     make(map[uint16][]float64),
	}
	event.RunNumber = header.EventRunNb
	event.EventID = header.EventId
	event.Timestamp = uint64(header.EventTimestampSec)*1_000_000 + uint64(header.EventTimestampUsec)

	if header.EventMagic != EVENT_MAGIC_NUMBER {
		errMessage := fmt.Sprintf("event %d has wrong magic number: 0x%08x",
			header.EventId, uint32(header.EventMagic))
		logger.Error(errMessage)
		event.Error = true
		return event, nil
	}

	var mc EventMCStruct
	mcSize := unsafe.Sizeof(mc)
	if len(eventData) < int(mcSize) {
		return event, fmt.Errorf("event %d payload too short: %d bytes", header.EventId, len(eventData))
	}
	mcReader := bytes.NewReader(eventData[:mcSize])
	binary.Read(mcReader, binary.LittleEndian, &mc)

	event.Pointing = HorizonCoord{Alt: mc.PointingAlt, Az: mc.PointingAz}
	event.MC = ShowerTruth{
		Alt:    mc.TrueAlt,
		Az:     mc.TrueAz,
		Energy: mc.TrueEnergy,
		CoreX:  mc.CoreX,
		CoreY:  mc.CoreY,
	}

	position := int(mcSize)
	for t := 0; t < int(header.EventNTel); t++ {
		nRead, err := readTelescopeData(eventData, position, &event)
		if err != nil {
			return event, fmt.Errorf("event %d telescope block %d: %w", header.EventId, t, err)
		}
		position += nRead
	}
	return event, nil
}

func readTelescopeData(eventData []byte, position int, event *EventType) (int, error) {
	var telHeader TelescopeEventHeaderStruct
	telHeaderSize := unsafe.Sizeof(telHeader)
	if position+int(telHeaderSize) > len(eventData) {
		return 0, fmt.Errorf("truncated telescope block header")
	}
	telHeaderReader := bytes.NewReader(eventData[position : position+int(telHeaderSize)])
	binary.Read(telHeaderReader, binary.LittleEndian, &telHeader)

	blockEnd := position + int(telHeaderSize) + int(telHeader.BlockSize)
	if blockEnd > len(eventData) {
		return 0, fmt.Errorf("truncated telescope block payload")
	}
	payloadReader := bytes.NewReader(eventData[position+int(telHeaderSize) : blockEnd])

	npix := int(telHeader.NPixels)
	data := &RawTelescopeData{
		NPixels: npix,
		HiGain:  make([]uint16, npix),
	}
	if err := binary.Read(payloadReader, binary.LittleEndian, &data.HiGain); err != nil {
		return 0, err
	}
	if telHeader.NGains > 1 {
		data.LoGain = make([]uint16, npix)
		if err := binary.Read(payloadReader, binary.LittleEndian, &data.LoGain); err != nil {
			return 0, err
		}
	}
	event.RawCharges[uint16(telHeader.TelId)] = data

	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Telescope %d: %d pixels, %d gains", telHeader.TelId, npix, telHeader.NGains)
		logger.Info(message, "source")
	}
	return int(telHeaderSize) + int(telHeader.BlockSize), nil
}

// EventSource hands out the physics events of an open run file one at a
// time, honoring the skip and max-events windows and the allowed
// telescope list. It reads forward only.
type EventSource struct {
	File     *os.File
	EvtCount int
	allowed  map[uint16]bool
}

func NewEventSource(file *os.File) *EventSource {
	source := &EventSource{File: file, EvtCount: -1}
	if len(configuration.Telescopes) > 0 {
		source.allowed = make(map[uint16]bool)
		for _, telID := range configuration.Telescopes {
			source.allowed[telID] = true
		}
	}
	return source
}

func (s *EventSource) NextEvent() (*EventType, error) {
	header, eventData, err := s.nextPhysicsEvent()
	if err != nil {
		return nil, err
	}
	event, err := ReadArrayEvent(eventData, header)
	if err != nil {
		return nil, err
	}
	s.filterTelescopes(&event)
	return &event, nil
}

func (s *EventSource) nextPhysicsEvent() (EventHeaderStruct, []byte, error) {
	header, eventData, err := ReadEventFromFile(s.File)
	if err != nil {
		return header, nil, err
	}
	if !ValidEvent(header) {
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Skipping non-physics event with ID %d", header.EventId)
			logger.Info(message, "source")
		}
		return s.nextPhysicsEvent()
	}
	s.EvtCount++
	if s.EvtCount >= configuration.MaxEvents {
		if configuration.Verbosity > 0 {
			logger.Info("Max events reached", "source")
		}
		return header, nil, io.EOF
	}
	if s.EvtCount < configuration.Skip {
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Skipping event %d with ID %d", s.EvtCount, header.EventId)
			logger.Info(message, "source")
		}
		return s.nextPhysicsEvent()
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading event %d with ID %d", s.EvtCount, header.EventId)
		logger.Info(message, "source")
	}
	return header, eventData, nil
}

func (s *EventSource) filterTelescopes(event *EventType) {
	if s.allowed == nil {
		return
	}
	for telID := range event.RawCharges {
		if !s.allowed[telID] {
			delete(event.RawCharges, telID)
		}
	}
}
