package reco

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	hdf5 "github.com/next-exp/hdf5-go"
	"golang.org/x/exp/maps"
)

type Writer struct {
	File            *hdf5.File
	Filename        string
	ProcID          string
	RunGroup        *hdf5.Group
	InstrumentGroup *hdf5.Group
	RecoGroup       *hdf5.Group
	ConfigGroup     *hdf5.Group
	EventTable      *hdf5.Dataset
	RunInfoTable    *hdf5.Dataset
	RecoTable       *hdf5.Dataset
	TelescopeTable  *hdf5.Dataset
	CutsTable       *hdf5.Dataset
	EvtCounter      int
}

func NewWriter(filename string, procID string) (*Writer, error) {
	// Set string size for HDF5
	hdf5.SetStringLength(STRLEN)

	if configuration.UseBlosc {
		blosc_version, blosc_date, err := hdf5.RegisterBlosc()
		fmt.Println("Blosc version: ", blosc_version, " date: ", blosc_date)
		if err != nil {
			logger.Error(err.Error())
		}
	}

	writer := &Writer{
		Filename: filename,
		ProcID:   procID,
	}
	fmt.Println("hdf5writer: Creating file: ", filename)

	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if writer.RunGroup, err = createGroup(writer.File, "Run"); err != nil {
		return nil, err
	}
	if writer.InstrumentGroup, err = createGroup(writer.File, "Instrument"); err != nil {
		return nil, err
	}
	if writer.RecoGroup, err = createGroup(writer.File, "Reco"); err != nil {
		return nil, err
	}
	if writer.ConfigGroup, err = createGroup(writer.File, "Config"); err != nil {
		return nil, err
	}
	if writer.EventTable, err = createTable(writer.RunGroup, "events", EventDataHDF5{}); err != nil {
		return nil, err
	}
	if writer.RunInfoTable, err = createTable(writer.RunGroup, "runInfo", RunInfoHDF5{}); err != nil {
		return nil, err
	}
	if writer.RecoTable, err = createTable(writer.RecoGroup, "events", RecoEventHDF5{}); err != nil {
		return nil, err
	}
	if writer.TelescopeTable, err = createTable(writer.InstrumentGroup, "telescopes", TelescopeHDF5{}); err != nil {
		return nil, err
	}
	if writer.CutsTable, err = createTable(writer.ConfigGroup, "cuts", CutParamHDF5{}); err != nil {
		return nil, err
	}
	writer.EvtCounter = 0
	return writer, nil
}

// WriteRunInfo writes the once-per-run tables: run number and
// processing id, the telescope layout with the inferred camera types,
// and the selection cuts in force.
func (w *Writer) WriteRunInfo(runNumber uint32, instrument *InstrumentInfo, camTypes map[uint16]string, cuts CutTable) error {
	runInfo := RunInfoHDF5{
		run_number: int32(runNumber),
		proc_id:    convertToHdf5String(w.ProcID),
	}
	if err := writeEntryToTable(w.RunInfoTable, runInfo, 0); err != nil {
		return err
	}

	telescopes := sortTelescopesByID(instrument, camTypes)
	if err := writeArrayToTable(w.TelescopeTable, &telescopes, 0); err != nil {
		return err
	}

	return w.writeCutsConfiguration(cuts)
}

func sortTelescopesByID(instrument *InstrumentInfo, camTypes map[uint16]string) []TelescopeHDF5 {
	// The array MUST be allocated at creation, if not, HDF5 will panic
	// doing appends will not work
	sorted := make([]TelescopeHDF5, len(instrument.Telescopes))
	count := 0
	for telID, telescope := range instrument.Telescopes {
		sorted[count] = TelescopeHDF5{
			tel_id:       int32(telID),
			n_pixels:     int32(telescope.NPixels),
			cam_type:     convertToHdf5String(camTypes[telID]),
			focal_length: telescope.FocalLength,
			pos_x:        telescope.TelPosX,
			pos_y:        telescope.TelPosY,
			pos_z:        telescope.TelPosZ,
		}
		count++
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].tel_id < sorted[j].tel_id
	})
	return sorted
}

// writeCutsConfiguration flattens the cut table into (param, value)
// rows, one per numeric field, named through the hdf5 field tags.
func (w *Writer) writeCutsConfiguration(cuts CutTable) error {
	camTypes := maps.Keys(cuts)
	sort.Strings(camTypes)

	entries := make([]CutParamHDF5, 0, 4*len(camTypes))
	for _, camType := range camTypes {
		entries = append(entries, flattenCutParams(camType, reflect.ValueOf(cuts[camType]))...)
	}
	return writeArrayToTable(w.CutsTable, &entries, 0)
}

func flattenCutParams(prefix string, v reflect.Value) []CutParamHDF5 {
	t := v.Type()
	entries := make([]CutParamHDF5, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		paramName := f.Tag.Get("hdf5")
		switch f.Type.Kind() {
		case reflect.Float64:
			entries = append(entries, CutParamHDF5{
				paramStr: convertToHdf5String(prefix + "." + paramName),
				value:    v.Field(i).Float(),
			})
		case reflect.Struct:
			entries = append(entries, flattenCutParams(prefix, v.Field(i))...)
		}
	}
	return entries
}

func (w *Writer) WriteEvent(row *ReconstructedEvent) error {
	recoRow := RecoEventHDF5{
		event_id: int64(row.EventID),
		reco_alt: row.RecoAlt,
		reco_az:  row.RecoAz,
		reco_en:  row.RecoEnergy,
		sim_alt:  row.TrueAlt,
		sim_az:   row.TrueAz,
		sim_en:   row.TrueEnergy,
		ntels:    int16(row.NTelescopes),
	}
	if err := writeEntryToTable(w.RecoTable, recoRow, w.EvtCounter); err != nil {
		return err
	}

	eventRow := EventDataHDF5{
		evt_number: int32(row.EventID),
		timestamp:  row.Timestamp,
	}
	if err := writeEntryToTable(w.EventTable, eventRow, w.EvtCounter); err != nil {
		return err
	}

	w.EvtCounter++
	return nil
}

func (w *Writer) Close() error {
	fmt.Println("Closing file hdf writer ", w.Filename)
	var errs []error

	if err := w.EventTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing event table: %w", err))
	}
	if err := w.RunInfoTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing run info table: %w", err))
	}
	if err := w.RecoTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing reco table: %w", err))
	}
	if err := w.TelescopeTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing telescope table: %w", err))
	}
	if err := w.CutsTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing cuts table: %w", err))
	}
	if err := w.RunGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing run group: %w", err))
	}
	if err := w.InstrumentGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing instrument group: %w", err))
	}
	if err := w.RecoGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing reco group: %w", err))
	}
	if err := w.ConfigGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing config group: %w", err))
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
