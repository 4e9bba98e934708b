package reco

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

// ParameterizationError signals a degenerate image that cannot be
// reduced to Hillas moments. The affected telescope is skipped, the
// event survives.
type ParameterizationError struct {
	Reason string
}

func (e *ParameterizationError) Error() string {
	return fmt.Sprintf("image parameterization failed: %s", e.Reason)
}

// UnknownCameraError signals a telescope whose pixel count and focal
// length match no known camera. Geometry inference cannot proceed.
type UnknownCameraError struct {
	TelID       uint16
	NPixels     int
	FocalLength float64
}

func (e *UnknownCameraError) Error() string {
	return fmt.Sprintf("telescope %d: no camera with %d pixels and %.3f m focal length",
		e.TelID, e.NPixels, e.FocalLength)
}

// MissingCutsError signals a camera type with no entry in the selection
// cut table.
type MissingCutsError struct {
	CamType string
}

func (e *MissingCutsError) Error() string {
	return fmt.Sprintf("no selection cuts registered for camera type %q", e.CamType)
}

// NotConfiguredError signals an energy prediction requested before the
// event properties were set.
type NotConfiguredError struct{}

func (e *NotConfiguredError) Error() string {
	return "energy estimator: event properties not set before prediction"
}
