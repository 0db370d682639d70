package diagnostics

import (
	"errors"
	"fmt"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Kind sentinels. Match with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrEncoding         = errors.New("encoding error")
	ErrTransport        = errors.New("transport error")
	ErrSimulationClosed = errors.New("simulation closed")
)

// Error ties a failed operation to one of the kind sentinels.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Configf(op, format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

func Encodingf(op, format string, args ...any) error {
	return &Error{Kind: ErrEncoding, Op: op, Err: fmt.Errorf(format, args...)}
}

// Transport wraps a bus or device failure. A nil err stays nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return &Error{Kind: ErrTransport, Op: op, Err: err}
}

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// FromError classifies err into a Diagnostic for the preview feed and logs.
func FromError(err error) Diagnostic {
	d := Diagnostic{Severity: Err, Code: "PIPELINE.UNKNOWN", Summary: "Unclassified failure"}
	if err == nil {
		return Diagnostic{Severity: Info, Code: "PIPELINE.OK", Summary: "Frame delivered"}
	}
	d.Detail = err.Error()
	switch {
	case errors.Is(err, ErrSimulationClosed):
		d.Severity = Info
		d.Code = "SIM.CLOSED"
		d.Summary = "Simulation surface closed"
	case errors.Is(err, ErrTransport):
		d.Code = "LED.TRANSPORT"
		d.Summary = "Frame write failed"
		d.LikelyCauses = []string{"bus disconnected", "device busy", "permissions on the device node"}
		d.SuggestedFixes = []string{"check wiring and power", "verify the port name in config"}
	case errors.Is(err, ErrEncoding):
		d.Code = "LED.ENCODING"
		d.Summary = "Pixel buffer does not match the driver"
	case errors.Is(err, ErrConfiguration):
		d.Code = "CONFIG.INVALID"
		d.Summary = "Invalid configuration"
		d.SuggestedFixes = []string{"compare pixel_count with the shapes in config"}
	}
	return d
}
