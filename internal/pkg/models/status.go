package models

// SourceState is the top-level outcome a collector reported for a cycle.
type SourceState string

const (
	SourceOK    SourceState = "ok"
	SourceError SourceState = "error"
	// SourceUnknown means no report was received this cycle. Sources that
	// never report status are treated as ok for backward compatibility.
	SourceUnknown SourceState = "unknown"
)

// ErrorKind classifies a collector failure. Every collector must reduce its
// internal retry outcome to one of these regardless of strategy.
type ErrorKind string

const (
	ErrorHTTP     ErrorKind = "http"
	ErrorNetwork  ErrorKind = "network"
	ErrorTimeout  ErrorKind = "timeout"
	ErrorGeoblock ErrorKind = "geoblock"
	ErrorParse    ErrorKind = "parse"
	ErrorEmpty    ErrorKind = "empty"
)

// SourceStatus is set once per collection cycle before correlation begins
// and read-only afterward.
type SourceStatus struct {
	State   SourceState `json:"state"`
	Kind    ErrorKind   `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// StatusOK is the status of a source that collected normally.
func StatusOK() SourceStatus {
	return SourceStatus{State: SourceOK}
}

// StatusError builds an error status with a kind and operator-facing message.
func StatusError(kind ErrorKind, msg string) SourceStatus {
	return SourceStatus{State: SourceError, Kind: kind, Message: msg}
}

// Contributes reports whether a source with this status may contribute
// events to correlation. Unknown counts as ok.
func (s SourceStatus) Contributes() bool {
	return s.State != SourceError
}
