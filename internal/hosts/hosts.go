package hosts

import (
	"fmt"

	"github.com/Nandox7/goprinthost/internal/transport"
)

// ErrorKind classifies a failed print host operation so callers can
// react differently to e.g. a wrong backend versus an unreachable one.
type ErrorKind int

const (
	// KindConnection covers transport failures and probe responses
	// missing required structure.
	KindConnection ErrorKind = iota
	// KindParse means the probe body could not be decoded.
	KindParse
	// KindVersionMismatch means the server answered but identified
	// itself as a different backend.
	KindVersionMismatch
	// KindUpload covers transfer-phase failures other than cancellation.
	KindUpload
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindParse:
		return "parse error"
	case KindVersionMismatch:
		return "version mismatch"
	case KindUpload:
		return "upload error"
	default:
		return "unknown error"
	}
}

// Error is a classified print host failure. Body and Status are set when
// the server produced a response.
type Error struct {
	Kind    ErrorKind
	Message string
	Body    string
	Status  int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// UploadRequest describes one file transfer. UploadPath is the name the
// server should present; only its final component and parent are used.
type UploadRequest struct {
	SourcePath string
	UploadPath string
	StartPrint bool
}

// ProgressFn receives upload progress. Setting *cancel aborts the
// transfer; cancellation is reported through the return value of Upload,
// not through the error callback.
type ProgressFn func(p transport.Progress, cancel *bool)

// ErrorFn receives the classified failure message for an upload.
type ErrorFn func(msg string)

// PrintHost is the capability set shared by all print host backends.
// Implementations are selected at configuration time; both Test and
// Upload block until the operation finishes.
type PrintHost interface {
	// GetName identifies the backend implementation.
	GetName() string
	// Test probes the host and validates its identity. A nil return
	// means the host is reachable and compatible; otherwise the error is
	// a *Error carrying the classified kind.
	Test() error
	// Upload transfers a file, probing first. It returns true iff the
	// file was fully transmitted.
	Upload(req UploadRequest, progressFn ProgressFn, errorFn ErrorFn) bool
	// SuccessMessage is the user-facing confirmation for a passing Test.
	SuccessMessage() string
	// FailureMessage wraps a failure message with the backend's
	// user-facing prefix and version note.
	FailureMessage(msg string) string
}

// FormatError builds the user-facing message for a transport failure.
// With an HTTP status the body is the most useful part; without one only
// the transport's error text is available.
func FormatError(body, errMsg string, status int) string {
	if status != 0 {
		return fmt.Sprintf("HTTP %d: %s", status, body)
	}
	return errMsg
}
