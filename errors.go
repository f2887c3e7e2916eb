package ftpcore

import "errors"

// Sentinel errors a Net or Fs backend reports to the core, and errors the
// core itself returns from Tick-adjacent helpers. Modeled as package-level
// sentinels usable with errors.Is, not a type hierarchy: one exported var
// per control-flow case.
var (
	// ErrWouldBlock signals that a backend call cannot proceed without
	// waiting. The core never surfaces this to a caller of Tick; it is
	// absorbed by the component that saw it and retried on the next tick.
	ErrWouldBlock = errors.New("ftpcore: would block")

	// ErrClosed signals that the connection or listener the call targeted
	// is gone. It triggers teardown of whatever scope owns the resource.
	ErrClosed = errors.New("ftpcore: closed")

	// ErrTimeout signals a timeout reported by a backend. The driver's own
	// idle timeouts (control, PASV, transfer) are enforced directly in
	// Server.applyTimeouts and do not produce this error.
	ErrTimeout = errors.New("ftpcore: timeout")

	// ErrAddrUnavailable signals that Net.ListenPasv could not obtain a
	// bindable local address.
	ErrAddrUnavailable = errors.New("ftpcore: address unavailable")

	// ErrIO is a generic backend I/O failure not covered by a more specific
	// kind. From an Fs call it maps to 451 (see fserror.go); a failed
	// data-connection write during a transfer is answered with 426.
	ErrIO = errors.New("ftpcore: io error")

	// ErrInvalidArgument reports a programmer error: a Storage region
	// smaller than its required minimum (see limits.go), or a reply queued
	// while another is still pending (see reply.go).
	ErrInvalidArgument = errors.New("ftpcore: invalid argument")

	// ErrLineTooLong reports that a reply would not fit in the reply
	// buffer. Overflowing the reply buffer while formatting is treated as
	// a caller sizing error and is mapped to 451 at the client.
	ErrLineTooLong = errors.New("ftpcore: line too long for buffer")
)

// Fs error kinds. Backends are free to wrap these with fmt.Errorf's
// %w verb; the driver tests with errors.Is.
var (
	ErrNotFound         = errors.New("ftpcore: not found")
	ErrNotDir           = errors.New("ftpcore: not a directory")
	ErrIsDir            = errors.New("ftpcore: is a directory")
	ErrExists           = errors.New("ftpcore: already exists")
	ErrPermissionDenied = errors.New("ftpcore: permission denied")
	ErrInvalidPath      = errors.New("ftpcore: invalid path")
	ErrNoSpace          = errors.New("ftpcore: insufficient storage space")
	ErrReadOnly         = errors.New("ftpcore: read-only")
	ErrUnsupported      = errors.New("ftpcore: operation not supported")
)

// Kind classifies an error returned by a Net or Fs backend into one of the
// buckets the driver's reply-mapping tables (fserror.go) switch over. Using
// one small enum instead of a chain of errors.Is checks at every call site
// keeps the reply-mapping table a single switch statement.
type Kind uint8

const (
	KindOther Kind = iota
	KindWouldBlock
	KindClosed
	KindTimeout
	KindAddrUnavailable
	KindIO
	KindNotFound
	KindNotDir
	KindIsDir
	KindExists
	KindPermissionDenied
	KindInvalidPath
	KindNoSpace
	KindReadOnly
	KindUnsupported
)

// KindOf classifies err against the sentinels above. A nil error classifies
// as KindOther; callers must check err != nil before consulting the kind
// when that distinction matters.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrWouldBlock):
		return KindWouldBlock
	case errors.Is(err, ErrClosed):
		return KindClosed
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrAddrUnavailable):
		return KindAddrUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotDir):
		return KindNotDir
	case errors.Is(err, ErrIsDir):
		return KindIsDir
	case errors.Is(err, ErrExists):
		return KindExists
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrInvalidPath):
		return KindInvalidPath
	case errors.Is(err, ErrNoSpace):
		return KindNoSpace
	case errors.Is(err, ErrReadOnly):
		return KindReadOnly
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindOther
	}
}
