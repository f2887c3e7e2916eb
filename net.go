package ftpcore

import "strconv"

// Conn is a non-blocking byte connection: a control connection or a data
// connection. Reads and writes never block; an operation that cannot make
// progress returns (0, ErrWouldBlock) and the caller retries on the next
// tick. A connection that has gone away returns ErrClosed. Short reads and
// short writes are both permitted and expected.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	// Close is idempotent; calling it more than once is not an error.
	Close() error
}

// ControlListener accepts at most one control connection at a time.
type ControlListener interface {
	// AcceptControl returns ErrWouldBlock when no connection is waiting.
	AcceptControl() (Conn, error)
	Close() error
}

// PasvAddr is the local address of a passive-mode data listener, reported
// so the driver can format the 227 reply. IPv4 only.
type PasvAddr struct {
	IP   [4]byte
	Port uint16
}

// PasvListener accepts at most one data connection before it must be torn
// down and reopened by a fresh PASV.
type PasvListener interface {
	Addr() PasvAddr
	// AcceptData returns ErrWouldBlock when no connection is waiting.
	AcceptData() (Conn, error)
	Close() error
}

// Net is the capability contract the core consumes for all networking. A
// concrete implementation (OS sockets, an in-memory test double, …) is
// supplied by the embedder. The core never performs I/O except through
// this interface.
type Net interface {
	// ListenControl opens the control listener bound to addr. Called once,
	// before the first Tick.
	ListenControl(addr string) (ControlListener, error)

	// ListenPasv opens a fresh passive-data listener. hint is the local
	// address of the current control connection, if the backend finds it
	// useful for choosing a bind address; it may be empty.
	ListenPasv(hint string) (PasvListener, error)
}

// FormatPasvAddr renders addr into the six-decimal "h1,h2,h3,h4,p1,p2" tuple
// used inside a 227 reply, with the port's high byte first. buf must have
// room for the formatted bytes;
// FormatPasvAddr returns the number of bytes written.
func FormatPasvAddr(buf []byte, addr PasvAddr) int {
	n := 0
	n += copy(buf[n:], strconv.Itoa(int(addr.IP[0])))
	buf[n] = ','
	n++
	n += copy(buf[n:], strconv.Itoa(int(addr.IP[1])))
	buf[n] = ','
	n++
	n += copy(buf[n:], strconv.Itoa(int(addr.IP[2])))
	buf[n] = ','
	n++
	n += copy(buf[n:], strconv.Itoa(int(addr.IP[3])))
	buf[n] = ','
	n++
	n += copy(buf[n:], strconv.Itoa(int(addr.Port>>8)))
	buf[n] = ','
	n++
	n += copy(buf[n:], strconv.Itoa(int(addr.Port&0xFF)))
	return n
}
