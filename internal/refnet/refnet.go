// Package refnet is a reference, non-production Net backend over real TCP
// sockets. No package or test in this module imports it; the engine's tests
// use the scripted mock package.
//
// The non-blocking accept/read/write plumbing follows the low-level fd
// handling jacobsa-fuse's fuseops package uses golang.org/x/sys/unix for
// (syscall-level error classification against OS constants rather than
// net.Error.Timeout() string-sniffing); here the same package classifies
// EAGAIN/EWOULDBLOCK on a raw socket fd obtained via SyscallConn.
package refnet

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"go.tessera.dev/ftpcore"
)

// pastDeadline returns a deadline already in the past, so Accept calls on
// a TCPListener return immediately with a timeout error instead of
// blocking — there is no non-blocking accept primitive in net.TCPListener,
// so a perpetually-expired deadline is the idiomatic substitute.
func pastDeadline() time.Time { return time.Now().Add(-time.Second) }

// Conn wraps a *net.TCPConn placed in non-blocking mode, translating
// EAGAIN/EWOULDBLOCK into ftpcore.ErrWouldBlock and EOF/use-of-closed into
// ftpcore.ErrClosed.
type Conn struct {
	tcp *net.TCPConn
	raw syscall.RawConn
}

func newConn(c *net.TCPConn) (*Conn, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, err
	}
	return &Conn{tcp: c, raw: raw}, nil
}

// Read issues exactly one non-blocking syscall. The callback always
// reports "done" to RawConn.Read so the runtime netpoller never parks this
// goroutine waiting for readability — that would reintroduce the blocking
// behavior the engine is built to avoid.
func (c *Conn) Read(p []byte) (n int, err error) {
	opErr := c.raw.Read(func(fd uintptr) bool {
		n, err = unix.Read(int(fd), p)
		return true
	})
	if opErr != nil {
		return 0, ftpcore.ErrClosed
	}
	if err != nil {
		return 0, translate(err)
	}
	if n == 0 {
		return 0, ftpcore.ErrClosed
	}
	return n, nil
}

// Write issues exactly one non-blocking syscall, for the same reason Read
// does.
func (c *Conn) Write(p []byte) (n int, err error) {
	opErr := c.raw.Write(func(fd uintptr) bool {
		n, err = unix.Write(int(fd), p)
		return true
	})
	if opErr != nil {
		return 0, ftpcore.ErrClosed
	}
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (c *Conn) Close() error {
	return c.tcp.Close()
}

func translate(err error) error {
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return ftpcore.ErrWouldBlock
	}
	return ftpcore.ErrIO
}

// ControlListener accepts control connections on a real TCP listener.
type ControlListener struct {
	l *net.TCPListener
}

func (cl *ControlListener) AcceptControl() (ftpcore.Conn, error) {
	tc, err := cl.l.AcceptTCP()
	if err != nil {
		// The listener's perpetually-expired deadline (see pastDeadline)
		// turns "nothing pending" into a timeout error here.
		return nil, ftpcore.ErrWouldBlock
	}
	return newConn(tc)
}

func (cl *ControlListener) Close() error { return cl.l.Close() }

// PasvListener accepts one data connection on a real, ephemeral-port TCP
// listener bound for a single PASV lifecycle.
type PasvListener struct {
	l    *net.TCPListener
	addr ftpcore.PasvAddr
}

func (pl *PasvListener) Addr() ftpcore.PasvAddr { return pl.addr }

func (pl *PasvListener) AcceptData() (ftpcore.Conn, error) {
	tc, err := pl.l.AcceptTCP()
	if err != nil {
		return nil, ftpcore.ErrWouldBlock
	}
	return newConn(tc)
}

func (pl *PasvListener) Close() error { return pl.l.Close() }

// Net is the real-socket Net backend. Every listener is given a deadline
// already in the past (see pastDeadline) so Accept never blocks.
type Net struct {
	ip [4]byte
}

// New builds a Net that advertises ip (its own address) in PASV replies.
func New(ip [4]byte) *Net { return &Net{ip: ip} }

func (n *Net) ListenControl(addr string) (ftpcore.ControlListener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, ftpcore.ErrAddrUnavailable
	}
	l, err := net.ListenTCP("tcp4", tcpAddr)
	if err != nil {
		return nil, ftpcore.ErrAddrUnavailable
	}
	if err := l.SetDeadline(pastDeadline()); err != nil {
		_ = l.Close()
		return nil, ftpcore.ErrIO
	}
	return &ControlListener{l: l}, nil
}

func (n *Net) ListenPasv(hint string) (ftpcore.PasvListener, error) {
	l, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: net.IPv4(n.ip[0], n.ip[1], n.ip[2], n.ip[3])})
	if err != nil {
		return nil, ftpcore.ErrAddrUnavailable
	}
	if err := l.SetDeadline(pastDeadline()); err != nil {
		_ = l.Close()
		return nil, ftpcore.ErrIO
	}
	port := uint16(l.Addr().(*net.TCPAddr).Port)
	return &PasvListener{l: l, addr: ftpcore.PasvAddr{IP: n.ip, Port: port}}, nil
}
