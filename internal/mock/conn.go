// Package mock provides deterministic, scripted Net and Fs doubles for
// exercising the engine one tick at a time. These follow the same minimal
// test-fake style as forward_test.go's
// fwReplayReader/fwWouldBlockWriter/fwSliceWriter: small structs with a
// scripted Read/Write that can inject short reads, short writes, and
// would-block, driven explicitly by the test rather than by real sockets.
package mock

import "go.tessera.dev/ftpcore"

// Conn is a scripted, in-memory Conn. Reads are served from a fixed byte
// slice with an optional per-call chunk cap; writes land in a growable
// buffer with an optional per-call chunk cap. Either direction can be told
// to return ErrWouldBlock for the next N calls.
type Conn struct {
	ReadData  []byte
	readOff   int
	ReadChunk int // 0 means unlimited
	ReadBlock int // number of upcoming Read calls that return would-block first

	Written    []byte
	WriteChunk int // 0 means unlimited
	WriteBlock int // number of upcoming Write calls that return would-block first

	Closed bool
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.Closed {
		return 0, ftpcore.ErrClosed
	}
	if c.ReadBlock > 0 {
		c.ReadBlock--
		return 0, ftpcore.ErrWouldBlock
	}
	if c.readOff >= len(c.ReadData) {
		return 0, ftpcore.ErrClosed
	}
	n := len(p)
	if c.ReadChunk > 0 && c.ReadChunk < n {
		n = c.ReadChunk
	}
	if rem := len(c.ReadData) - c.readOff; rem < n {
		n = rem
	}
	copy(p, c.ReadData[c.readOff:c.readOff+n])
	c.readOff += n
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	if c.Closed {
		return 0, ftpcore.ErrClosed
	}
	if c.WriteBlock > 0 {
		c.WriteBlock--
		return 0, ftpcore.ErrWouldBlock
	}
	n := len(p)
	if c.WriteChunk > 0 && c.WriteChunk < n {
		n = c.WriteChunk
	}
	c.Written = append(c.Written, p[:n]...)
	return n, nil
}

func (c *Conn) Close() error {
	c.Closed = true
	return nil
}

// EOF marks the read side exhausted without closing the connection, so a
// subsequent Read returns the "closed" signal the engine treats as EOF.
func (c *Conn) EOF() { c.readOff = len(c.ReadData) }

// ControlListener hands out at most one scripted Conn per AcceptControl
// call, then reports would-block until armed again with Queue.
type ControlListener struct {
	queue  []*Conn
	closed bool
}

func (l *ControlListener) Queue(c *Conn) { l.queue = append(l.queue, c) }

func (l *ControlListener) AcceptControl() (ftpcore.Conn, error) {
	if len(l.queue) == 0 {
		return nil, ftpcore.ErrWouldBlock
	}
	c := l.queue[0]
	l.queue = l.queue[1:]
	return c, nil
}

func (l *ControlListener) Close() error { l.closed = true; return nil }

// PasvListener is a scripted PasvListener: Addr is fixed at construction,
// AcceptData hands out at most one queued Conn.
type PasvListener struct {
	LocalAddr ftpcore.PasvAddr
	queue     []*Conn
	closed    bool
}

func (l *PasvListener) Queue(c *Conn)          { l.queue = append(l.queue, c) }
func (l *PasvListener) Addr() ftpcore.PasvAddr { return l.LocalAddr }
func (l *PasvListener) Closed() bool           { return l.closed }

func (l *PasvListener) AcceptData() (ftpcore.Conn, error) {
	if len(l.queue) == 0 {
		return nil, ftpcore.ErrWouldBlock
	}
	c := l.queue[0]
	l.queue = l.queue[1:]
	return c, nil
}

func (l *PasvListener) Close() error { l.closed = true; return nil }

// Net wires a fixed ControlListener and a sequence of PasvListeners: each
// PASV command consumes the next one in order, mirroring the way a real
// backend hands back a fresh listener bound to a new ephemeral port.
type Net struct {
	Control *ControlListener
	pasvSeq []*PasvListener
}

func NewNet(ctl *ControlListener) *Net { return &Net{Control: ctl} }

func (n *Net) QueuePasv(l *PasvListener) { n.pasvSeq = append(n.pasvSeq, l) }

func (n *Net) ListenControl(addr string) (ftpcore.ControlListener, error) {
	return n.Control, nil
}

func (n *Net) ListenPasv(hint string) (ftpcore.PasvListener, error) {
	if len(n.pasvSeq) == 0 {
		return nil, ftpcore.ErrAddrUnavailable
	}
	l := n.pasvSeq[0]
	n.pasvSeq = n.pasvSeq[1:]
	return l, nil
}
