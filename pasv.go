package ftpcore

import "errors"

// PasvManager owns the passive-mode listener and data connection for the
// single active session. The driver (Server) holds one instance
// and drives it once per tick; Session.Pasv tracks only the phase enum, the
// manager owns the actual resources.
type PasvManager struct {
	listener PasvListener
	data     Conn
}

// Listening reports whether a passive listener is currently open.
func (p *PasvManager) Listening() bool { return p.listener != nil }

// HasData reports whether a data connection has been accepted.
func (p *PasvManager) HasData() bool { return p.data != nil }

// DataConn returns the accepted data connection, or nil if none yet.
func (p *PasvManager) DataConn() Conn { return p.data }

// Open closes any existing passive listener and data connection, then asks
// net for a fresh one. On success it returns the listener's local address
// for the 227 reply; on failure the caller queues 425 and the session's
// Pasv phase stays/returns to idle.
func (p *PasvManager) Open(net Net, hint string) (PasvAddr, error) {
	p.teardown()
	l, err := net.ListenPasv(hint)
	if err != nil {
		return PasvAddr{}, err
	}
	p.listener = l
	return l.Addr(), nil
}

// PollAccept attempts one non-blocking accept when no data connection
// exists yet. It is a no-op once a data connection is already held. A
// would-block from the listener is absorbed and reported as (false, nil).
func (p *PasvManager) PollAccept() (accepted bool, err error) {
	if p.data != nil || p.listener == nil {
		return false, nil
	}
	c, err := p.listener.AcceptData()
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return false, nil
		}
		return false, err
	}
	p.data = c
	return true, nil
}

// teardown closes both the data connection and the listener, idempotently.
func (p *PasvManager) teardown() {
	if p.data != nil {
		_ = p.data.Close()
		p.data = nil
	}
	if p.listener != nil {
		_ = p.listener.Close()
		p.listener = nil
	}
}

// CloseAll tears down all passive resources and resets sess.Pasv to idle.
func (p *PasvManager) CloseAll(sess *Session) {
	p.teardown()
	sess.Pasv = PasvIdle
}
