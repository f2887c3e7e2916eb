package ftpcore

// AuthPhase is the session's authentication state.
type AuthPhase uint8

const (
	AuthNeedUser AuthPhase = iota
	AuthNeedPass
	AuthAuthed
	AuthClosing
)

// PasvPhase is the session's passive-mode lifecycle state.
type PasvPhase uint8

const (
	PasvIdle PasvPhase = iota
	PasvListening
	PasvDataConnected
	PasvTransferring
	PasvClosing
)

// Session is the per-connection state with a lifetime bound to the current
// control connection. Only the driver (Server) mutates it.
type Session struct {
	Auth   AuthPhase
	Binary bool // transfer type; always true in this MVP
	CwdReady bool
	Pasv   PasvPhase

	cwd Cwd

	// Pending-rename buffer, bounded by PathMax. renameLen == 0 means no
	// RNFR is pending. This is session-owned storage, distinct from
	// Storage.Scratch, because it must outlive the RNFR command handler
	// that wrote it.
	renameFrom [PathMax]byte
	renameLen  int
}

// Reset returns the session to its just-accepted state. Storage buffers are owned separately and are not
// touched here.
func (s *Session) Reset() {
	s.Auth = AuthNeedUser
	s.Binary = true
	s.CwdReady = false
	s.Pasv = PasvIdle
	s.cwd = nil
	s.renameLen = 0
}

// RenamePending reports whether an RNFR is awaiting its RNTO.
func (s *Session) RenamePending() bool { return s.renameLen > 0 }

// RenameFrom returns the path recorded by RNFR, valid only while
// RenamePending is true.
func (s *Session) RenameFrom() []byte { return s.renameFrom[:s.renameLen] }

// setRenameFrom records path for a later RNTO. It fails with
// ErrInvalidPath if path exceeds PathMax, mapping to the 553 reply used
// for RNFR overflow.
func (s *Session) setRenameFrom(path []byte) error {
	if len(path) > PathMax {
		return ErrInvalidPath
	}
	s.renameLen = copy(s.renameFrom[:], path)
	return nil
}

// clearRename drops any pending RNFR, whether RNTO consumed it (success or
// failure) or control closed.
func (s *Session) clearRename() { s.renameLen = 0 }
