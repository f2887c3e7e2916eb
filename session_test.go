package ftpcore

import (
	"bytes"
	"errors"
	"testing"
)

func TestSessionResetReturnsToNeedUser(t *testing.T) {
	var s Session
	s.Auth = AuthAuthed
	s.Pasv = PasvTransferring
	s.Reset()
	if s.Auth != AuthNeedUser || s.Pasv != PasvIdle || !s.Binary {
		t.Fatalf("Reset left unexpected state: %+v", s)
	}
}

func TestSessionRenamePendingLifecycle(t *testing.T) {
	var s Session
	if s.RenamePending() {
		t.Fatal("want no rename pending initially")
	}
	if err := s.setRenameFrom([]byte("a/b.txt")); err != nil {
		t.Fatalf("setRenameFrom: %v", err)
	}
	if !s.RenamePending() || !bytes.Equal(s.RenameFrom(), []byte("a/b.txt")) {
		t.Fatalf("rename not recorded: pending=%v from=%q", s.RenamePending(), s.RenameFrom())
	}
	s.clearRename()
	if s.RenamePending() {
		t.Fatal("want cleared")
	}
}

func TestSessionRenameFromOverflow(t *testing.T) {
	var s Session
	long := bytes.Repeat([]byte("a"), PathMax+1)
	if err := s.setRenameFrom(long); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("want ErrInvalidPath, got %v", err)
	}
}
