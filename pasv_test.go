package ftpcore_test

import (
	"testing"

	ftp "go.tessera.dev/ftpcore"
	"go.tessera.dev/ftpcore/internal/mock"
)

func TestPasvManagerOpenThenAccept(t *testing.T) {
	net := mock.NewNet(&mock.ControlListener{})
	pl := &mock.PasvListener{LocalAddr: ftp.PasvAddr{IP: [4]byte{10, 11, 12, 13}, Port: 2125}}
	net.QueuePasv(pl)

	var pm ftp.PasvManager
	addr, err := pm.Open(net, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if addr.Port != 2125 {
		t.Fatalf("want port 2125, got %d", addr.Port)
	}
	if !pm.Listening() || pm.HasData() {
		t.Fatalf("want listening, no data yet")
	}

	// No connection queued: PollAccept is a no-op.
	if accepted, err := pm.PollAccept(); err != nil || accepted {
		t.Fatalf("premature accept: accepted=%v err=%v", accepted, err)
	}

	dataConn := &mock.Conn{}
	pl.Queue(dataConn)
	accepted, err := pm.PollAccept()
	if err != nil || !accepted || !pm.HasData() {
		t.Fatalf("want accepted, got accepted=%v err=%v hasData=%v", accepted, err, pm.HasData())
	}
	if pm.DataConn() != ftp.Conn(dataConn) {
		t.Fatal("DataConn does not return the accepted connection")
	}
}

func TestPasvManagerReopenClosesPrior(t *testing.T) {
	net := mock.NewNet(&mock.ControlListener{})
	pl1 := &mock.PasvListener{LocalAddr: ftp.PasvAddr{Port: 1}}
	pl2 := &mock.PasvListener{LocalAddr: ftp.PasvAddr{Port: 2}}
	net.QueuePasv(pl1)
	net.QueuePasv(pl2)

	var pm ftp.PasvManager
	if _, err := pm.Open(net, ""); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	conn := &mock.Conn{}
	pl1.Queue(conn)
	if _, err := pm.PollAccept(); err != nil {
		t.Fatalf("PollAccept: %v", err)
	}

	addr, err := pm.Open(net, "")
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if addr.Port != 2 {
		t.Fatalf("want second listener's port, got %d", addr.Port)
	}
	if !pl1.Closed() {
		t.Fatal("want prior listener closed on reopen")
	}
	if !conn.Closed {
		t.Fatal("want prior data connection closed on reopen")
	}
	if pm.HasData() {
		t.Fatal("want no data connection right after reopen")
	}
}

func TestPasvManagerCloseAllResetsSession(t *testing.T) {
	net := mock.NewNet(&mock.ControlListener{})
	pl := &mock.PasvListener{}
	net.QueuePasv(pl)

	var pm ftp.PasvManager
	var sess ftp.Session
	sess.Pasv = ftp.PasvListening
	if _, err := pm.Open(net, ""); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pm.CloseAll(&sess)
	if pm.Listening() || pm.HasData() {
		t.Fatal("want all passive resources closed")
	}
	if sess.Pasv != ftp.PasvIdle {
		t.Fatalf("want PasvIdle, got %v", sess.Pasv)
	}
	if !pl.Closed() {
		t.Fatal("want listener closed")
	}
}
