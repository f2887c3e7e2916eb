package ftpcore_test

import (
	"testing"

	ftp "go.tessera.dev/ftpcore"
	"go.tessera.dev/ftpcore/internal/mock"
)

func setupAuthedWithPasv(t *testing.T, control string) (*ftp.Server, *mock.Conn, *mock.Conn, *mock.Fs) {
	t.Helper()
	ctl := &mock.ControlListener{}
	ctlConn := &mock.Conn{ReadData: []byte(control)}
	ctl.Queue(ctlConn)
	net := mock.NewNet(ctl)

	pl := &mock.PasvListener{LocalAddr: ftp.PasvAddr{IP: [4]byte{127, 0, 0, 1}, Port: 4242}}
	net.QueuePasv(pl)
	dataConn := &mock.Conn{}
	pl.Queue(dataConn)

	root := &mock.File{Name: "", IsDir: true, Entries: []*mock.File{
		{Name: "docs", IsDir: true},
		{Name: "pub", IsDir: true},
		{Name: "readme.txt", Content: []byte("mock-readme-bytes\n")},
	}}
	fs := mock.NewFs(root)

	srv := newTestServer(t, net, fs)
	return srv, ctlConn, dataConn, fs
}

func TestScenario3_ListDirectory(t *testing.T) {
	srv, ctlConn, dataConn, _ := setupAuthedWithPasv(t, "USER test\r\nPASS secret\r\nPASV\r\nLIST\r\nQUIT\r\n")
	runUntilQuiet(srv, ctlConn, 400)

	want := "drwxr-xr-x 1 owner group 0 Jan 01 00:00 docs\r\n" +
		"drwxr-xr-x 1 owner group 0 Jan 01 00:00 pub\r\n" +
		"-rw-r--r-- 1 owner group 18 Jan 01 00:00 readme.txt\r\n"
	if string(dataConn.Written) != want {
		t.Fatalf("data channel:\ngot:  %q\nwant: %q", dataConn.Written, want)
	}
	if !contains(string(ctlConn.Written), "150 Here comes the directory listing\r\n") ||
		!contains(string(ctlConn.Written), "226 Directory send OK\r\n") {
		t.Fatalf("control channel missing 150/226: %q", ctlConn.Written)
	}
}

func TestScenario4_RetrFile(t *testing.T) {
	srv, ctlConn, dataConn, _ := setupAuthedWithPasv(t, "USER test\r\nPASS secret\r\nPASV\r\nRETR readme.txt\r\nQUIT\r\n")
	runUntilQuiet(srv, ctlConn, 400)

	if string(dataConn.Written) != "mock-readme-bytes\n" {
		t.Fatalf("data channel got %q", dataConn.Written)
	}
	got := string(ctlConn.Written)
	if !contains(got, "150 Opening data connection\r\n") || !contains(got, "226 Closing data connection\r\n") {
		t.Fatalf("control channel missing 150/226: %q", got)
	}
}

func TestScenario5_StorWithPartialIO(t *testing.T) {
	ctl := &mock.ControlListener{}
	ctlConn := &mock.Conn{ReadData: []byte("USER test\r\nPASS secret\r\nPASV\r\nSTOR upload.bin\r\nQUIT\r\n")}
	ctl.Queue(ctlConn)
	net := mock.NewNet(ctl)

	pl := &mock.PasvListener{LocalAddr: ftp.PasvAddr{Port: 9}}
	net.QueuePasv(pl)
	// "hello " then would-block then "world" then EOF (closed).
	dataConn := &mock.Conn{ReadData: []byte("hello world"), ReadChunk: 6}
	pl.Queue(dataConn)

	root := &mock.File{Name: "", IsDir: true}
	fs := mock.NewFs(root)
	fs.WriteChunk = 3 // backend only accepts 3 bytes per write call

	srv := newTestServer(t, net, fs)

	// Drive until the data connection has delivered "hello ", then inject
	// one would-block before it delivers "world".
	for i := 0; i < 30 && len(dataConn.Written) == 0 && !ctlConnSent150(ctlConn); i++ {
		srv.Tick(int64(i))
	}
	dataConn.ReadBlock = 1
	runUntilQuiet(srv, ctlConn, 400)

	var uploaded *mock.File
	for _, e := range root.Entries {
		if e.Name == "upload.bin" {
			uploaded = e
		}
	}
	if uploaded == nil {
		t.Fatal("upload.bin was never created")
	}
	if string(uploaded.Content) != "hello world" {
		t.Fatalf("captured file = %q, want %q", uploaded.Content, "hello world")
	}
	got := string(ctlConn.Written)
	if !contains(got, "150 Opening data connection\r\n") || !contains(got, "226 Closing data connection\r\n") {
		t.Fatalf("control channel missing 150/226: %q", got)
	}
}

func ctlConnSent150(c *mock.Conn) bool {
	return contains(string(c.Written), "150 ")
}
