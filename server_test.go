package ftpcore_test

import (
	"testing"

	ftp "go.tessera.dev/ftpcore"
	"go.tessera.dev/ftpcore/internal/mock"
)

func newTestServer(t *testing.T, net *mock.Net, fs *mock.Fs, opts ...ftp.Option) *ftp.Server {
	t.Helper()
	base := []ftp.Option{ftp.WithCredentials("test", "secret"), ftp.WithBanner("FTP Server Ready")}
	cfg := ftp.NewConfig(append(base, opts...)...)
	srv, err := ftp.NewServer(net, fs, cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start("0.0.0.0:21"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return srv
}

// runUntilQuiet drives Tick until the control connection closes or budget
// ticks elapse, whichever comes first.
func runUntilQuiet(srv *ftp.Server, conn *mock.Conn, budget int) {
	for i := 0; i < budget; i++ {
		srv.Tick(int64(i))
		if conn.Closed {
			return
		}
	}
}

func TestScenario1_LoginFeatQuit(t *testing.T) {
	ctl := &mock.ControlListener{}
	conn := &mock.Conn{ReadData: []byte("USER test\r\nPASS secret\r\nSYST\r\nTYPE I\r\nFEAT\r\nQUIT\r\n")}
	ctl.Queue(conn)
	net := mock.NewNet(ctl)
	fs := mock.NewFs(&mock.File{Name: "", IsDir: true})

	srv := newTestServer(t, net, fs)
	runUntilQuiet(srv, conn, 200)

	want := "220 FTP Server Ready\r\n" +
		"331 User name okay, need password\r\n" +
		"230 User logged in\r\n" +
		"215 UNIX Type: L8\r\n" +
		"200 Type set to I\r\n" +
		"211-Features:\r\n" +
		" TYPE I\r\n" +
		" PASV\r\n" +
		" SIZE\r\n" +
		" MDTM\r\n" +
		"211 End\r\n" +
		"221 Bye\r\n"
	if string(conn.Written) != want {
		t.Fatalf("got:\n%q\nwant:\n%q", conn.Written, want)
	}
	if !conn.Closed {
		t.Fatal("want control connection closed after QUIT")
	}
}

func TestScenario2_RepeatedPasvClosesPrior(t *testing.T) {
	ctl := &mock.ControlListener{}
	conn := &mock.Conn{ReadData: []byte("USER test\r\nPASS secret\r\nPASV\r\nPASV\r\nQUIT\r\n")}
	ctl.Queue(conn)
	net := mock.NewNet(ctl)
	addr := ftp.PasvAddr{IP: [4]byte{10, 11, 12, 13}, Port: 2125}
	pl1 := &mock.PasvListener{LocalAddr: addr}
	pl2 := &mock.PasvListener{LocalAddr: addr}
	net.QueuePasv(pl1)
	net.QueuePasv(pl2)
	fs := mock.NewFs(&mock.File{Name: "", IsDir: true})

	srv := newTestServer(t, net, fs)
	runUntilQuiet(srv, conn, 200)

	const reply227 = "227 Entering Passive Mode (10,11,12,13,8,77)\r\n"
	got := string(conn.Written)
	count := 0
	for i := 0; i+len(reply227) <= len(got); i++ {
		if got[i:i+len(reply227)] == reply227 {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("want exactly two 227 replies, got %d in %q", count, got)
	}
	if !pl1.Closed() {
		t.Fatal("want the first listener closed once the second PASV runs")
	}
}

func TestScenario6_CwdErrorMapping(t *testing.T) {
	ctl := &mock.ControlListener{}
	conn := &mock.Conn{ReadData: []byte("USER test\r\nPASS secret\r\nCWD missing\r\nCWD locked\r\nCWD ioerr\r\nQUIT\r\n")}
	ctl.Queue(conn)
	net := mock.NewNet(ctl)
	fs := mock.NewFs(&mock.File{Name: "", IsDir: true})

	srv := newTestServer(t, net, fs)
	runUntilQuiet(srv, conn, 200)

	got := string(conn.Written)
	for _, want := range []string{
		"550 File not found\r\n",
		"550 Permission denied\r\n",
		"451 Requested action aborted: local error in processing\r\n",
	} {
		if !contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestSecondControlConnectionRejected(t *testing.T) {
	ctl := &mock.ControlListener{}
	// ReadBlock keeps the first client open through Tick(2): a mock Conn
	// whose scripted input is exhausted reports closed on its next Read.
	first := &mock.Conn{ReadData: []byte("USER test\r\n"), ReadBlock: 1}
	second := &mock.Conn{}
	ctl.Queue(first)
	ctl.Queue(second)
	net := mock.NewNet(ctl)
	fs := mock.NewFs(&mock.File{Name: "", IsDir: true})

	srv := newTestServer(t, net, fs)
	srv.Tick(0) // accepts first
	srv.Tick(1) // accepts & rejects second (queue still has it)
	srv.Tick(2)

	if string(second.Written) != "421 Too many users\r\n" {
		t.Fatalf("want 421 on second connection, got %q", second.Written)
	}
	if !second.Closed {
		t.Fatal("want second connection closed")
	}
	if first.Closed {
		t.Fatal("first session must be unaffected")
	}
}

func TestListRetrStorRequirePasvFirst(t *testing.T) {
	for _, cmd := range []string{"LIST\r\n", "RETR f\r\n", "STOR f\r\n"} {
		ctl := &mock.ControlListener{}
		conn := &mock.Conn{ReadData: []byte("USER test\r\nPASS secret\r\n" + cmd)}
		ctl.Queue(conn)
		net := mock.NewNet(ctl)
		fs := mock.NewFs(&mock.File{Name: "", IsDir: true})
		srv := newTestServer(t, net, fs)
		for i := 0; i < 50; i++ {
			srv.Tick(int64(i))
		}
		if !contains(string(conn.Written), "425 Use PASV first\r\n") {
			t.Fatalf("%s: want 425 Use PASV first, got %q", cmd, conn.Written)
		}
	}
}
