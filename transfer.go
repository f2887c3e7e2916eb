package ftpcore

import (
	"errors"
	"strconv"
)

// transferPhase is shared by the three transfer records: idle, then
// waiting for the PASV data connection to be accepted, then streaming.
type transferPhase uint8

const (
	xferIdle transferPhase = iota
	xferWaitingAccept
	xferStreaming
)

// ListXfer is the LIST transfer record.
type ListXfer struct {
	phase     transferPhase
	path      string
	iter      DirIter
	lineOff   int
	lineLen   int
	exhausted bool
	sent      int64
}

// Active reports whether a LIST is in flight.
func (x *ListXfer) Active() bool { return x.phase != xferIdle }

// RetrXfer is the RETR transfer record.
type RetrXfer struct {
	phase    transferPhase
	path     string
	file     FileReader
	chunkOff int
	chunkLen int
	eof      bool
	sent     int64
}

// Active reports whether a RETR is in flight.
func (x *RetrXfer) Active() bool { return x.phase != xferIdle }

// StorXfer is the STOR transfer record.
type StorXfer struct {
	phase    transferPhase
	path     string
	file     FileWriter
	chunkOff int
	chunkLen int
	eof      bool
	received int64
}

// Active reports whether a STOR is in flight.
func (x *StorXfer) Active() bool { return x.phase != xferIdle }

// checkTransferPreconditions gates LIST/RETR/STOR: a transfer command is
// only dispatched when authed (the caller already checked that via the
// normal auth gate) and PASV is not idle. On failure it queues 425 and
// returns false; the command handler must not open a stream in that case.
func (srv *Server) checkTransferPreconditions() bool {
	if srv.sess.Pasv == PasvIdle {
		_ = srv.reply.QueueSingle(425, "Use PASV first")
		return false
	}
	return true
}

// ---- LIST ----

func (srv *Server) openList(path string) {
	if !srv.checkTransferPreconditions() {
		return
	}
	iter, err := srv.fs.OpenDir(path)
	if err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	srv.list = ListXfer{phase: xferWaitingAccept, path: path}
	srv.list.iter = iter
}

func (srv *Server) driveList() {
	x := &srv.list
	if x.phase == xferIdle || srv.reply.Pending() {
		return
	}
	switch x.phase {
	case xferWaitingAccept:
		srv.driveListWaitingAccept(x)
	case xferStreaming:
		srv.driveListStreaming(x)
	}
}

func (srv *Server) driveListWaitingAccept(x *ListXfer) {
	if !srv.pasv.HasData() {
		if srv.sess.Pasv == PasvListening {
			return
		}
		srv.abortList(425, "Use PASV first")
		return
	}
	_ = srv.reply.QueueSingle(150, "Here comes the directory listing")
	x.phase = xferStreaming
	srv.sess.Pasv = PasvTransferring
	srv.transferLastMs = srv.nowMs
}

func (srv *Server) driveListStreaming(x *ListXfer) {
	conn := srv.pasv.DataConn()
	buf := srv.storage.Transfer

	if x.lineOff < x.lineLen {
		n, err := conn.Write(buf[x.lineOff:x.lineLen])
		if n > 0 {
			x.lineOff += n
			x.sent += int64(n)
			srv.transferLastMs = srv.nowMs
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return
			}
			srv.abortList(426, "Connection closed; transfer aborted")
			return
		}
		if n == 0 {
			srv.abortList(426, "Connection closed; transfer aborted")
		}
		return
	}

	if x.exhausted {
		srv.completeList()
		return
	}

	entry, ok, err := x.iter.Next()
	if err != nil {
		_ = queueFsError(srv.reply, err)
		srv.teardownList()
		return
	}
	if !ok {
		x.exhausted = true
		return
	}
	srv.transferLastMs = srv.nowMs
	n, fits := formatListEntry(buf, entry)
	if !fits {
		_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
		srv.teardownList()
		return
	}
	x.lineOff = 0
	x.lineLen = n
}

func (srv *Server) completeList() {
	_ = srv.list.iter.Close()
	srv.pasv.CloseAll(&srv.sess)
	_ = srv.reply.QueueSingle(226, "Directory send OK")
	srv.logTransfer("LIST", srv.list.path, srv.list.sent, 226)
	srv.list = ListXfer{}
}

func (srv *Server) abortList(code int, text string) {
	if srv.list.iter != nil {
		_ = srv.list.iter.Close()
	}
	srv.pasv.CloseAll(&srv.sess)
	_ = srv.reply.QueueSingle(code, text)
	srv.logTransfer("LIST", srv.list.path, srv.list.sent, code)
	srv.list = ListXfer{}
}

func (srv *Server) teardownList() {
	if srv.list.iter != nil {
		_ = srv.list.iter.Close()
	}
	srv.pasv.CloseAll(&srv.sess)
	srv.list = ListXfer{}
}

// formatListEntry renders one directory entry in the stable UNIX-like form:
// "<mode> 1 owner group <size> Jan 01 00:00 <name>\r\n".
func formatListEntry(buf []byte, e DirEntry) (n int, fits bool) {
	mode := "-rw-r--r--"
	if e.Kind == EntryDir {
		mode = "drwxr-xr-x"
	}
	size := int64(0)
	if e.HasSize {
		size = e.Size
	}
	parts := []string{mode, " 1 owner group ", strconv.FormatInt(size, 10), " Jan 01 00:00 ", e.Name}
	need := 2
	for _, p := range parts {
		need += len(p)
	}
	if need > len(buf) {
		return 0, false
	}
	off := 0
	for _, p := range parts {
		off += copy(buf[off:], p)
	}
	buf[off] = '\r'
	buf[off+1] = '\n'
	return off + 2, true
}

// ---- RETR ----

func (srv *Server) openRetr(path string) {
	if !srv.checkTransferPreconditions() {
		return
	}
	if path == "" {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	f, err := srv.fs.OpenRead(path)
	if err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	srv.retr = RetrXfer{phase: xferWaitingAccept, path: path}
	srv.retr.file = f
}

func (srv *Server) driveRetr() {
	x := &srv.retr
	if x.phase == xferIdle || srv.reply.Pending() {
		return
	}
	switch x.phase {
	case xferWaitingAccept:
		srv.driveRetrWaitingAccept(x)
	case xferStreaming:
		srv.driveRetrStreaming(x)
	}
}

func (srv *Server) driveRetrWaitingAccept(x *RetrXfer) {
	if !srv.pasv.HasData() {
		if srv.sess.Pasv == PasvListening {
			return
		}
		srv.abortRetr(425, "Use PASV first")
		return
	}
	_ = srv.reply.QueueSingle(150, "Opening data connection")
	x.phase = xferStreaming
	srv.sess.Pasv = PasvTransferring
	srv.transferLastMs = srv.nowMs
}

func (srv *Server) driveRetrStreaming(x *RetrXfer) {
	conn := srv.pasv.DataConn()
	buf := srv.storage.Transfer

	if x.chunkOff < x.chunkLen {
		n, err := conn.Write(buf[x.chunkOff:x.chunkLen])
		if n > 0 {
			x.chunkOff += n
			x.sent += int64(n)
			srv.transferLastMs = srv.nowMs
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return
			}
			srv.abortRetr(426, "Connection closed; transfer aborted")
			return
		}
		if n == 0 {
			srv.abortRetr(426, "Connection closed; transfer aborted")
		}
		return
	}

	if x.eof {
		srv.completeRetr()
		return
	}

	n, err := x.file.Read(buf)
	if err != nil {
		_ = queueFsError(srv.reply, err)
		srv.teardownRetr()
		return
	}
	if n == 0 {
		x.eof = true
		return
	}
	srv.transferLastMs = srv.nowMs
	x.chunkOff = 0
	x.chunkLen = n
}

func (srv *Server) completeRetr() {
	_ = srv.retr.file.Close()
	srv.pasv.CloseAll(&srv.sess)
	_ = srv.reply.QueueSingle(226, "Closing data connection")
	srv.logTransfer("RETR", srv.retr.path, srv.retr.sent, 226)
	srv.retr = RetrXfer{}
}

func (srv *Server) abortRetr(code int, text string) {
	if srv.retr.file != nil {
		_ = srv.retr.file.Close()
	}
	srv.pasv.CloseAll(&srv.sess)
	_ = srv.reply.QueueSingle(code, text)
	srv.logTransfer("RETR", srv.retr.path, srv.retr.sent, code)
	srv.retr = RetrXfer{}
}

func (srv *Server) teardownRetr() {
	if srv.retr.file != nil {
		_ = srv.retr.file.Close()
	}
	srv.pasv.CloseAll(&srv.sess)
	srv.retr = RetrXfer{}
}

// ---- STOR ----

func (srv *Server) openStor(path string) {
	if !srv.checkTransferPreconditions() {
		return
	}
	if path == "" {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	f, err := srv.fs.OpenWrite(path)
	if err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	srv.stor = StorXfer{phase: xferWaitingAccept, path: path}
	srv.stor.file = f
}

func (srv *Server) driveStor() {
	x := &srv.stor
	if x.phase == xferIdle || srv.reply.Pending() {
		return
	}
	switch x.phase {
	case xferWaitingAccept:
		srv.driveStorWaitingAccept(x)
	case xferStreaming:
		srv.driveStorStreaming(x)
	}
}

func (srv *Server) driveStorWaitingAccept(x *StorXfer) {
	if !srv.pasv.HasData() {
		if srv.sess.Pasv == PasvListening {
			return
		}
		srv.abortStor(425, "Use PASV first")
		return
	}
	_ = srv.reply.QueueSingle(150, "Opening data connection")
	x.phase = xferStreaming
	srv.sess.Pasv = PasvTransferring
	srv.transferLastMs = srv.nowMs
}

func (srv *Server) driveStorStreaming(x *StorXfer) {
	buf := srv.storage.Transfer

	if x.chunkOff < x.chunkLen {
		n, err := x.file.Write(buf[x.chunkOff:x.chunkLen])
		if n > 0 {
			x.chunkOff += n
			x.received += int64(n)
			srv.transferLastMs = srv.nowMs
		}
		if err != nil {
			_ = queueFsError(srv.reply, err)
			srv.teardownStor()
			return
		}
		if n == 0 {
			_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
			srv.teardownStor()
		}
		return
	}

	if x.eof {
		srv.completeStor()
		return
	}

	conn := srv.pasv.DataConn()
	n, err := conn.Read(buf)
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return
		}
		// A closed data connection during STOR means EOF, not an
		// abort: flush remaining staged bytes (none, here) and complete.
		x.eof = true
		return
	}
	if n == 0 {
		x.eof = true
		return
	}
	srv.transferLastMs = srv.nowMs
	x.chunkOff = 0
	x.chunkLen = n
}

func (srv *Server) completeStor() {
	_ = srv.stor.file.Close()
	srv.pasv.CloseAll(&srv.sess)
	_ = srv.reply.QueueSingle(226, "Closing data connection")
	srv.logTransfer("STOR", srv.stor.path, srv.stor.received, 226)
	srv.stor = StorXfer{}
}

func (srv *Server) abortStor(code int, text string) {
	if srv.stor.file != nil {
		_ = srv.stor.file.Close()
	}
	srv.pasv.CloseAll(&srv.sess)
	_ = srv.reply.QueueSingle(code, text)
	srv.logTransfer("STOR", srv.stor.path, srv.stor.received, code)
	srv.stor = StorXfer{}
}

func (srv *Server) teardownStor() {
	if srv.stor.file != nil {
		_ = srv.stor.file.Close()
	}
	srv.pasv.CloseAll(&srv.sess)
	srv.stor = StorXfer{}
}
