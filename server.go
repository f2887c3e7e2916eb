package ftpcore

import (
	"strconv"
	"time"
)

// Server is the driver: it owns every other component and advances the
// whole engine one bounded step at a time via Tick. There is at most one
// live control connection; a second one is rejected.
type Server struct {
	net Net
	fs  Fs
	cfg Config

	storage *Storage
	lr      *LineReader
	reply   *ReplyWriter
	sess    Session
	pasv    PasvManager

	list ListXfer
	retr RetrXfer
	stor StorXfer

	ctl  ControlListener
	conn Conn

	nowMs          int64
	controlLastMs  int64
	pasvLastMs     int64
	transferLastMs int64
}

// NewServer assembles a driver over net and fs with the given
// configuration. It allocates (or validates caller-supplied) Storage per
// cfg but opens no sockets; call Start before the first Tick.
func NewServer(net Net, fs Fs, cfg Config) (*Server, error) {
	st, err := NewStorage(cfg)
	if err != nil {
		return nil, err
	}
	srv := &Server{
		net:     net,
		fs:      fs,
		cfg:     cfg,
		storage: st,
	}
	srv.lr = NewLineReader(st.Command)
	srv.reply = NewReplyWriter(st.Reply)
	return srv, nil
}

// Start opens the control listener bound to addr. Called once, before
// the first Tick.
func (srv *Server) Start(addr string) error {
	l, err := srv.net.ListenControl(addr)
	if err != nil {
		return err
	}
	srv.ctl = l
	return nil
}

// Close releases the control listener and any live session resources.
func (srv *Server) Close() error {
	srv.teardownSession()
	if srv.ctl != nil {
		err := srv.ctl.Close()
		srv.ctl = nil
		return err
	}
	return nil
}

// Tick advances the engine by one bounded step. now_ms is a
// monotonically non-decreasing millisecond counter used only for timeout
// decisions.
func (srv *Server) Tick(nowMs int64) {
	srv.nowMs = nowMs

	srv.acceptControl()
	if srv.conn == nil {
		return
	}

	srv.applyTimeouts()
	if srv.conn == nil {
		return
	}

	if _, err := srv.reply.Flush(srv.conn); err != nil {
		srv.teardownSession()
		return
	}

	if accepted, err := srv.pasv.PollAccept(); err == nil && accepted {
		srv.sess.Pasv = PasvDataConnected
		srv.pasvLastMs = srv.nowMs
	}

	srv.driveList()
	srv.driveRetr()
	srv.driveStor()

	if srv.sess.Auth == AuthClosing && !srv.reply.Pending() {
		srv.teardownSession()
		return
	}

	if srv.reply.Pending() || srv.list.Active() || srv.retr.Active() || srv.stor.Active() {
		return
	}

	line, event, err := srv.lr.Poll(srv.conn)
	if err != nil {
		srv.teardownSession()
		return
	}
	switch event {
	case LineTooLong:
		_ = srv.reply.QueueSingle(500, "Line too long")
	case LineReady:
		srv.controlLastMs = srv.nowMs
		srv.dispatch(ParseCommand(line))
	}
}

// acceptControl runs one non-blocking control-accept attempt, rejecting a
// second connection while a session is live.
func (srv *Server) acceptControl() {
	if srv.ctl == nil {
		return
	}
	c, err := srv.ctl.AcceptControl()
	if err != nil {
		return
	}
	if srv.conn != nil {
		_, _ = c.Write([]byte("421 Too many users\r\n"))
		_ = c.Close()
		return
	}
	srv.conn = c
	srv.sess.Reset()
	srv.lr.Reset()
	srv.reply.Reset()
	srv.list, srv.retr, srv.stor = ListXfer{}, RetrXfer{}, StorXfer{}
	srv.controlLastMs = srv.nowMs
	_ = srv.reply.QueueSingle(220, srv.cfg.banner)
}

// applyTimeouts enforces the three optional idle timeouts. A control
// timeout silently closes the session; PASV and transfer timeouts each
// queue an abort reply, so they are skipped while a reply is already
// pending to avoid clobbering it.
func (srv *Server) applyTimeouts() {
	if srv.cfg.controlIdleMs > 0 && srv.nowMs-srv.controlLastMs > srv.cfg.controlIdleMs {
		srv.teardownSession()
		return
	}
	if srv.reply.Pending() {
		return
	}
	if srv.cfg.pasvIdleMs > 0 && srv.sess.Pasv == PasvListening &&
		srv.nowMs-srv.pasvLastMs > srv.cfg.pasvIdleMs {
		switch {
		case srv.list.phase == xferWaitingAccept:
			srv.abortList(425, "Use PASV first")
		case srv.retr.phase == xferWaitingAccept:
			srv.abortRetr(425, "Use PASV first")
		case srv.stor.phase == xferWaitingAccept:
			srv.abortStor(425, "Use PASV first")
		default:
			srv.pasv.CloseAll(&srv.sess)
		}
		return
	}
	if srv.cfg.transferIdleMs > 0 && srv.nowMs-srv.transferLastMs > srv.cfg.transferIdleMs {
		switch {
		case srv.list.phase == xferStreaming:
			srv.abortList(426, "Connection closed; transfer aborted")
		case srv.retr.phase == xferStreaming:
			srv.abortRetr(426, "Connection closed; transfer aborted")
		case srv.stor.phase == xferStreaming:
			srv.abortStor(426, "Connection closed; transfer aborted")
		}
	}
}

func (srv *Server) teardownSession() {
	srv.teardownList()
	srv.teardownRetr()
	srv.teardownStor()
	srv.pasv.teardown()
	if srv.conn != nil {
		_ = srv.conn.Close()
		srv.conn = nil
	}
	srv.sess.Reset()
	srv.lr.Reset()
	srv.reply.Reset()
}

// dispatch routes one parsed command through the auth state machine,
// and, once authed, the RNFR-pending gate and path commands.
func (srv *Server) dispatch(cmd Command) {
	if cmd.Verb == VerbQUIT {
		srv.sess.Auth = AuthClosing
		_ = srv.reply.QueueSingle(221, "Bye")
		return
	}

	switch srv.sess.Auth {
	case AuthNeedUser:
		srv.dispatchNeedUser(cmd)
		return
	case AuthNeedPass:
		srv.dispatchNeedPass(cmd)
		return
	case AuthClosing:
		return
	}

	if srv.sess.RenamePending() && cmd.Verb != VerbRNTO {
		_ = srv.reply.QueueSingle(503, "Bad sequence of commands")
		return
	}
	srv.dispatchAuthed(cmd)
}

func (srv *Server) dispatchNeedUser(cmd Command) {
	if cmd.Verb != VerbUSER {
		_ = srv.reply.QueueSingle(530, "Please login with USER and PASS")
		return
	}
	if len(cmd.Arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	if string(cmd.Arg) != srv.cfg.user {
		_ = srv.reply.QueueSingle(530, "Not logged in")
		return
	}
	srv.sess.Auth = AuthNeedPass
	_ = srv.reply.QueueSingle(331, "User name okay, need password")
}

func (srv *Server) dispatchNeedPass(cmd Command) {
	switch cmd.Verb {
	case VerbUSER:
		if len(cmd.Arg) == 0 {
			_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
			return
		}
		if string(cmd.Arg) != srv.cfg.user {
			srv.sess.Auth = AuthNeedUser
			_ = srv.reply.QueueSingle(530, "Not logged in")
			return
		}
		_ = srv.reply.QueueSingle(331, "User name okay, need password")
	case VerbPASS:
		if len(cmd.Arg) == 0 {
			_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
			return
		}
		if string(cmd.Arg) != srv.cfg.password {
			srv.sess.Auth = AuthNeedUser
			_ = srv.reply.QueueSingle(530, "Not logged in")
			return
		}
		cwd, err := srv.fs.CwdInit()
		if err != nil {
			srv.sess.Auth = AuthNeedUser
			_ = queueFsError(srv.reply, err)
			return
		}
		srv.sess.cwd = cwd
		srv.sess.CwdReady = true
		srv.sess.Auth = AuthAuthed
		_ = srv.reply.QueueSingle(230, "User logged in")
	default:
		_ = srv.reply.QueueSingle(530, "Please login with USER and PASS")
	}
}

func (srv *Server) dispatchAuthed(cmd Command) {
	switch cmd.Verb {
	case VerbNOOP:
		_ = srv.reply.QueueSingle(200, "OK")
	case VerbSYST:
		_ = srv.reply.QueueSingle(215, "UNIX Type: L8")
	case VerbTYPE:
		srv.handleType(cmd.Arg)
	case VerbFEAT:
		srv.handleFeat()
	case VerbPASV:
		srv.handlePasv()
	case VerbLIST:
		srv.openList(string(cmd.Arg))
	case VerbRETR:
		srv.openRetr(string(cmd.Arg))
	case VerbSTOR:
		srv.openStor(string(cmd.Arg))
	case VerbPWD:
		srv.handlePwd()
	case VerbCWD:
		srv.handleCwd(cmd.Arg)
	case VerbCDUP:
		srv.handleCdup()
	case VerbDELE:
		srv.handleDele(cmd.Arg)
	case VerbRNFR:
		srv.handleRnfr(cmd.Arg)
	case VerbRNTO:
		srv.handleRnto(cmd.Arg)
	case VerbMKD:
		srv.handleMkd(cmd.Arg)
	case VerbRMD:
		srv.handleRmd(cmd.Arg)
	case VerbSIZE:
		srv.handleSize(cmd.Arg)
	case VerbMDTM:
		srv.handleMdtm(cmd.Arg)
	default:
		_ = srv.reply.QueueSingle(502, "Command not implemented")
	}
}

func (srv *Server) handleType(arg []byte) {
	switch upperASCII(trimASCIISpace(arg)) {
	case "I":
		srv.sess.Binary = true
		_ = srv.reply.QueueSingle(200, "Type set to I")
	case "A":
		// Transfers stay binary internally, but TYPE A is acknowledged
		// for broad client compatibility.
		srv.sess.Binary = true
		_ = srv.reply.QueueSingle(200, "Type set to A")
	default:
		_ = srv.reply.QueueSingle(504, "Command not implemented for that parameter")
	}
}

func (srv *Server) handleFeat() {
	features := []string{"TYPE I", "PASV"}
	if _, ok := srv.fs.(SizeFs); ok {
		features = append(features, "SIZE")
	}
	if _, ok := srv.fs.(MtimeFs); ok {
		features = append(features, "MDTM")
	}
	if srv.reply.QueueFeat(features) != nil {
		_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
	}
}

func (srv *Server) handlePasv() {
	addr, err := srv.pasv.Open(srv.net, "")
	if err != nil {
		srv.sess.Pasv = PasvIdle
		_ = srv.reply.QueueSingle(425, "Can't open data connection")
		return
	}
	srv.sess.Pasv = PasvListening
	srv.pasvLastMs = srv.nowMs

	buf := srv.storage.Scratch
	n := FormatPasvAddr(buf, addr)
	text := "Entering Passive Mode (" + string(buf[:n]) + ")"
	if srv.reply.QueueSingle(227, text) != nil {
		_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
	}
}

func (srv *Server) handlePwd() {
	p, err := srv.sess.cwd.Pwd(srv.storage.Scratch)
	if err != nil {
		_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
		return
	}
	if srv.reply.QueueSingle(257, "\""+string(p)+"\"") != nil {
		_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
	}
}

func (srv *Server) handleCwd(arg []byte) {
	if len(arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	if err := srv.sess.cwd.Change(string(arg)); err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	_ = srv.reply.QueueSingle(250, "Requested file action okay, completed")
}

func (srv *Server) handleCdup() {
	if err := srv.sess.cwd.Up(); err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	_ = srv.reply.QueueSingle(250, "Requested file action okay, completed")
}

func (srv *Server) handleDele(arg []byte) {
	if len(arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	if err := srv.fs.Delete(string(arg)); err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	_ = srv.reply.QueueSingle(250, "Requested file action okay, completed")
}

func (srv *Server) handleRnfr(arg []byte) {
	if len(arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	if err := srv.sess.setRenameFrom(arg); err != nil {
		_ = srv.reply.QueueSingle(553, "Requested action not taken. File name not allowed")
		return
	}
	_ = srv.reply.QueueSingle(350, "Requested file action pending further information")
}

func (srv *Server) handleRnto(arg []byte) {
	if !srv.sess.RenamePending() {
		_ = srv.reply.QueueSingle(503, "Bad sequence of commands")
		return
	}
	if len(arg) == 0 {
		// A missing argument is a syntax error, not a sequencing error:
		// the pending rename survives.
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	from := string(srv.sess.RenameFrom())
	err := srv.fs.Rename(from, string(arg))
	srv.sess.clearRename()
	if err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	_ = srv.reply.QueueSingle(250, "Requested file action okay, completed")
}

func (srv *Server) handleMkd(arg []byte) {
	if len(arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	mk, ok := srv.fs.(MkdirFs)
	if !ok {
		_ = srv.reply.QueueSingle(502, "Command not implemented")
		return
	}
	if err := mk.Mkdir(string(arg)); err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	if srv.reply.QueueSingle(257, "\""+string(arg)+"\"") != nil {
		_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
	}
}

func (srv *Server) handleRmd(arg []byte) {
	if len(arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	rm, ok := srv.fs.(RmdirFs)
	if !ok {
		_ = srv.reply.QueueSingle(502, "Command not implemented")
		return
	}
	if err := rm.Rmdir(string(arg)); err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	_ = srv.reply.QueueSingle(250, "Requested file action okay, completed")
}

func (srv *Server) handleSize(arg []byte) {
	if len(arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	sz, ok := srv.fs.(SizeFs)
	if !ok {
		_ = srv.reply.QueueSingle(502, "Command not implemented")
		return
	}
	n, err := sz.Size(string(arg))
	if err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	_ = srv.reply.QueueSingle(213, strconv.FormatInt(n, 10))
}

func (srv *Server) handleMdtm(arg []byte) {
	if len(arg) == 0 {
		_ = srv.reply.QueueSingle(501, "Syntax error in parameters or arguments")
		return
	}
	mt, ok := srv.fs.(MtimeFs)
	if !ok {
		_ = srv.reply.QueueSingle(502, "Command not implemented")
		return
	}
	t, err := mt.Mtime(string(arg))
	if err != nil {
		_ = queueFsError(srv.reply, err)
		return
	}
	if t < 0 {
		_ = srv.reply.QueueSingle(451, "Requested action aborted: local error in processing")
		return
	}
	_ = srv.reply.QueueSingle(213, time.Unix(t, 0).UTC().Format("20060102150405"))
}

// logTransfer emits one xferlog-style summary line per completed or aborted
// transfer: verb, path, byte count, and the reply code the transfer ended
// with. A nil LogFunc makes this a no-op without formatting anything.
func (srv *Server) logTransfer(verb, path string, n int64, code int) {
	if srv.cfg.log == nil || LogInfo < srv.cfg.logLevel {
		return
	}
	line := verb + " " + path + " " + strconv.FormatInt(n, 10) + " bytes, reply " + strconv.Itoa(code)
	srv.cfg.logf(LogInfo, line)
}
