package ftpcore

// fsReply maps a Kind (classified from a backend error via KindOf) to the
// FTP reply it produces, applying one uniform table to every path-based
// command and to transfer aborts caused by an Fs failure mid-stream.
func fsReply(k Kind) (code int, text string) {
	switch k {
	case KindInvalidPath:
		return 553, "Requested action not taken. File name not allowed"
	case KindNoSpace:
		return 452, "Insufficient storage space"
	case KindIO:
		return 451, "Requested action aborted: local error in processing"
	case KindPermissionDenied, KindReadOnly:
		return 550, "Permission denied"
	case KindNotFound:
		return 550, "File not found"
	case KindExists:
		return 550, "File exists"
	case KindUnsupported:
		return 502, "Command not implemented"
	default:
		// Includes KindNotDir, KindIsDir and anything unrecognised.
		return 550, "Requested action not taken"
	}
}

// queueFsError formats the reply corresponding to err's Kind. It is a
// convenience used by every path-command handler and transfer-abort path.
func queueFsError(rw *ReplyWriter, err error) error {
	code, text := fsReply(KindOf(err))
	return rw.QueueSingle(code, text)
}
