// Package ftpcore implements an embeddable FTP server engine: a
// single-session, passive-mode-only, cooperatively scheduled protocol
// engine that advances by repeated calls to Tick.
//
// Semantics and design:
//   - Non-blocking first: Net and Fs backends signal ErrWouldBlock when an
//     operation cannot proceed without waiting. Tick never blocks; it
//     absorbs ErrWouldBlock locally and resumes the same sub-step on the
//     next call.
//   - No heap requirement: the four byte regions in Storage (command,
//     reply, transfer, scratch) are caller-owned and lent to the engine for
//     the session's lifetime. The core never allocates on the per-tick hot
//     path.
//   - Capability polymorphism: the engine is parameterized over two
//     interfaces, Net and Fs, so the concrete transport and filesystem are
//     supplied by the embedder. Optional Fs operations (MKD/RMD/SIZE/MDTM)
//     are feature-detected with a type assertion against a narrower
//     interface; a backend that omits one makes the corresponding command
//     reply 502 and omits the feature from FEAT.
//
// Wire protocol: US-ASCII control channel, CRLF-terminated lines, numeric
// reply codes. PASV is IPv4-only; its 227 reply encodes a six-decimal tuple
// with the port written high byte first, then low byte.
//
// Out of scope by design: encrypted transport, active-mode data
// connections, more than one concurrent control session, resumable
// transfers, multi-user accounting, full RFC edge-case coverage, and IPv6 in
// the PASV address reply.
package ftpcore
