package ftpcore

// Default and minimum sizes for the four caller-owned byte regions.
// Each default meets or exceeds the corresponding required minimum; the
// reply and scratch defaults equal their minimums.
const (
	MinCommandBufferSize  = 1024
	MinReplyBufferSize    = 1024
	MinTransferBufferSize = 4096
	MinScratchBufferSize  = 1024

	DefaultCommandBufferSize  = 4096
	DefaultReplyBufferSize    = 1024
	DefaultTransferBufferSize = 32 * 1024
	DefaultScratchBufferSize  = 1024

	// PathMax bounds the pending-rename buffer.
	PathMax = 4096
)

// Storage is the caller-owned ensemble of four byte regions the engine uses
// and never aliases: Command (line-reader staging), Reply (reply-writer
// output), Transfer (LIST/RETR/STOR chunk shuttle) and Scratch (ephemeral
// per-command formatting). No slice into Scratch may outlive the command
// handler that borrowed it.
type Storage struct {
	Command  []byte
	Reply    []byte
	Transfer []byte
	Scratch  []byte
}

// NewStorage allocates a Storage sized per cfg, or validates caller-supplied
// regions set via WithStorage. It fails with ErrInvalidArgument if any
// region is smaller than its required minimum.
func NewStorage(cfg Config) (*Storage, error) {
	st := &Storage{
		Command:  cfg.storage.Command,
		Reply:    cfg.storage.Reply,
		Transfer: cfg.storage.Transfer,
		Scratch:  cfg.storage.Scratch,
	}
	if st.Command == nil {
		st.Command = make([]byte, cfg.commandBufferSize)
	}
	if st.Reply == nil {
		st.Reply = make([]byte, cfg.replyBufferSize)
	}
	if st.Transfer == nil {
		st.Transfer = make([]byte, cfg.transferBufferSize)
	}
	if st.Scratch == nil {
		st.Scratch = make([]byte, cfg.scratchBufferSize)
	}
	if len(st.Command) < MinCommandBufferSize ||
		len(st.Reply) < MinReplyBufferSize ||
		len(st.Transfer) < MinTransferBufferSize ||
		len(st.Scratch) < MinScratchBufferSize {
		return nil, ErrInvalidArgument
	}
	return st, nil
}
