package ftpcore

// LogLevel classifies a log call's severity.
type LogLevel uint8

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// LogFunc is the sink the engine calls for diagnostic and transfer-log
// lines. A nil LogFunc disables logging entirely; the engine never
// allocates or formats a line it isn't going to deliver.
type LogFunc func(level LogLevel, msg string)

// Config holds the assembled engine configuration. It is built only through
// NewConfig with a sequence of Options.
type Config struct {
	storage Storage

	commandBufferSize  int
	replyBufferSize    int
	transferBufferSize int
	scratchBufferSize  int

	user     string
	password string
	banner   string

	// Idle timeouts, each in milliseconds of tick-clock time; zero means no
	// timeout.
	controlIdleMs  int64
	pasvIdleMs     int64
	transferIdleMs int64

	log      LogFunc
	logLevel LogLevel
}

var defaultConfig = Config{
	commandBufferSize:  DefaultCommandBufferSize,
	replyBufferSize:    DefaultReplyBufferSize,
	transferBufferSize: DefaultTransferBufferSize,
	scratchBufferSize:  DefaultScratchBufferSize,
	banner:             "FTP Server Ready",
	logLevel:           LogInfo,
}

// Option configures a Config built by NewConfig.
type Option func(*Config)

// NewConfig applies opts over the defaults and returns the result.
func NewConfig(opts ...Option) Config {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithStorage supplies caller-owned buffers directly, bypassing the
// size-only options below. Any region left nil
// still falls back to an allocation sized by the corresponding
// WithXBufferSize option (or its default).
func WithStorage(st Storage) Option {
	return func(c *Config) { c.storage = st }
}

// WithCommandBufferSize sets the allocated size of Storage.Command when no
// caller-owned buffer is supplied via WithStorage.
func WithCommandBufferSize(n int) Option {
	return func(c *Config) { c.commandBufferSize = n }
}

// WithReplyBufferSize sets the allocated size of Storage.Reply.
func WithReplyBufferSize(n int) Option {
	return func(c *Config) { c.replyBufferSize = n }
}

// WithTransferBufferSize sets the allocated size of Storage.Transfer.
func WithTransferBufferSize(n int) Option {
	return func(c *Config) { c.transferBufferSize = n }
}

// WithScratchBufferSize sets the allocated size of Storage.Scratch.
func WithScratchBufferSize(n int) Option {
	return func(c *Config) { c.scratchBufferSize = n }
}

// WithCredentials sets the single accepted USER/PASS pair. Both are
// compared by exact equality. A PASS with an empty argument is answered
// with 501, so an empty configured password matches no login.
func WithCredentials(user, password string) Option {
	return func(c *Config) { c.user, c.password = user, password }
}

// WithBanner overrides the 220 greeting text queued when a control
// connection is accepted.
func WithBanner(banner string) Option {
	return func(c *Config) { c.banner = banner }
}

// WithControlIdleTimeout bounds how long the control connection may go
// without a complete command line before the engine closes it. Zero
// (the default) disables the timeout.
func WithControlIdleTimeout(ms int64) Option {
	return func(c *Config) { c.controlIdleMs = ms }
}

// WithPasvIdleTimeout bounds how long a PASV listener may wait for the data
// connection to be accepted before it is abandoned.
func WithPasvIdleTimeout(ms int64) Option {
	return func(c *Config) { c.pasvIdleMs = ms }
}

// WithTransferIdleTimeout bounds how long a streaming transfer may go
// without making read/write progress before it is aborted with 426.
func WithTransferIdleTimeout(ms int64) Option {
	return func(c *Config) { c.transferIdleMs = ms }
}

// WithLogFunc installs the sink the engine calls for log lines, including
// the per-transfer summary lines emitted on transfer completion.
func WithLogFunc(fn LogFunc) Option {
	return func(c *Config) { c.log = fn }
}

// WithLogLevel sets the minimum level passed through to LogFunc.
func WithLogLevel(level LogLevel) Option {
	return func(c *Config) { c.logLevel = level }
}

// logf calls cfg.log if non-nil and level meets the configured threshold.
func (c *Config) logf(level LogLevel, msg string) {
	if c.log == nil || level < c.logLevel {
		return
	}
	c.log(level, msg)
}
