package shadowsel

import (
	"log/slog"
	"time"

	"github.com/hazyhaar/shadowq/shadowsel/internal/poll"
)

const (
	DefaultRetries = 10
	DefaultDelay   = 10 * time.Millisecond
)

// AsyncParams bound polling. Retries counts every attempt, the first one
// included.
type AsyncParams struct {
	Retries int           `json:"retries" yaml:"retries"`
	Delay   time.Duration `json:"delay" yaml:"delay"`
}

// DefaultAsyncParams returns 10 attempts spaced 10ms apart.
func DefaultAsyncParams() AsyncParams {
	return AsyncParams{Retries: DefaultRetries, Delay: DefaultDelay}
}

type settings struct {
	params AsyncParams
	logger *slog.Logger
}

// Option configures an asynchronous call or a Selector.
type Option func(*settings)

// WithRetries sets the number of attempts. Values below 1 are raised to 1.
func WithRetries(n int) Option {
	return func(s *settings) {
		if n < 1 {
			n = 1
		}
		s.params.Retries = n
	}
}

// WithDelay sets the pause between attempts. Negative values mean zero.
func WithDelay(d time.Duration) Option {
	return func(s *settings) {
		if d < 0 {
			d = 0
		}
		s.params.Delay = d
	}
}

// WithParams sets both bounds at once. Zero fields keep their current value.
func WithParams(p AsyncParams) Option {
	return func(s *settings) {
		if p.Retries > 0 {
			s.params.Retries = p.Retries
		}
		if p.Delay > 0 {
			s.params.Delay = p.Delay
		}
	}
}

// WithLogger sets the logger used for polling diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	s := settings{params: DefaultAsyncParams()}
	for _, o := range opts {
		o(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s settings) poll() poll.Params {
	return poll.Params{Retries: s.params.Retries, Delay: s.params.Delay, Logger: s.logger}
}
