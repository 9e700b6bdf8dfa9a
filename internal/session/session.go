// Package session runs one bot's IRC connection: registration, nick
// recovery, channel joins, admin commands and plugin dispatch.
package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"obot/internal"
	"obot/internal/bot"
	"obot/internal/commands"
	"obot/internal/connection"
	"obot/internal/errs"
	"obot/internal/logger"
	"obot/pkg/api"
)

// State is where a session is in its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateRegistering
	StateRunning
	StateRestarting
	StateQuitting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistering:
		return "registering"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateQuitting:
		return "quitting"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Outcome tells the supervisor what to do once a session has ended.
type Outcome int

const (
	// OutcomeContinue keeps the read loop going; Run never returns it.
	OutcomeContinue Outcome = iota
	OutcomeNone
	OutcomeReconnect
	OutcomeReconnectDelay
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeNone:
		return "no reconnect"
	case OutcomeReconnect:
		return "reconnect now"
	case OutcomeReconnectDelay:
		return "reconnect after delay"
	}
	return "unknown"
}

// Chain is the plugin chain as a session sees it.
type Chain interface {
	commands.Plugins
	Dispatch(s api.Sender, from, to, command, text string) api.Eat
}

// Spawner starts sessions for bots created at runtime.
type Spawner interface {
	Spawn(b *bot.Bot)
}

type Options struct {
	CommandPrefix  string
	ConnectTimeout time.Duration
	BufferSize     int
	FloodRate      float64 // lines per second, 0 is unlimited
	FloodBurst     int
	MaxSessions    int
	PluginDir      string
	// QuitGrace is how long a cancelled session waits for the server to
	// close the link after QUIT.
	QuitGrace time.Duration
}

// Config holds what every session of a process shares.
type Config struct {
	Options
	Registry *bot.Registry
	Chain    Chain
	Commands *commands.Registry
	Spawner  Spawner
	Dialer   connection.Dialer
	Logger   *logger.Logger
}

func (c *Config) applyDefaults() {
	if c.CommandPrefix == "" {
		c.CommandPrefix = internal.DEFAULT_COMMAND_PREFIX
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = internal.DEFAULT_CONNECT_TIMEOUT * time.Second
	}
	if c.QuitGrace <= 0 {
		c.QuitGrace = 5 * time.Second
	}
	if c.Commands == nil {
		c.Commands = commands.NewRegistry()
	}
	if c.Dialer == nil {
		c.Dialer = connection.DefaultDialer()
	}
	if c.Logger == nil {
		c.Logger = logger.Default()
	}
}

// Session is one connection attempt of one bot. The read loop, nick
// fields and framing buffer belong to the goroutine running Run; the send
// path is shared with plugins and serialized by sendMu.
type Session struct {
	bot *bot.Bot
	cfg Config
	log *logger.Logger
	ctx context.Context

	conn  *connection.Conn
	raw   net.Conn
	state State

	registered   bool
	ghostPending bool

	sendMu  sync.Mutex
	closed  bool
	limiter *rate.Limiter
	done    chan struct{}
}

// New prepares a session for b; nothing is dialed until Run.
func New(b *bot.Bot, cfg Config) *Session {
	cfg.applyDefaults()

	limit, burst := rate.Inf, 0
	if cfg.FloodRate > 0 {
		limit, burst = rate.Limit(cfg.FloodRate), max(cfg.FloodBurst, 1)
	}
	return &Session{
		bot:     b,
		cfg:     cfg,
		log:     cfg.Logger,
		ctx:     context.Background(),
		state:   StateConnecting,
		limiter: rate.NewLimiter(limit, burst),
		done:    make(chan struct{}),
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) endpoint() connection.Endpoint {
	return connection.Endpoint{
		Host:       s.bot.Host,
		Port:       s.bot.Port,
		Secure:     s.bot.Secure,
		SkipVerify: s.bot.SkipVerify,
		Timeout:    s.cfg.ConnectTimeout,
	}
}

// Run connects and processes lines until the session ends, then reports
// what should happen next.
func (s *Session) Run(ctx context.Context) Outcome {
	defer close(s.done)
	s.ctx = ctx

	ep := s.endpoint()
	s.log.Infof(">> [%d] Connecting to %s...", s.bot.ID(), ep.Address())
	raw, err := connection.Open(ctx, s.cfg.Dialer, ep)
	if err != nil {
		s.log.Errorf(">> [%d] Failed to connect: %v", s.bot.ID(), err)
		s.state = StateTerminated
		return s.dropped()
	}
	s.attach(raw)
	defer s.close()
	s.log.Successf(">> [%d] Connected to %s", s.bot.ID(), ep.Address())

	stop := context.AfterFunc(ctx, s.shutdown)
	defer stop()

	out := s.loop()
	s.state = StateTerminated
	return out
}

func (s *Session) attach(raw net.Conn) {
	s.raw = raw
	s.conn = connection.New(raw, s.cfg.BufferSize)
	s.state = StateRegistering
}

var delim = []byte(internal.LINE_DELIMITER)

func (s *Session) loop() Outcome {
	for {
		for msg := s.conn.NextMessage(); msg != nil; msg = s.conn.NextMessage() {
			if out := s.process(string(msg)); out != OutcomeContinue {
				return out
			}
		}

		_, err := s.conn.Receive(delim)
		if err == nil {
			continue
		}
		if errors.Is(err, errs.ErrLineTooLong) {
			s.log.Warnf(">> [%d] Dropped oversized line", s.bot.ID())
			continue
		}

		// Lines queued before the failure, such as the server's ERROR,
		// still decide the outcome.
		for msg := s.conn.NextMessage(); msg != nil; msg = s.conn.NextMessage() {
			if out := s.process(string(msg)); out != OutcomeContinue {
				return out
			}
		}
		if s.ctx.Err() != nil {
			return OutcomeNone
		}
		s.log.Errorf(">> [%d] Connection lost: %v", s.bot.ID(), err)
		return s.dropped()
	}
}

// dropped is the outcome for a transport that failed without the server
// explaining why.
func (s *Session) dropped() Outcome {
	if s.bot.ReconnectOnDrop && s.ctx.Err() == nil {
		s.bot.SetStatus(bot.StatusStarting)
		return OutcomeReconnectDelay
	}
	return OutcomeNone
}

// shutdown runs when the context is cancelled: it says goodbye and gives
// the server a moment to close the link before closing it ourselves.
func (s *Session) shutdown() {
	s.bot.UpdateStatus(bot.StatusQuitting, 0)
	s.write("QUIT :" + internal.BOT_VERSION)

	t := time.NewTimer(s.cfg.QuitGrace)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.done:
		return
	}
	s.raw.Close()
}

func (s *Session) close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		s.log.Debugf(">> [%d] Close: %v", s.bot.ID(), err)
	}
}
