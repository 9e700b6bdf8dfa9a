// Package supervisor runs one goroutine per bot and acts on how each
// session ended.
package supervisor

import (
	"context"
	"sync"
	"time"

	"obot/internal/bot"
	"obot/internal/logger"
	"obot/internal/session"
)

// Runner runs one session of b to its end.
type Runner interface {
	Run(ctx context.Context, b *bot.Bot) session.Outcome
}

type Supervisor struct {
	ctx    context.Context
	reg    *bot.Registry
	runner Runner
	delay  time.Duration
	log    *logger.Logger
	wg     sync.WaitGroup
}

// New returns a supervisor whose sessions stop when ctx is cancelled.
func New(ctx context.Context, reg *bot.Registry, runner Runner, delay time.Duration, log *logger.Logger) *Supervisor {
	if log == nil {
		log = logger.Default()
	}
	return &Supervisor{ctx: ctx, reg: reg, runner: runner, delay: delay, log: log}
}

// Spawn starts b in its own goroutine and returns at once.
func (s *Supervisor) Spawn(b *bot.Bot) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(b)
	}()
}

// Wait blocks until every spawned session has ended for good.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) supervise(b *bot.Bot) {
	for {
		out := s.runner.Run(s.ctx, b)
		if s.ctx.Err() != nil {
			s.destroy(b, "shutting down")
			return
		}

		switch out {
		case session.OutcomeNone:
			s.destroy(b, "no reconnect")
			return
		case session.OutcomeReconnect:
			s.log.Infof("Session %d reconnecting", b.ID())
		case session.OutcomeReconnectDelay:
			s.log.Infof("Session %d reconnecting in %s", b.ID(), s.delay)
			if !s.sleep() {
				s.destroy(b, "shutting down")
				return
			}
		default:
			s.log.Errorf("Session %d ended with unknown outcome %d", b.ID(), out)
			s.destroy(b, "unknown outcome")
			return
		}
	}
}

// sleep waits out the reconnect delay; false means the context ended
// first.
func (s *Supervisor) sleep() bool {
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Supervisor) destroy(b *bot.Bot, why string) {
	nick := b.Nick()
	if err := s.reg.Destroy(b); err != nil {
		s.log.Warnf("Session %d: %v", b.ID(), err)
		return
	}
	s.log.Infof("Session %d (%s) ended: %s", b.ID(), nick, why)
}
