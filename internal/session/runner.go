package session

import (
	"context"
	"sync"

	"obot/internal/bot"
)

// Runner starts a fresh Session for every run of a bot.
type Runner struct {
	mu  sync.Mutex
	cfg Config
}

func NewRunner(cfg Config) *Runner {
	cfg.applyDefaults()
	return &Runner{cfg: cfg}
}

// SetSpawner sets where spawn commands start their clones. It is set after
// construction because the spawner usually owns the runner.
func (r *Runner) SetSpawner(sp Spawner) {
	r.mu.Lock()
	r.cfg.Spawner = sp
	r.mu.Unlock()
}

func (r *Runner) Run(ctx context.Context, b *bot.Bot) Outcome {
	r.mu.Lock()
	cfg := r.cfg
	r.mu.Unlock()
	return New(b, cfg).Run(ctx)
}
