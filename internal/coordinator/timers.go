// internal/coordinator/timers.go
//
// Per-session timers: one timeout and one hint schedule, both bound to the
// session context and keyed by (channel, generation).

package coordinator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

func (c *Coordinator) spawnTimers(e *entry) {
	channelID, gen := e.s.ChannelID, e.s.Generation
	c.goSafe(channelID, gen, "timeout", func() {
		if sleep(e.ctx, c.opts.TimeLimit) {
			c.onTimeout(context.Background(), channelID, gen)
		}
	})
	c.goSafe(channelID, gen, "hints", func() {
		c.runHints(e.ctx, channelID, gen)
	})
}

// goSafe runs fn on its own goroutine, logging instead of crashing on panic.
func (c *Coordinator) goSafe(channelID string, gen uint64, name string, fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("channel", channelID).
					Uint64("generation", gen).
					Str("timer", name).
					Interface("panic", r).
					Msg("timer goroutine panicked")
			}
		}()
		fn()
	}()
}

// sleep waits d or until ctx is done; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// runHints walks the hint schedule. Offsets equal to the previous one are
// skipped; a stale or exhausted session ends the walk.
func (c *Coordinator) runHints(ctx context.Context, channelID string, gen uint64) {
	var prev time.Duration
	for _, at := range c.opts.HintSchedule {
		d := at - prev
		if d <= 0 {
			continue
		}
		if !sleep(ctx, d) {
			return
		}
		prev = at
		if !c.hintTick(ctx, channelID, gen) {
			return
		}
	}
}

// hintTick reveals one letter for (channelID, gen) and emits the hint. It
// reports whether more hints may follow.
//
// The session's emit lock is taken before mu, never while holding it, so a
// slow send on one channel cannot stall the others.
func (c *Coordinator) hintTick(ctx context.Context, channelID string, gen uint64) bool {
	c.mu.Lock()
	e := c.lookupLocked(channelID, gen)
	c.mu.Unlock()
	if e == nil {
		log.Debug().Str("channel", channelID).Uint64("generation", gen).Msg("hint skipped: game ended")
		return false
	}

	e.emit.Lock()
	defer e.emit.Unlock()

	c.mu.Lock()
	if c.lookupLocked(channelID, gen) != e || ctx.Err() != nil {
		c.mu.Unlock()
		log.Debug().Str("channel", channelID).Uint64("generation", gen).Msg("hint skipped: game ended")
		return false
	}
	idx, ok := e.s.RevealRandom(c.rng)
	if !ok {
		c.mu.Unlock()
		return false
	}
	shown := e.s.HintsShown
	n := hintNotice(shown, e.s.Scrambled, e.s.HintMask())
	more := e.s.CanHint()
	c.mu.Unlock()

	log.Info().
		Str("channel", channelID).
		Uint64("generation", gen).
		Int("index", idx).
		Int("hint", shown).
		Msg("hint revealed")
	c.send(context.Background(), channelID, n)
	return more
}

// onTimeout ends (channelID, gen) if it is still the live game.
func (c *Coordinator) onTimeout(ctx context.Context, channelID string, gen uint64) {
	c.mu.Lock()
	e := c.lookupLocked(channelID, gen)
	if e == nil {
		c.mu.Unlock()
		log.Debug().Str("channel", channelID).Uint64("generation", gen).Msg("stale timeout ignored")
		return
	}
	c.removeLocked(channelID, e)
	c.mu.Unlock()

	log.Info().Str("channel", channelID).Str("session", e.s.ID).Str("word", e.s.Answer).Msg("game timed out")
	n := timeoutNotice(e.s.Answer, c.opts.Prefix)
	c.finish(ctx, e, &n)
}
