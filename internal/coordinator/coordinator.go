// internal/coordinator/coordinator.go
//
// Game lifecycle coordinator: owns every active session, keyed by channel.
//
// Responsibilities:
//   - Start / Stop / HandleAnswer as atomic check-and-mutate steps on the
//     channel map.
//   - Per-session timeout and hint timers, cancelled together through one
//     context and re-validated by (channel, generation) on every firing.
//   - Emit session notices (start, hint, win, late, timeout, stuck override)
//     after the state change they describe is committed.
//
// Concurrency:
//   • mu guards the map, the generation counter and the rng.
//   • Each session carries an emit lock. A hint send holds it; terminal
//     paths acquire it after removing the session, so once Stop or a win
//     returns no further hint for that generation can appear.
//   • Lock order is emit then mu. No path waits on an emit lock while
//     holding mu; Start locks a new session's emit before publishing it,
//     when nothing else can hold it.
//   • Notices are sent without holding mu.

package coordinator

import (
	"context"
	"crypto/rand"
	"errors"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/game"
)

var (
	// ErrNoWords means the word source had nothing to hand out.
	ErrNoWords = errors.New("coordinator: no words available")
	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("coordinator: shut down")
)

// WordSource supplies answers with their scrambles.
type WordSource interface {
	Draw() (answer, scrambled string, ok bool)
}

// ScoreAdder applies point deltas; implemented by *store.Store.
type ScoreAdder interface {
	Add(userID string, delta int) int
}

// Options tune timing and scoring.
type Options struct {
	TimeLimit    time.Duration
	HintSchedule []time.Duration // offsets from start, non-decreasing
	StuckTimeout time.Duration
	Policy       game.ScoringPolicy
	Prefix       string           // command prefix quoted in notices
	Now          func() time.Time // defaults to time.Now
}

// StartKind classifies a Start outcome.
type StartKind int

const (
	Started StartKind = iota
	AlreadyActive
	NoWordsAvailable
)

// StartResult reports what Start did. Scrambled is the new word for Started
// and the running word for AlreadyActive.
type StartResult struct {
	Kind       StartKind
	Scrambled  string
	Overridden bool // a stuck session was replaced
}

// StopKind classifies a Stop outcome.
type StopKind int

const (
	Stopped StopKind = iota
	NotActive
)

// StopResult reports what Stop did. Answer is set for Stopped.
type StopResult struct {
	Kind   StopKind
	Answer string
}

// Snapshot is a read-only view of one active session.
type Snapshot struct {
	ChannelID  string        `json:"channelId"`
	SessionID  string        `json:"sessionId"`
	Scrambled  string        `json:"scrambled"`
	StartedBy  string        `json:"startedBy"`
	StartedAt  time.Time     `json:"startedAt"`
	Elapsed    time.Duration `json:"elapsedNs"`
	HintsShown int           `json:"hintsShown"`
	MaxHints   int           `json:"maxHints"`
	Revealed   []int         `json:"revealed"`
	Generation uint64        `json:"generation"`
}

type entry struct {
	s      *game.Session
	ctx    context.Context
	cancel context.CancelFunc
	emit   sync.Mutex
}

// Coordinator runs Unscramble games across channels.
type Coordinator struct {
	words  WordSource
	scores ScoreAdder
	out    chat.Sender
	opts   Options

	mu      sync.Mutex
	active  map[string]*entry
	nextGen uint64
	rng     *mrand.Rand
	closed  bool

	wg sync.WaitGroup // timer goroutines
}

// New returns a Coordinator. Zero-valued options get defaults.
func New(words WordSource, scores ScoreAdder, out chat.Sender, opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == nil {
		opts.Policy = game.TieredPolicy{Tiers: game.DefaultTiers, Floor: game.DefaultFloor}
	}
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = 60 * time.Second
	}
	if opts.StuckTimeout <= 0 {
		opts.StuckTimeout = 300 * time.Second
	}
	if opts.Prefix == "" {
		opts.Prefix = "!"
	}
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	return &Coordinator{
		words:  words,
		scores: scores,
		out:    out,
		opts:   opts,
		active: make(map[string]*entry),
		rng:    mrand.New(mrand.NewChaCha8(seed)),
	}
}

// Start begins a game in channelID unless one is already running. A session
// older than StuckTimeout is cancelled and replaced.
func (c *Coordinator) Start(ctx context.Context, channelID, userID, userName string) (StartResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return StartResult{}, ErrClosed
	}

	now := c.opts.Now()
	var stale *entry
	if cur, ok := c.active[channelID]; ok {
		if !cur.s.Stuck(now, c.opts.StuckTimeout) {
			c.mu.Unlock()
			return StartResult{Kind: AlreadyActive, Scrambled: cur.s.Scrambled}, nil
		}
		stale = cur
		c.removeLocked(channelID, cur)
		log.Warn().
			Str("channel", channelID).
			Str("session", cur.s.ID).
			Uint64("generation", cur.s.Generation).
			Dur("age", cur.s.Elapsed(now)).
			Msg("overriding stuck game")
	}

	answer, scrambled, ok := c.words.Draw()
	if !ok {
		c.mu.Unlock()
		if stale != nil {
			c.finish(ctx, stale, nil)
		}
		log.Error().Str("channel", channelID).Msg("cannot start game: word list is empty")
		return StartResult{Kind: NoWordsAvailable}, ErrNoWords
	}

	c.nextGen++
	s := game.NewSession(channelID, userID, answer, scrambled, now, c.nextGen)
	sctx, cancel := context.WithCancel(context.Background())
	e := &entry{s: s, ctx: sctx, cancel: cancel}
	c.active[channelID] = e

	// Held until the start notice is out so the first hint cannot overtake it.
	e.emit.Lock()
	c.spawnTimers(e)
	c.mu.Unlock()

	log.Info().
		Str("channel", channelID).
		Str("user", userID).
		Str("session", s.ID).
		Uint64("generation", s.Generation).
		Str("word", s.Answer).
		Msg("game started")

	if stale != nil {
		c.finish(ctx, stale, &chat.Notice{Description: "🧹 Previous game stuck. Starting new!", Color: chat.ColorWarning})
	}
	c.send(ctx, channelID, startNotice(userName, s.Scrambled, c.opts.TimeLimit))
	e.emit.Unlock()

	return StartResult{Kind: Started, Scrambled: s.Scrambled, Overridden: stale != nil}, nil
}

// Stop ends the game in channelID. When it returns, no hint or timeout
// notice for that game will be emitted.
func (c *Coordinator) Stop(ctx context.Context, channelID string) StopResult {
	c.mu.Lock()
	e, ok := c.active[channelID]
	if !ok {
		c.mu.Unlock()
		return StopResult{Kind: NotActive}
	}
	c.removeLocked(channelID, e)
	c.mu.Unlock()

	c.finish(ctx, e, nil)
	log.Info().Str("channel", channelID).Str("session", e.s.ID).Msg("game stopped")
	return StopResult{Kind: Stopped, Answer: e.s.Answer}
}

// HandleAnswer evaluates a chat message against the channel's game. A correct
// answer ends the game; in time it also credits the author.
func (c *Coordinator) HandleAnswer(ctx context.Context, m chat.Message) game.Verdict {
	c.mu.Lock()
	e, ok := c.active[m.ChannelID]
	if !ok {
		c.mu.Unlock()
		return game.Verdict{Kind: game.NoMatch}
	}
	v := game.Evaluate(e.s, m.Content, e.s.Elapsed(c.opts.Now()), c.opts.TimeLimit, c.opts.Policy)
	if !v.Terminal() {
		c.mu.Unlock()
		return v
	}
	c.removeLocked(m.ChannelID, e)
	total := 0
	if v.Kind == game.CorrectInTime {
		total = c.scores.Add(m.AuthorID, v.Points)
	}
	c.mu.Unlock()

	log.Info().
		Str("channel", m.ChannelID).
		Str("user", m.AuthorID).
		Str("session", e.s.ID).
		Stringer("verdict", v.Kind).
		Int("points", v.Points).
		Dur("elapsed", v.Elapsed).
		Time("sent_at", m.At).
		Msg("answer accepted")

	var n chat.Notice
	if v.Kind == game.CorrectInTime {
		n = winNotice(m.AuthorName, e.s.Answer, v, total)
	} else {
		n = lateNotice(m.AuthorName, e.s.Answer, v, c.opts.TimeLimit)
	}
	c.finish(ctx, e, &n)
	return v
}

// Active returns snapshots of running games ordered by channel id.
func (c *Coordinator) Active() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.opts.Now()
	out := lo.MapToSlice(c.active, func(id string, e *entry) Snapshot {
		return Snapshot{
			ChannelID:  id,
			SessionID:  e.s.ID,
			Scrambled:  e.s.Scrambled,
			StartedBy:  e.s.StartedBy,
			StartedAt:  e.s.StartedAt,
			Elapsed:    e.s.Elapsed(now),
			HintsShown: e.s.HintsShown,
			MaxHints:   game.MaxHints(e.s.Answer),
			Revealed:   e.s.RevealedIndices(),
			Generation: e.s.Generation,
		}
	})
	sortSnapshots(out)
	return out
}

// Shutdown cancels every game without notices and waits for timer
// goroutines to exit or ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	for id, e := range c.active {
		c.removeLocked(id, e)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// removeLocked deletes e from the map and cancels its timers. mu must be held.
func (c *Coordinator) removeLocked(channelID string, e *entry) {
	if c.active[channelID] == e {
		delete(c.active, channelID)
	}
	e.cancel()
}

// lookupLocked returns the live entry for (channelID, gen), nil if stale.
func (c *Coordinator) lookupLocked(channelID string, gen uint64) *entry {
	e, ok := c.active[channelID]
	if !ok || e.s.Generation != gen {
		return nil
	}
	return e
}

// finish waits out any in-flight emission for a removed session, then sends
// n if non-nil.
func (c *Coordinator) finish(ctx context.Context, e *entry, n *chat.Notice) {
	e.emit.Lock()
	defer e.emit.Unlock()
	if n != nil {
		c.send(ctx, e.s.ChannelID, *n)
	}
}

func (c *Coordinator) send(ctx context.Context, channelID string, n chat.Notice) {
	if err := c.out.Send(ctx, channelID, n); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Str("title", n.Title).Msg("notice not delivered")
	}
}
