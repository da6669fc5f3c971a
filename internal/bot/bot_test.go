package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/coordinator"
	"github.com/robalobadob/unscramble-bot/internal/game"
	"github.com/robalobadob/unscramble-bot/internal/store"
	"github.com/robalobadob/unscramble-bot/internal/words"
)

type fakeSurface struct {
	mu      sync.Mutex
	mods    map[string]bool
	roleErr error
	sent    []chat.Notice
}

func (f *fakeSurface) Send(_ context.Context, _ string, n chat.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSurface) HasRole(_ context.Context, _, userID, _ string) (bool, error) {
	if f.roleErr != nil {
		return false, f.roleErr
	}
	return f.mods[userID], nil
}

func (f *fakeSurface) DisplayName(_ context.Context, _, userID string) string {
	return "name-" + userID
}

func (f *fakeSurface) last() chat.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return chat.Notice{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSurface) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type recordingPersister struct {
	mu    sync.Mutex
	saves [][]store.Entry
}

func (p *recordingPersister) Load(context.Context) ([]store.Entry, error) { return nil, nil }
func (p *recordingPersister) Save(_ context.Context, e []store.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, e)
	return nil
}

type harness struct {
	bot     *Bot
	surface *fakeSurface
	games   *coordinator.Coordinator
	scores  *store.Store
	persist *recordingPersister
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	surface := &fakeSurface{mods: map[string]bool{"mod": true}}
	persist := &recordingPersister{}
	scores := store.New(persist)
	games := coordinator.New(words.New([]string{"apple"}), scores, surface, coordinator.Options{})
	t.Cleanup(func() { _ = games.Shutdown(context.Background()) })
	if opts.CommandRate == 0 {
		opts.CommandRate = 1000
		opts.CommandBurst = 1000
	}
	return &harness{
		bot:     New(surface, games, scores, opts),
		surface: surface,
		games:   games,
		scores:  scores,
		persist: persist,
	}
}

func (h *harness) say(userID, content string) {
	h.bot.HandleMessage(context.Background(), chat.Message{
		ChannelID:  "ch1",
		GuildID:    "g1",
		AuthorID:   userID,
		AuthorName: userID,
		Content:    content,
		At:         time.Now(),
	})
}

func TestIgnoredMessages(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	h.bot.HandleMessage(ctx, chat.Message{ChannelID: "ch1", GuildID: "g1", AuthorID: "mod", AuthorBot: true, Content: "!help"})
	h.bot.HandleMessage(ctx, chat.Message{ChannelID: "dm", AuthorID: "mod", Content: "!help"})
	h.say("mod", "!doesnotexist")
	h.say("mod", "!")
	h.say("u1", "hello there")

	if n := h.surface.count(); n != 0 {
		t.Fatalf("sent %d notices, want 0", n)
	}
}

func TestModCommandNeedsRole(t *testing.T) {
	h := newHarness(t, Options{})
	h.say("u1", "!unscramble")

	if !strings.Contains(h.surface.last().Description, "lack the required role ('bot admin')") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
	if len(h.games.Active()) != 0 {
		t.Fatal("game started without the role")
	}
}

func TestRoleLookupFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.surface.roleErr = errors.New("discord 500")
	h.say("mod", "!us")

	if !strings.Contains(h.surface.last().Title, "Something Went Wrong") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
}

func TestStartAnswerAndRank(t *testing.T) {
	h := newHarness(t, Options{})

	h.say("mod", "!US")
	if !strings.Contains(h.surface.last().Title, "New Unscramble Challenge") {
		t.Fatalf("notice = %+v", h.surface.last())
	}

	h.say("mod", "!unscramble")
	if !strings.Contains(h.surface.last().Title, "Game in Progress") {
		t.Fatalf("notice = %+v", h.surface.last())
	}

	h.say("u1", "banana")
	h.say("u1", "Apple")
	if !strings.Contains(h.surface.last().Title, "Correct, u1") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
	if h.scores.Get("u1") != 100 {
		t.Fatalf("score = %d", h.scores.Get("u1"))
	}

	h.say("u1", "!rank")
	if !strings.Contains(h.surface.last().Description, "ranked **#1** with **100** points") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
	h.say("u2", "!rank")
	if !strings.Contains(h.surface.last().Description, "not on the leaderboard") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
}

func TestStopOutcomes(t *testing.T) {
	h := newHarness(t, Options{})

	h.say("mod", "!stop")
	if !strings.Contains(h.surface.last().Description, "No Unscramble game") {
		t.Fatalf("notice = %+v", h.surface.last())
	}

	h.say("mod", "!us")
	h.say("mod", "!cancelgame")
	if !strings.Contains(h.surface.last().Description, "The word was **APPLE**") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
	if len(h.games.Active()) != 0 {
		t.Fatal("game survived stop")
	}
}

func TestLeaderboardAndReset(t *testing.T) {
	h := newHarness(t, Options{})

	h.say("mod", "!lb")
	if !strings.Contains(h.surface.last().Description, "leaderboard is empty") {
		t.Fatalf("notice = %+v", h.surface.last())
	}

	h.scores.Add("a", 40)
	h.scores.Add("b", 85)
	h.say("mod", "!leaderboard")
	lb := h.surface.last()
	if !strings.Contains(lb.Description, "`1.` name-b: **85** points\n`2.` name-a: **40** points") {
		t.Fatalf("leaderboard = %q", lb.Description)
	}
	if lb.Footer != "Showing top 2 players." {
		t.Fatalf("footer = %q", lb.Footer)
	}

	h.say("mod", "!resetlb")
	if !strings.Contains(h.surface.last().Title, "Leaderboard Reset") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
	h.persist.mu.Lock()
	saves := len(h.persist.saves)
	lastLen := len(h.persist.saves[saves-1])
	h.persist.mu.Unlock()
	if saves != 1 || lastLen != 0 {
		t.Fatalf("saves=%d last=%d, want one empty save", saves, lastLen)
	}

	h.say("mod", "!lb")
	if !strings.Contains(h.surface.last().Description, "leaderboard is empty") {
		t.Fatalf("notice after reset = %+v", h.surface.last())
	}
}

func TestCooldown(t *testing.T) {
	h := newHarness(t, Options{CommandRate: 0.01, CommandBurst: 1})

	h.say("u1", "!help")
	if !strings.Contains(h.surface.last().Title, "Help") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
	h.say("u1", "!h")
	if !strings.Contains(h.surface.last().Description, "on cooldown") {
		t.Fatalf("notice = %+v", h.surface.last())
	}
	h.say("u2", "!commands")
	if !strings.Contains(h.surface.last().Title, "Help") {
		t.Fatal("cooldown leaked across users")
	}
}

func TestCooldownSweep(t *testing.T) {
	c := newCooldowns(1, 1)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.take("a")
	now = now.Add(time.Hour)
	c.take("b")
	if n := c.sweep(time.Minute); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, ok := c.m["b"]; !ok {
		t.Fatal("active limiter swept")
	}
}

func TestHelpListsCommands(t *testing.T) {
	h := newHarness(t, Options{Prefix: "?"})
	h.say("u1", "?help")

	n := h.surface.last()
	if len(n.Fields) != 6 {
		t.Fatalf("fields = %d, want 6", len(n.Fields))
	}
	if n.Fields[0].Name != "`?unscramble` (or `us`)" {
		t.Fatalf("first field = %q", n.Fields[0].Name)
	}
	if h.bot.Activity() != "?unscramble | ?help" {
		t.Fatalf("activity = %q", h.bot.Activity())
	}
}

type panickyGames struct{}

func (panickyGames) Start(context.Context, string, string, string) (coordinator.StartResult, error) {
	panic("boom")
}
func (panickyGames) Stop(context.Context, string) coordinator.StopResult {
	return coordinator.StopResult{}
}
func (panickyGames) HandleAnswer(context.Context, chat.Message) game.Verdict { return game.Verdict{} }

func TestPanicBecomesGenericFailure(t *testing.T) {
	surface := &fakeSurface{mods: map[string]bool{"mod": true}}
	b := New(surface, panickyGames{}, store.New(&recordingPersister{}), Options{CommandRate: 100, CommandBurst: 100})

	b.HandleMessage(context.Background(), chat.Message{ChannelID: "ch1", GuildID: "g1", AuthorID: "mod", Content: "!us"})
	if surface.count() != 1 || !strings.Contains(surface.last().Title, "Something Went Wrong") {
		t.Fatalf("notices = %+v", surface.sent)
	}
}
