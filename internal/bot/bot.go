// internal/bot/bot.go
//
// Command surface: turns inbound chat messages into coordinator and score
// store calls and answers every outcome with exactly one notice.
//
// Responsibilities:
//   - Prefix command routing with aliases (case-insensitive).
//   - Moderator role gate and per-user cooldowns.
//   - Route plain messages in guild channels to the coordinator as answers.
//   - Collapse unexpected errors and panics into a generic failure notice.

package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/coordinator"
	"github.com/robalobadob/unscramble-bot/internal/game"
	"github.com/robalobadob/unscramble-bot/internal/store"
)

// Games is the coordinator surface used by commands.
type Games interface {
	Start(ctx context.Context, channelID, userID, userName string) (coordinator.StartResult, error)
	Stop(ctx context.Context, channelID string) coordinator.StopResult
	HandleAnswer(ctx context.Context, m chat.Message) game.Verdict
}

// Scores is the score store surface used by commands.
type Scores interface {
	Leaderboard(limit int) []store.Ranked
	Rank(userID string) (store.Ranked, bool)
	ResetAll()
	Flush(ctx context.Context) error
}

// Options configure routing and limits.
type Options struct {
	Prefix          string
	ModRole         string
	CommandRate     float64 // commands per second per user
	CommandBurst    int
	LeaderboardSize int
}

type handlerFunc func(ctx context.Context, m chat.Message) error

type command struct {
	name    string
	aliases []string
	usage   string
	mod     bool
	run     handlerFunc
}

// Bot dispatches chat messages.
type Bot struct {
	surface chat.Surface
	games   Games
	scores  Scores
	opts    Options

	commands map[string]*command
	ordered  []*command
	cool     *cooldowns
}

// New wires a Bot. Empty options get defaults.
func New(surface chat.Surface, games Games, scores Scores, opts Options) *Bot {
	if opts.Prefix == "" {
		opts.Prefix = "!"
	}
	if opts.ModRole == "" {
		opts.ModRole = "bot admin"
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 10
	}
	b := &Bot{
		surface:  surface,
		games:    games,
		scores:   scores,
		opts:     opts,
		commands: make(map[string]*command),
		cool:     newCooldowns(opts.CommandRate, opts.CommandBurst),
	}
	b.register(&command{name: "unscramble", aliases: []string{"us"}, mod: true, usage: "Starts a new Unscramble game.", run: b.cmdStart})
	b.register(&command{name: "leaderboard", aliases: []string{"lb"}, mod: true, usage: "Shows the top players in Unscramble.", run: b.cmdLeaderboard})
	b.register(&command{name: "stop", aliases: []string{"stopgame", "cancelgame"}, mod: true, usage: "Force-stops the current Unscramble game in the channel.", run: b.cmdStop})
	b.register(&command{name: "resetleaderboard", aliases: []string{"resetlb"}, mod: true, usage: "Clears all Unscramble scores.", run: b.cmdReset})
	b.register(&command{name: "rank", usage: "Shows your score and position.", run: b.cmdRank})
	b.register(&command{name: "help", aliases: []string{"h", "commands"}, usage: "Shows this help message.", run: b.cmdHelp})
	return b
}

func (b *Bot) register(c *command) {
	b.ordered = append(b.ordered, c)
	b.commands[c.name] = c
	for _, a := range c.aliases {
		b.commands[a] = c
	}
}

// Activity is the presence line shown by the bot account.
func (b *Bot) Activity() string {
	return fmt.Sprintf("%sunscramble | %shelp", b.opts.Prefix, b.opts.Prefix)
}

// HandleMessage processes one inbound message.
func (b *Bot) HandleMessage(ctx context.Context, m chat.Message) {
	if m.AuthorBot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, b.opts.Prefix) {
		b.games.HandleAnswer(ctx, m)
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, b.opts.Prefix))
	if len(fields) == 0 {
		return
	}
	cmd, ok := b.commands[strings.ToLower(fields[0])]
	if !ok {
		return
	}
	b.dispatch(ctx, cmd, m)
}

func (b *Bot) dispatch(ctx context.Context, cmd *command, m chat.Message) {
	logger := log.With().
		Str("command", cmd.name).
		Str("channel", m.ChannelID).
		Str("user", m.AuthorID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("command panicked")
			b.reply(ctx, m.ChannelID, genericFailure())
		}
	}()

	if cmd.mod {
		ok, err := b.surface.HasRole(ctx, m.GuildID, m.AuthorID, b.opts.ModRole)
		if err != nil {
			logger.Error().Err(err).Msg("role lookup failed")
			b.reply(ctx, m.ChannelID, genericFailure())
			return
		}
		if !ok {
			logger.Warn().Str("role", b.opts.ModRole).Msg("missing role")
			b.reply(ctx, m.ChannelID, chat.Notice{
				Description: fmt.Sprintf("❌ You lack the required role ('%s') to use this command.", b.opts.ModRole),
				Color:       chat.ColorError,
			})
			return
		}
	}

	if wait, ok := b.cool.take(m.AuthorID); !ok {
		logger.Info().Dur("retry_after", wait).Msg("command on cooldown")
		b.reply(ctx, m.ChannelID, chat.Notice{
			Description: fmt.Sprintf("⏳ This command is on cooldown. Please try again in %.2f seconds.", wait.Seconds()),
			Color:       chat.ColorWarning,
		})
		return
	}

	logger.Info().Msg("command")
	if err := cmd.run(ctx, m); err != nil {
		logger.Error().Err(err).Msg("command failed")
		b.reply(ctx, m.ChannelID, genericFailure())
	}
}

// RunJanitor drops idle cooldown state every interval until ctx is done.
func (b *Bot) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := b.cool.sweep(interval); n > 0 {
				log.Debug().Int("removed", n).Msg("cooldown limiters swept")
			}
		}
	}
}

func (b *Bot) reply(ctx context.Context, channelID string, n chat.Notice) {
	if err := b.surface.Send(ctx, channelID, n); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("reply not delivered")
	}
}

func genericFailure() chat.Notice {
	return chat.Notice{
		Title:       "Oops! Something Went Wrong",
		Description: "An unexpected error occurred while processing your command.",
		Color:       chat.ColorError,
	}
}
