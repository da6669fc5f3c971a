package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/coordinator"
)

func (b *Bot) cmdStart(ctx context.Context, m chat.Message) error {
	res, err := b.games.Start(ctx, m.ChannelID, m.AuthorID, mention(m.AuthorID))
	switch {
	case errors.Is(err, coordinator.ErrNoWords):
		b.reply(ctx, m.ChannelID, chat.Notice{Description: "❌ Error: The word list failed to load.", Color: chat.ColorError})
		return nil
	case err != nil:
		return err
	}
	if res.Kind == coordinator.AlreadyActive {
		b.reply(ctx, m.ChannelID, chat.Notice{
			Title:       "⏳ Game in Progress!",
			Description: fmt.Sprintf("Guess: **%s**", res.Scrambled),
			Color:       chat.ColorWarning,
		})
	}
	// Started notices come from the coordinator.
	return nil
}

func (b *Bot) cmdStop(ctx context.Context, m chat.Message) error {
	res := b.games.Stop(ctx, m.ChannelID)
	if res.Kind == coordinator.NotActive {
		b.reply(ctx, m.ChannelID, chat.Notice{
			Description: "🤔 No Unscramble game seems to be active in this channel to stop.",
			Color:       chat.ColorInfo,
		})
		return nil
	}
	b.reply(ctx, m.ChannelID, chat.Notice{
		Description: fmt.Sprintf("🛑 The Unscramble game has been stopped by %s.\nThe word was **%s**.", mention(m.AuthorID), res.Answer),
		Color:       chat.ColorWarning,
	})
	return nil
}

func (b *Bot) cmdLeaderboard(ctx context.Context, m chat.Message) error {
	rows := b.scores.Leaderboard(b.opts.LeaderboardSize)
	if len(rows) == 0 {
		b.reply(ctx, m.ChannelID, chat.Notice{
			Description: "📜 The leaderboard is empty! Play some rounds first.",
			Color:       chat.ColorInfo,
		})
		return nil
	}
	var sb strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&sb, "`%d.` %s: **%d** points\n", r.Rank, b.surface.DisplayName(ctx, m.GuildID, r.UserID), r.Score)
	}
	b.reply(ctx, m.ChannelID, chat.Notice{
		Title:       "🏆 Unscramble Leaderboard 🏆",
		Description: sb.String(),
		Color:       chat.ColorInfo,
		Footer:      fmt.Sprintf("Showing top %d players.", len(rows)),
	})
	return nil
}

func (b *Bot) cmdReset(ctx context.Context, m chat.Message) error {
	b.scores.ResetAll()
	log.Warn().Str("user", m.AuthorID).Str("guild", m.GuildID).Msg("leaderboard reset")
	if err := b.scores.Flush(ctx); err != nil {
		// The in-memory reset stands; the periodic flush retries.
		log.Error().Err(err).Msg("flush after reset failed")
	}
	b.reply(ctx, m.ChannelID, chat.Notice{
		Title:       "✅ Leaderboard Reset!",
		Description: fmt.Sprintf("The Unscramble leaderboard has been successfully cleared by %s.", mention(m.AuthorID)),
		Color:       chat.ColorSuccess,
	})
	return nil
}

func (b *Bot) cmdRank(ctx context.Context, m chat.Message) error {
	r, ok := b.scores.Rank(m.AuthorID)
	if !ok {
		b.reply(ctx, m.ChannelID, chat.Notice{
			Description: fmt.Sprintf("%s, you're not on the leaderboard yet. Win a round first!", mention(m.AuthorID)),
			Color:       chat.ColorInfo,
		})
		return nil
	}
	b.reply(ctx, m.ChannelID, chat.Notice{
		Description: fmt.Sprintf("%s, you're ranked **#%d** with **%d** points.", mention(m.AuthorID), r.Rank, r.Score),
		Color:       chat.ColorDefault,
	})
	return nil
}

func (b *Bot) cmdHelp(ctx context.Context, m chat.Message) error {
	n := chat.Notice{
		Title:       "🧩 Unscramble Help",
		Description: "Here are the commands you can use:",
		Color:       chat.ColorDefault,
		Footer:      "Let the games begin!",
	}
	for _, c := range b.ordered {
		name := fmt.Sprintf("`%s%s`", b.opts.Prefix, c.name)
		if len(c.aliases) > 0 {
			name += fmt.Sprintf(" (or `%s`)", strings.Join(c.aliases, "`, `"))
		}
		value := c.usage
		if c.mod {
			value += fmt.Sprintf("\n*Requires '%s' role.*", b.opts.ModRole)
		}
		n.Fields = append(n.Fields, chat.Field{Name: name, Value: value})
	}
	b.reply(ctx, m.ChannelID, n)
	return nil
}

func mention(userID string) string { return "<@" + userID + ">" }
