package coordinator

import (
	"fmt"
	"sort"
	"time"

	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/game"
)

func startNotice(userName, scrambled string, limit time.Duration) chat.Notice {
	return chat.Notice{
		Title: "🧩 New Unscramble Challenge!",
		Description: fmt.Sprintf("Alright %s, unscramble this word:\n\n# **%s**\n\nYou have **%d seconds!** Type your answer.\nHints will appear automatically!",
			userName, scrambled, int(limit.Seconds())),
		Color: chat.ColorDefault,
	}
}

func hintNotice(n int, scrambled, mask string) chat.Notice {
	return chat.Notice{
		Title:       fmt.Sprintf("💡 Hint #%d", n),
		Description: fmt.Sprintf("Stuck on **%s**?\n\n# %s", scrambled, mask),
		Color:       chat.ColorHint,
	}
}

func winNotice(userName, answer string, v game.Verdict, total int) chat.Notice {
	return chat.Notice{
		Title: fmt.Sprintf("🎉 Correct, %s! 🎉", userName),
		Description: fmt.Sprintf("You unscrambled **%s** in **%.2f**s!\nYou earned **%d** points.",
			answer, v.Elapsed.Seconds(), v.Points),
		Color:  chat.ColorSuccess,
		Fields: []chat.Field{{Name: "Your Total Score", Value: fmt.Sprintf("**%d** points", total)}},
	}
}

func lateNotice(userName, answer string, v game.Verdict, limit time.Duration) chat.Notice {
	return chat.Notice{
		Title: "⏰ Too Slow!",
		Description: fmt.Sprintf("Yes, %s, it was **%s**!\nBut you took **%.2fs** (limit %ds).\nNo points! 💨",
			userName, answer, v.Elapsed.Seconds(), int(limit.Seconds())),
		Color: chat.ColorWarning,
	}
}

func timeoutNotice(answer, prefix string) chat.Notice {
	return chat.Notice{
		Title: "⏱️ Time's Up!",
		Description: fmt.Sprintf("Aww, time ran out! Nobody guessed the word.\nThe word was **%s**.\n\nStart a new game with `%sunscramble`!",
			answer, prefix),
		Color: chat.ColorError,
	}
}

func sortSnapshots(s []Snapshot) {
	sort.Slice(s, func(i, j int) bool { return s[i].ChannelID < s[j].ChannelID })
}
