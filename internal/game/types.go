// internal/game/types.go
//
// Core type definitions for an Unscramble round.
// Defines:
//   - Session: state for one channel's in-progress game.
//   - Verdict: classification of a chat message against a Session.

package game

import "time"

// Session holds the state of a single Unscramble game in one channel.
// The coordinator owns every Session; nothing else mutates it.
type Session struct {
	ID         string           // Unique session identifier (uuid), for log correlation.
	ChannelID  string           // Channel the game runs in; key of the active map.
	StartedBy  string           // User who issued the start command.
	Answer     string           // Target word, uppercase, immutable.
	Scrambled  string           // Permutation of Answer shown to players.
	StartedAt  time.Time        // Creation time (monotonic reading), drives elapsed time.
	Generation uint64           // Staleness token compared by deferred timer callbacks.
	Revealed   map[int]struct{} // Letter indices disclosed by hints; only grows.
	HintsShown int              // Number of hints emitted so far.
}

// VerdictKind enumerates how a message relates to the active answer.
type VerdictKind int

const (
	NoMatch VerdictKind = iota
	CorrectInTime
	CorrectButLate
)

func (k VerdictKind) String() string {
	switch k {
	case CorrectInTime:
		return "correct"
	case CorrectButLate:
		return "late"
	default:
		return "no_match"
	}
}

// Verdict is the result of evaluating one message.
type Verdict struct {
	Kind    VerdictKind
	Points  int           // Awarded points; zero unless Kind == CorrectInTime.
	Elapsed time.Duration // Time since the session started when the message arrived.
}

// Terminal reports whether the verdict ends the game.
func (v Verdict) Terminal() bool { return v.Kind != NoMatch }
