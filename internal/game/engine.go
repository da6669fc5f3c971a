// internal/game/engine.go
//
// Session behaviour and the answer evaluator.
// Responsibilities:
//   - Create sessions with an empty reveal set.
//   - Hint bookkeeping: max hints per word, random reveal, masked display.
//   - Classify a message as no-match / correct-in-time / correct-but-late.
//
// Notes:
//   - The evaluator is pure: it never mutates the session. Removing the
//     session and applying the score is the coordinator's job.

package game

import (
	mrand "math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaskRune stands in for letters not yet revealed (fullwidth underscore).
const MaskRune = "＿"

// NewSession constructs a session for channelID started at now.
func NewSession(channelID, startedBy, answer, scrambled string, now time.Time, generation uint64) *Session {
	return &Session{
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		StartedBy:  startedBy,
		Answer:     strings.ToUpper(answer),
		Scrambled:  strings.ToUpper(scrambled),
		StartedAt:  now,
		Generation: generation,
		Revealed:   make(map[int]struct{}),
	}
}

// MaxHints returns max(1, len/2) for words longer than one letter, else 0.
func MaxHints(word string) int {
	n := len([]rune(word))
	if n <= 1 {
		return 0
	}
	return max(1, n/2)
}

// Elapsed reports time since the session started.
func (s *Session) Elapsed(now time.Time) time.Duration { return now.Sub(s.StartedAt) }

// Stuck reports whether the session is older than threshold.
func (s *Session) Stuck(now time.Time, threshold time.Duration) bool {
	return s.Elapsed(now) > threshold
}

// CanHint reports whether another hint may be revealed.
func (s *Session) CanHint() bool {
	return s.HintsShown < MaxHints(s.Answer) && len(s.unrevealed()) > 0
}

// unrevealed lists letter indices not yet disclosed, ascending.
func (s *Session) unrevealed() []int {
	n := len([]rune(s.Answer))
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if _, ok := s.Revealed[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// RevealRandom discloses one unrevealed index chosen uniformly and counts the
// hint. It returns false without mutating anything when no hint is allowed.
func (s *Session) RevealRandom(rng *mrand.Rand) (int, bool) {
	if !s.CanHint() {
		return -1, false
	}
	avail := s.unrevealed()
	idx := avail[rng.IntN(len(avail))]
	s.Revealed[idx] = struct{}{}
	s.HintsShown++
	return idx, true
}

// RevealedIndices returns the disclosed indices in ascending order.
func (s *Session) RevealedIndices() []int {
	out := make([]int, 0, len(s.Revealed))
	for i := range s.Revealed {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// HintMask renders the answer with revealed letters shown and the rest masked,
// letters separated by spaces.
func (s *Session) HintMask() string {
	letters := []rune(s.Answer)
	parts := make([]string, len(letters))
	for i, r := range letters {
		if _, ok := s.Revealed[i]; ok {
			parts[i] = string(r)
		} else {
			parts[i] = MaskRune
		}
	}
	return strings.Join(parts, " ")
}

// Normalize prepares raw chat text for comparison with an answer.
func Normalize(raw string) string { return strings.ToUpper(strings.TrimSpace(raw)) }

// Evaluate classifies raw against the session's answer.
//
// A nil session or a non-matching text yields NoMatch. A match within limit
// yields CorrectInTime with points from policy; a later match yields
// CorrectButLate with zero points.
func Evaluate(s *Session, raw string, elapsed, limit time.Duration, policy ScoringPolicy) Verdict {
	if s == nil || Normalize(raw) != s.Answer {
		return Verdict{Kind: NoMatch, Elapsed: elapsed}
	}
	if elapsed > limit {
		return Verdict{Kind: CorrectButLate, Elapsed: elapsed}
	}
	return Verdict{Kind: CorrectInTime, Points: policy.Points(elapsed, s.HintsShown), Elapsed: elapsed}
}
