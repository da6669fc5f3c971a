// internal/words/words.go
//
// Word provider for the Unscramble game.
//
// Responsibilities:
//   - Load the candidate word list from WORDS_FILE or fall back to the
//     embedded default list.
//   - Normalise entries (trim, uppercase, drop blanks/comments/duplicates).
//   - Draw a random answer together with a scrambled permutation of it.
//
// Constraints:
//   • Words are single tokens of letters; anything else is skipped.
//   • A scramble of a word with two or more distinct letters differs from
//     the word (bounded retries, equality only as a last resort).

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand/v2"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/robalobadob/unscramble-bot/assets"
)

// ScrambleRetries bounds how many shuffles are tried before accepting a
// permutation equal to the original.
const ScrambleRetries = 5

// ErrEmpty is returned when no usable words could be loaded.
var ErrEmpty = errors.New("words: list is empty")

// Provider hands out random words and their scrambles.
type Provider struct {
	words []string

	mu  sync.Mutex // guards rng
	rng *mrand.Rand
}

// New builds a Provider from raw entries, normalising them.
func New(list []string) *Provider {
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	return &Provider{
		words: normalize(list),
		rng:   mrand.New(mrand.NewChaCha8(seed)),
	}
}

// Load reads the word list at path. A missing or empty file falls back to the
// embedded defaults; ErrEmpty is returned only if that is empty too.
func Load(path string) (*Provider, error) {
	list, err := readWordFile(path)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("file", path).Msg("word file unreadable, using embedded defaults")
	case len(normalize(list)) == 0:
		log.Warn().Str("file", path).Msg("word file empty, using embedded defaults")
		list = nil
	}
	if len(list) == 0 {
		list, err = assets.DefaultWords()
		if err != nil {
			return nil, err
		}
	}
	p := New(list)
	if p.Len() == 0 {
		return nil, ErrEmpty
	}
	log.Info().Int("count", p.Len()).Msg("word list loaded")
	return p, nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

// normalize trims and uppercases entries, drops blanks, comments, entries
// containing non-letters, and duplicates (first occurrence wins).
func normalize(list []string) []string {
	cleaned := lo.FilterMap(list, func(line string, _ int) (string, bool) {
		w := strings.ToUpper(strings.TrimSpace(line))
		if w == "" || strings.HasPrefix(w, "#") || !isLetters(w) {
			return "", false
		}
		return w, true
	})
	return lo.Uniq(cleaned)
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Len reports how many words are available.
func (p *Provider) Len() int { return len(p.words) }

// Random returns a uniformly chosen word, or false when the list is empty.
func (p *Provider) Random() (string, bool) {
	if len(p.words) == 0 {
		return "", false
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.words))))
	if err != nil {
		log.Warn().Err(err).Msg("crypto/rand failed, using fallback index")
		return p.words[0], true
	}
	return p.words[n.Int64()], true
}

// Draw returns an answer and its scramble.
func (p *Provider) Draw() (answer, scrambled string, ok bool) {
	answer, ok = p.Random()
	if !ok {
		return "", "", false
	}
	p.mu.Lock()
	scrambled = Scramble(answer, p.rng)
	p.mu.Unlock()
	return answer, scrambled, true
}

// Scramble shuffles the letters of word. For words longer than one letter it
// reshuffles up to ScrambleRetries times while the result equals word.
func Scramble(word string, rng *mrand.Rand) string {
	letters := []rune(word)
	if len(letters) <= 1 {
		return word
	}
	out := word
	for i := 0; i < ScrambleRetries && out == word; i++ {
		rng.Shuffle(len(letters), func(a, b int) { letters[a], letters[b] = letters[b], letters[a] })
		out = string(letters)
	}
	return out
}
