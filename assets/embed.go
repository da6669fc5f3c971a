// Package assets holds files compiled into the binary: the default word list
// and the SQL migrations for the score store.
package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed words.txt sql/*.sql
var FS embed.FS

// readLines returns trimmed, non-comment lines of an embedded file.
func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// DefaultWords is the fallback word list used when WORDS_FILE is unusable.
func DefaultWords() ([]string, error) {
	return readLines("words.txt")
}

// Migrations exposes the embedded sql/ directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// sql/ is part of the embed pattern, so Sub cannot fail.
		panic(err)
	}
	return sub
}
