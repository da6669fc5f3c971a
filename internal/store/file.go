// internal/store/file.go
//
// JSON file Persister. The document is a flat object mapping user id to
// score; key order in the file is first-reached order. Writes go to a temp
// file that is renamed over the target.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilePersister keeps the leaderboard in a JSON document at Path.
type FilePersister struct {
	Path string
}

func NewFilePersister(path string) *FilePersister { return &FilePersister{Path: path} }

// Load reads the document. A missing file is an empty leaderboard.
func (p *FilePersister) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntries(data)
}

// Save writes entries atomically.
func (p *FilePersister) Save(_ context.Context, entries []Entry) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".leaderboard-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.Path)
}

// encodeEntries writes a JSON object preserving slice order.
func encodeEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(e.UserID)
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		fmt.Fprintf(&buf, ": %d", e.Score)
	}
	if len(entries) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// decodeEntries reads a flat JSON object keeping key order.
func decodeEntries(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("leaderboard document must be a JSON object")
	}
	var out []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var score int
		if err := dec.Decode(&score); err != nil {
			return nil, fmt.Errorf("score for %s: %w", key, err)
		}
		if score < 0 {
			return nil, fmt.Errorf("negative score for %s", key)
		}
		out = append(out, Entry{UserID: key, Score: score})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
