// Package chat defines the chat surface the game talks to: outbound notices,
// inbound messages, and the role/name lookups commands need.
package chat

import (
	"context"
	"fmt"
	"time"
)

// Color is an embed accent colour (0xRRGGBB).
type Color int

const (
	ColorDefault Color = 0x3498DB
	ColorSuccess Color = 0x2ECC71
	ColorError   Color = 0xE74C3C
	ColorWarning Color = 0xE67E22
	ColorInfo    Color = 0xF1C40F
	ColorHint    Color = 0x5865F2
)

// Field is a titled block inside a Notice.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Notice is one user-visible message.
type Notice struct {
	Title       string
	Description string
	Color       Color
	Fields      []Field
	Footer      string
}

// Message is an inbound chat message.
type Message struct {
	ID         string
	ChannelID  string
	GuildID    string // empty for direct messages
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	Content    string
	At         time.Time // platform timestamp; logged only, game timing uses the coordinator clock
}

// Sender delivers notices to a channel.
type Sender interface {
	Send(ctx context.Context, channelID string, n Notice) error
}

// Surface is everything the command layer needs from the chat platform.
type Surface interface {
	Sender
	HasRole(ctx context.Context, guildID, userID, roleName string) (bool, error)
	DisplayName(ctx context.Context, guildID, userID string) string
}

// DeliveryError wraps a failed send. State changes that preceded the send
// are never rolled back because of it.
type DeliveryError struct {
	ChannelID string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to channel %s: %v", e.ChannelID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
