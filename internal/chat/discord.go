// internal/chat/discord.go
//
// Discord implementation of the chat Surface, built on discordgo.
// Responsibilities:
//   - Open the gateway session with the intents the game needs.
//   - Translate MessageCreate events into chat.Message.
//   - Render Notices as embeds.
//   - Resolve role membership and display names.

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Discord adapts a discordgo session to Surface.
type Discord struct {
	s        *discordgo.Session
	activity string
}

// NewDiscord prepares a session for token. Nothing connects until Open.
func NewDiscord(token, activity string) (*Discord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("discord: empty token")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	d := &Discord{s: s, activity: activity}
	s.AddHandler(d.onReady)
	return d, nil
}

// SetActivity changes the presence line applied when the session becomes ready.
func (d *Discord) SetActivity(a string) { d.activity = a }

// OnMessage registers fn for every inbound message.
func (d *Discord) OnMessage(fn func(ctx context.Context, m Message)) {
	d.s.AddHandler(func(_ *discordgo.Session, mc *discordgo.MessageCreate) {
		if mc.Author == nil {
			return
		}
		name := mc.Author.Username
		if mc.Member != nil && mc.Member.Nick != "" {
			name = mc.Member.Nick
		} else if mc.Author.GlobalName != "" {
			name = mc.Author.GlobalName
		}
		fn(context.Background(), Message{
			ID:         mc.ID,
			ChannelID:  mc.ChannelID,
			GuildID:    mc.GuildID,
			AuthorID:   mc.Author.ID,
			AuthorName: name,
			AuthorBot:  mc.Author.Bot,
			Content:    mc.Content,
			At:         mc.Timestamp,
		})
	})
}

// Open connects to the gateway. A rejected token surfaces here.
func (d *Discord) Open() error {
	if err := d.s.Open(); err != nil {
		return fmt.Errorf("discord: open: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (d *Discord) Close() error { return d.s.Close() }

func (d *Discord) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("user", r.User.Username).Str("id", r.User.ID).Msg("discord ready")
	if d.activity == "" {
		return
	}
	if err := s.UpdateGameStatus(0, d.activity); err != nil {
		log.Warn().Err(err).Msg("set activity")
	}
}

// Send posts n as an embed.
func (d *Discord) Send(_ context.Context, channelID string, n Notice) error {
	if _, err := d.s.ChannelMessageSendEmbed(channelID, toEmbed(n)); err != nil {
		return &DeliveryError{ChannelID: channelID, Err: err}
	}
	return nil
}

// HasRole reports whether userID holds a role named roleName in guildID.
func (d *Discord) HasRole(_ context.Context, guildID, userID, roleName string) (bool, error) {
	if guildID == "" {
		return false, nil
	}
	member, err := d.s.GuildMember(guildID, userID)
	if err != nil {
		return false, fmt.Errorf("discord: member %s: %w", userID, err)
	}
	roles, err := d.s.GuildRoles(guildID)
	if err != nil {
		return false, fmt.Errorf("discord: roles of %s: %w", guildID, err)
	}
	return memberHasRole(member.Roles, roles, roleName), nil
}

// DisplayName resolves a human-readable name: guild nickname, global name,
// then username. Unknown users render as "Unknown User (<id>)".
func (d *Discord) DisplayName(_ context.Context, guildID, userID string) string {
	if guildID != "" {
		if m, err := d.s.GuildMember(guildID, userID); err == nil && m.Nick != "" {
			return m.Nick
		}
	}
	u, err := d.s.User(userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("lookup user")
		return fmt.Sprintf("Unknown User (%s)", userID)
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func memberHasRole(memberRoleIDs []string, guildRoles []*discordgo.Role, roleName string) bool {
	want := map[string]bool{}
	for _, r := range guildRoles {
		if strings.EqualFold(r.Name, roleName) {
			want[r.ID] = true
		}
	}
	for _, id := range memberRoleIDs {
		if want[id] {
			return true
		}
	}
	return false
}

func toEmbed(n Notice) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       int(n.Color),
	}
	for _, f := range n.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if n.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: n.Footer}
	}
	return e
}
