package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// membersPageSize is the Discord API maximum for one members page.
const membersPageSize = 1000

// Discord implements Directory against one guild via a discordgo session.
// In Discord the @everyone role shares the guild's ID.
type Discord struct {
	session *discordgo.Session
	guildID string
}

// NewDiscord wraps an open session scoped to guildID.
func NewDiscord(session *discordgo.Session, guildID string) *Discord {
	return &Discord{session: session, guildID: guildID}
}

func (d *Discord) Member(ctx context.Context, id string) (Member, error) {
	m, err := d.session.GuildMember(d.guildID, id, discordgo.WithContext(ctx))
	if err != nil {
		return Member{}, mapError(fmt.Errorf("member %s: %w", id, err), err)
	}
	return toMember(m), nil
}

// Members pages through the full guild member list.
func (d *Discord) Members(ctx context.Context) ([]Member, error) {
	var out []Member
	after := ""
	for {
		page, err := d.session.GuildMembers(d.guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list members after %q: %w", after, err)
		}
		for _, m := range page {
			out = append(out, toMember(m))
		}
		if len(page) < membersPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (d *Discord) Roles(ctx context.Context) ([]Role, error) {
	roles, err := d.session.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (d *Discord) RoleByID(ctx context.Context, id string) (Role, error) {
	roles, err := d.Roles(ctx)
	if err != nil {
		return Role{}, err
	}
	for _, r := range roles {
		if r.ID == id {
			return r, nil
		}
	}
	return Role{}, fmt.Errorf("role %s: %w", id, ErrNotFound)
}

func (d *Discord) CreateRole(ctx context.Context, name, reason string) (Role, error) {
	r, err := d.session.GuildRoleCreate(d.guildID, &discordgo.RoleParams{Name: name},
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return Role{}, fmt.Errorf("create role %q: %w", name, err)
	}
	return Role{ID: r.ID, Name: r.Name}, nil
}

func (d *Discord) ChannelByID(ctx context.Context, id string) (Channel, error) {
	c, err := d.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return Channel{}, mapError(fmt.Errorf("channel %s: %w", id, err), err)
	}
	return Channel{ID: c.ID, Name: c.Name, ParentID: c.ParentID}, nil
}

func (d *Discord) CategoryChildCount(ctx context.Context, categoryID string) (int, error) {
	channels, err := d.session.GuildChannels(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("list channels: %w", err)
	}
	n := 0
	found := false
	for _, c := range channels {
		if c.ID == categoryID {
			found = true
		}
		if c.ParentID == categoryID {
			n++
		}
	}
	if !found {
		return 0, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	return n, nil
}

func (d *Discord) CreateTextChannel(ctx context.Context, p ChannelParams) (Channel, error) {
	data := discordgo.GuildChannelCreateData{
		Name:     p.Name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: p.CategoryID,
	}
	for _, ov := range p.Overwrites {
		allow, deny := overwriteBits(ov)
		data.PermissionOverwrites = append(data.PermissionOverwrites, &discordgo.PermissionOverwrite{
			ID:    ov.RoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: allow,
			Deny:  deny,
		})
	}
	c, err := d.session.GuildChannelCreateComplex(d.guildID, data,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(p.Reason))
	if err != nil {
		return Channel{}, fmt.Errorf("create channel %q: %w", p.Name, err)
	}
	return Channel{ID: c.ID, Name: c.Name, ParentID: c.ParentID}, nil
}

func (d *Discord) SetChannelOverwrite(ctx context.Context, channelID string, ov Overwrite) error {
	allow, deny := overwriteBits(ov)
	err := d.session.ChannelPermissionSet(channelID, ov.RoleID,
		discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(fmt.Errorf("set overwrite on %s for role %s: %w", channelID, ov.RoleID, err), err)
	}
	return nil
}

func (d *Discord) AddMemberRole(ctx context.Context, memberID, roleID string) error {
	err := d.session.GuildMemberRoleAdd(d.guildID, memberID, roleID, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(fmt.Errorf("add role %s to %s: %w", roleID, memberID, err), err)
	}
	return nil
}

func (d *Discord) RemoveMemberRoles(ctx context.Context, memberID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		err := d.session.GuildMemberRoleRemove(d.guildID, memberID, roleID, discordgo.WithContext(ctx))
		if err != nil {
			return mapError(fmt.Errorf("remove role %s from %s: %w", roleID, memberID, err), err)
		}
	}
	return nil
}

func (d *Discord) EveryoneRoleID() string { return d.guildID }

func toMember(m *discordgo.Member) Member {
	return Member{ID: m.User.ID, Username: m.User.Username, RoleIDs: m.Roles}
}

func overwriteBits(ov Overwrite) (allow, deny int64) {
	set := func(p *bool, bit int64) {
		if p == nil {
			return
		}
		if *p {
			allow |= bit
		} else {
			deny |= bit
		}
	}
	set(ov.ViewChannel, discordgo.PermissionViewChannel)
	set(ov.SendMessages, discordgo.PermissionSendMessages)
	set(ov.AddReactions, discordgo.PermissionAddReactions)
	return allow, deny
}

// mapError converts Discord "unknown member/user/role/channel" REST errors into
// ErrNotFound, keeping the wrapped message for everything else.
func mapError(wrapped, cause error) error {
	var rest *discordgo.RESTError
	if !errors.As(cause, &rest) {
		return wrapped
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser,
			discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", ErrNotFound, wrapped)
		}
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, wrapped)
	}
	return wrapped
}
