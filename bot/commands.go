package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/team-sync/polympics"
	"github.com/onnwee/team-sync/telemetry"
)

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID != b.cfg.GuildID {
		return
	}
	body, ok := strings.CutPrefix(m.Content, b.cfg.CommandPrefix)
	if !ok {
		return
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "ping":
		b.cmdPing(m)
	case "reload":
		b.cmdReload(m, args)
	case "check":
		b.cmdCheck(m)
	case "restart":
		b.cmdRestart(m)
	}
}

func (b *Bot) reply(channelID, text string) {
	if _, err := b.session.ChannelMessageSend(channelID, text); err != nil {
		slog.Warn("failed to send reply", slog.Any("err", err), slog.String("component", "bot"))
	}
}

// isAdmin reports whether the invoker holds one of the configured admin roles
// or is the application owner.
func (b *Bot) isAdmin(m *discordgo.MessageCreate) bool {
	if m.Author.ID == b.cfg.OwnerID {
		return true
	}
	if m.Member == nil {
		return false
	}
	roles, err := b.dir.Roles(b.ctx)
	if err != nil {
		slog.Warn("admin check failed to list roles", slog.Any("err", err), slog.String("component", "bot"))
		return false
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}
	return holdsAnyRole(m.Member.Roles, names, b.cfg.AdminRoleNames)
}

// holdsAnyRole reports whether any held role ID resolves to one of the wanted
// role names.
func holdsAnyRole(heldIDs []string, namesByID map[string]string, wanted []string) bool {
	for _, id := range heldIDs {
		name := namesByID[id]
		for _, w := range wanted {
			if name == w {
				return true
			}
		}
	}
	return false
}

// parseMemberArg extracts a member ID from a raw ID or a mention like <@123>
// or <@!123>. Returns "" when the argument is neither.
func parseMemberArg(arg string) string {
	if id, ok := strings.CutPrefix(arg, "<@"); ok {
		id = strings.TrimPrefix(id, "!")
		id, ok = strings.CutSuffix(id, ">")
		if !ok {
			return ""
		}
		arg = id
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if arg == "" {
		return ""
	}
	return arg
}

func (b *Bot) cmdPing(m *discordgo.MessageCreate) {
	if !b.isAdmin(m) {
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("Pong! `%s`", b.session.HeartbeatLatency()))
}

// cmdReload re-pulls one member's team from the membership source and
// reconciles their roles. Without an argument it targets the invoker; only
// admins may target someone else.
func (b *Bot) cmdReload(m *discordgo.MessageCreate, args []string) {
	targetID := m.Author.ID
	if len(args) > 0 {
		if !b.isAdmin(m) {
			b.reply(m.ChannelID, "Only staff members have permission to use this command on another user.")
			return
		}
		targetID = parseMemberArg(args[0])
		if targetID == "" {
			b.reply(m.ChannelID, "Unable to find that user. Try a mention or a user ID.")
			return
		}
	}

	acct, err := b.api.Account(b.ctx, targetID)
	if errors.Is(err, polympics.ErrNotFound) {
		b.reply(m.ChannelID, "That user is not signed up to the Polympics.")
		return
	}
	if err != nil {
		slog.Error("account lookup failed", slog.String("member", targetID), slog.Any("err", err), slog.String("component", "bot"))
		b.reply(m.ChannelID, "Membership lookup failed, try again later.")
		return
	}

	if err := b.reconciler.Reconcile(b.ctx, targetID, teamFromAccount(acct)); err != nil {
		slog.Error("reload reconcile failed", slog.String("member", targetID), slog.Any("err", err), slog.String("component", "bot"))
		b.reply(m.ChannelID, "Syncing roles failed.")
		return
	}
	if acct.Team != nil {
		b.reply(m.ChannelID, fmt.Sprintf("Synced team roles to **%s**.", acct.Team.Name))
	} else {
		b.reply(m.ChannelID, "No team: removed any team roles.")
	}
}

// cmdCheck re-pulls every guild member. Per-member failures are reported and
// skipped; they never abort the scan.
func (b *Bot) cmdCheck(m *discordgo.MessageCreate) {
	if m.Author.ID != b.cfg.OwnerID {
		return
	}
	members, err := b.dir.Members(b.ctx)
	if err != nil {
		b.reply(m.ChannelID, "Failed to list guild members.")
		return
	}

	var synced, skipped, failed int
	for _, member := range members {
		acct, err := b.api.Account(b.ctx, member.ID)
		if errors.Is(err, polympics.ErrNotFound) {
			skipped++
			continue
		}
		if err != nil {
			failed++
			if telemetry.BulkCheckItemErrors != nil {
				telemetry.BulkCheckItemErrors.Inc()
			}
			slog.Warn("bulk check: account lookup failed", slog.String("member", member.ID), slog.Any("err", err), slog.String("component", "bot"))
			continue
		}
		if err := b.reconciler.Reconcile(b.ctx, member.ID, teamFromAccount(acct)); err != nil {
			failed++
			if telemetry.BulkCheckItemErrors != nil {
				telemetry.BulkCheckItemErrors.Inc()
			}
			slog.Warn("bulk check: reconcile failed", slog.String("member", member.ID), slog.Any("err", err), slog.String("component", "bot"))
			continue
		}
		synced++
	}
	b.reply(m.ChannelID, fmt.Sprintf("Done: synced %d, skipped %d unregistered, %d errors.", synced, skipped, failed))
}

// cmdRestart announces and triggers the ordered process shutdown: the HTTP
// listener and the gateway session are closed before exit.
func (b *Bot) cmdRestart(m *discordgo.MessageCreate) {
	if m.Author.ID != b.cfg.OwnerID {
		return
	}
	b.reply(m.ChannelID, "Shutting down.")
	slog.Info("restart requested", slog.String("by", m.Author.ID), slog.String("component", "bot"))
	b.shutdown()
}
