package bot

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/team-sync/polympics"
)

// onMemberJoin pulls a joining member's team and reconciles, so returning
// competitors get their role back without operator action.
func (b *Bot) onMemberJoin(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.GuildID != b.cfg.GuildID || e.User == nil || e.User.Bot {
		return
	}
	acct, err := b.api.Account(b.ctx, e.User.ID)
	if errors.Is(err, polympics.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("join: account lookup failed", slog.String("member", e.User.ID), slog.Any("err", err), slog.String("component", "bot"))
		return
	}
	if err := b.reconciler.Reconcile(b.ctx, e.User.ID, teamFromAccount(acct)); err != nil {
		slog.Error("join: reconcile failed", slog.String("member", e.User.ID), slog.Any("err", err), slog.String("component", "bot"))
	}
}

// onUserUpdate pushes a changed username/avatar back to the membership source
// so competition listings stay current. Best effort: unregistered users and
// transient failures are only logged.
func (b *Bot) onUserUpdate(s *discordgo.Session, e *discordgo.UserUpdate) {
	if e.User == nil || e.Bot {
		return
	}
	acct, err := b.api.Account(b.ctx, e.ID)
	if err != nil {
		if !errors.Is(err, polympics.ErrNotFound) {
			slog.Warn("rename: account lookup failed", slog.String("member", e.ID), slog.Any("err", err), slog.String("component", "bot"))
		}
		return
	}
	id := acct.ID
	if id == 0 {
		id, _ = strconv.ParseInt(e.ID, 10, 64)
	}
	if err := b.api.UpdateAccount(b.ctx, id, e.Username, e.Discriminator, e.AvatarURL("")); err != nil {
		slog.Warn("rename: account update failed", slog.String("member", e.ID), slog.Any("err", err), slog.String("component", "bot"))
	}
}
