// Package bot wires the Discord gateway to the reconciliation core: operator
// commands (ping, reload, check, restart) and the member-join / user-rename
// events. Every path reduces to one Reconcile call; the bot itself holds no
// membership state.
package bot

import (
	"context"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/team-sync/config"
	"github.com/onnwee/team-sync/directory"
	"github.com/onnwee/team-sync/polympics"
	"github.com/onnwee/team-sync/team"
)

// Bot glues gateway events to the core.
type Bot struct {
	session    *discordgo.Session
	cfg        *config.Config
	dir        directory.Directory
	reconciler *team.Reconciler
	api        *polympics.Client

	ctx      context.Context
	shutdown context.CancelFunc
}

// New builds the bot. ctx is the process root context; shutdown is invoked by
// the restart command to trigger the ordered process shutdown.
func New(ctx context.Context, shutdown context.CancelFunc, session *discordgo.Session, cfg *config.Config,
	dir directory.Directory, reconciler *team.Reconciler, api *polympics.Client) *Bot {
	return &Bot{
		session:    session,
		cfg:        cfg,
		dir:        dir,
		reconciler: reconciler,
		api:        api,
		ctx:        ctx,
		shutdown:   shutdown,
	}
}

// Register attaches the gateway handlers. Call before session.Open.
func (b *Bot) Register() {
	b.session.AddHandler(b.onMessage)
	b.session.AddHandler(b.onMemberJoin)
	b.session.AddHandler(b.onUserUpdate)
}

// teamFromAccount converts the API's optional team into the core's type.
func teamFromAccount(acct *polympics.Account) *team.Team {
	if acct == nil || acct.Team == nil {
		return nil
	}
	return &team.Team{ID: strconv.FormatInt(acct.Team.ID, 10), Name: acct.Team.Name}
}
