package team

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/team-sync/directory"
	"github.com/onnwee/team-sync/store"
	"github.com/onnwee/team-sync/telemetry"
)

// Provisioned is the handle pair recorded for a team.
type Provisioned struct {
	RoleID    string
	ChannelID string
}

// Provisioner lazily creates a role and text channel per team, exactly once.
// The check-then-create sequence is a critical section: overlapping
// reconciliations for a team with no record yet must not both create.
type Provisioner struct {
	Store store.Store
	Dir   directory.Directory

	// Guild objects that must already exist.
	AnnounceChannelID  string
	CategoryID         string
	OverflowCategoryID string
	MutedRoleID        string

	// CategoryLimit is the maximum child-channel count of a category before
	// new channels overflow to OverflowCategoryID.
	CategoryLimit int

	mu sync.Mutex // guards record read-decide-write (and the creates in between)
}

// EnsureTeam returns the team's role and channel, creating and recording them
// on first sight. Existing records are resolved by handle, not by re-deriving
// names, so a team rename keeps returning the original role and channel.
func (p *Provisioner) EnsureTeam(ctx context.Context, t Team) (Provisioned, error) {
	start := time.Now()
	defer func() {
		if telemetry.ProvisionDuration != nil {
			telemetry.ProvisionDuration.Observe(time.Since(start).Seconds())
		}
	}()

	clean := Sanitize(t.Name)

	p.mu.Lock()
	rec, ok, err := p.findRecord(ctx, t.ID, clean)
	if err != nil {
		p.mu.Unlock()
		return Provisioned{}, err
	}
	if ok {
		p.mu.Unlock()
		if _, err := p.Dir.RoleByID(ctx, rec.RoleID); err != nil {
			return Provisioned{}, fmt.Errorf("resolve recorded role for team %s: %w", t.ID, err)
		}
		return Provisioned{RoleID: rec.RoleID, ChannelID: rec.ChannelID}, nil
	}
	prov, err := p.createLocked(ctx, t, clean)
	p.mu.Unlock()
	return prov, err
}

// findRecord looks up by team identity, falling back to the sanitized display
// name for records written before identity keying existed.
func (p *Provisioner) findRecord(ctx context.Context, teamID, clean string) (store.Record, bool, error) {
	rec, ok, err := p.Store.Get(ctx, teamID)
	if err != nil {
		return store.Record{}, false, fmt.Errorf("lookup record for team %s: %w", teamID, err)
	}
	if ok {
		return rec, true, nil
	}
	rec, ok, err = p.Store.Get(ctx, clean)
	if err != nil {
		return store.Record{}, false, fmt.Errorf("lookup legacy record %q: %w", clean, err)
	}
	return rec, ok, nil
}

func (p *Provisioner) createLocked(ctx context.Context, t Team, clean string) (Provisioned, error) {
	// Resolve the configured guild objects before creating anything, so a bad
	// configuration doesn't leave an orphan role behind.
	if _, err := p.Dir.ChannelByID(ctx, p.AnnounceChannelID); err != nil {
		return Provisioned{}, &ConfigError{Object: "announcements channel", Err: err}
	}
	if _, err := p.Dir.RoleByID(ctx, p.MutedRoleID); err != nil {
		return Provisioned{}, &ConfigError{Object: "muted role", Err: err}
	}
	count, err := p.Dir.CategoryChildCount(ctx, p.CategoryID)
	if err != nil {
		return Provisioned{}, &ConfigError{Object: "team category", Err: err}
	}
	categoryID := p.CategoryID
	if count >= p.CategoryLimit && p.OverflowCategoryID != "" {
		if _, err := p.Dir.CategoryChildCount(ctx, p.OverflowCategoryID); err != nil {
			return Provisioned{}, &ConfigError{Object: "overflow team category", Err: err}
		}
		categoryID = p.OverflowCategoryID
	}

	role, err := p.Dir.CreateRole(ctx, RolePrefix+clean, "team role did not exist yet")
	if err != nil {
		return Provisioned{}, err
	}
	if err := p.Dir.SetChannelOverwrite(ctx, p.AnnounceChannelID, directory.Overwrite{
		RoleID:      role.ID,
		ViewChannel: directory.Bool(true),
	}); err != nil {
		return Provisioned{}, err
	}

	channel, err := p.Dir.CreateTextChannel(ctx, directory.ChannelParams{
		Name:       ChannelName(clean),
		CategoryID: categoryID,
		Reason:     "team channel did not exist yet",
		Overwrites: []directory.Overwrite{
			{RoleID: role.ID, ViewChannel: directory.Bool(true)},
			{RoleID: p.Dir.EveryoneRoleID(), ViewChannel: directory.Bool(false)},
			{RoleID: p.MutedRoleID, SendMessages: directory.Bool(false), AddReactions: directory.Bool(false)},
		},
	})
	if err != nil {
		return Provisioned{}, err
	}

	rec := store.Record{RoleID: role.ID, ChannelID: channel.ID}
	if err := p.Store.Put(ctx, t.ID, rec); err != nil {
		// The role and channel now exist in the guild with no record of them.
		// Swallowing this would cause duplicate creation on the next call.
		slog.Error("provisioning record write failed after creation",
			slog.String("team", t.ID),
			slog.String("role", role.ID),
			slog.String("channel", channel.ID),
			slog.Any("err", err),
			slog.String("component", "provisioner"))
		return Provisioned{}, fmt.Errorf("team %s provisioned but unrecorded: %w", t.ID, err)
	}

	if telemetry.TeamsProvisioned != nil {
		telemetry.TeamsProvisioned.Inc()
	}
	if n, err := p.Store.Len(ctx); err == nil {
		telemetry.SetKnownTeams(n)
	}
	slog.Info("provisioned team",
		slog.String("team", t.ID),
		slog.String("name", clean),
		slog.String("role", role.ID),
		slog.String("channel", channel.ID),
		slog.String("component", "provisioner"))
	return Provisioned{RoleID: role.ID, ChannelID: channel.ID}, nil
}
