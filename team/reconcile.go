package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/team-sync/directory"
	"github.com/onnwee/team-sync/telemetry"
)

// Reconciler makes a member's held roles match their current team membership.
type Reconciler struct {
	Dir  directory.Directory
	Prov *Provisioner
}

// Reconcile removes every team-tagged role the member holds and, if t is
// non-nil, adds the provisioned role for t. Removal always completes before
// the addition so the member is never observed with two team roles.
//
// A member that cannot be resolved in the guild is an expected race (the
// membership event may arrive after they left): the reconciliation is
// abandoned without error.
func (r *Reconciler) Reconcile(ctx context.Context, memberID string, t *Team) error {
	start := time.Now()
	defer func() {
		if telemetry.ReconcileDuration != nil {
			telemetry.ReconcileDuration.Observe(time.Since(start).Seconds())
		}
	}()
	if telemetry.ReconcilesTotal != nil {
		telemetry.ReconcilesTotal.Inc()
	}

	err := r.reconcile(ctx, memberID, t)
	if err != nil && telemetry.ReconcileErrors != nil {
		telemetry.ReconcileErrors.Inc()
	}
	return err
}

func (r *Reconciler) reconcile(ctx context.Context, memberID string, t *Team) error {
	m, err := r.Dir.Member(ctx, memberID)
	if errors.Is(err, directory.ErrNotFound) {
		if telemetry.ReconcilesAbandoned != nil {
			telemetry.ReconcilesAbandoned.Inc()
		}
		telemetry.LoggerWithCorr(ctx).Debug("member not in guild, skipping reconcile",
			"member", memberID, "component", "reconciler")
		return nil
	}
	if err != nil {
		return err
	}

	held, err := r.heldTeamRoles(ctx, m)
	if err != nil {
		return err
	}
	if len(held) > 0 {
		if err := r.Dir.RemoveMemberRoles(ctx, m.ID, held); err != nil {
			return fmt.Errorf("remove team roles from %s: %w", m.ID, err)
		}
	}

	if t == nil {
		return nil
	}
	prov, err := r.Prov.EnsureTeam(ctx, *t)
	if err != nil {
		return err
	}
	if err := r.Dir.AddMemberRole(ctx, m.ID, prov.RoleID); err != nil {
		return fmt.Errorf("add team role to %s: %w", m.ID, err)
	}
	return nil
}

// heldTeamRoles returns the IDs of the member's own roles whose names carry
// the team tag. Drifted state can leave more than one; all are returned.
func (r *Reconciler) heldTeamRoles(ctx context.Context, m directory.Member) ([]string, error) {
	roles, err := r.Dir.Roles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list guild roles: %w", err)
	}
	names := make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}
	var held []string
	for _, id := range m.RoleIDs {
		if IsTeamRole(names[id]) {
			held = append(held, id)
		}
	}
	return held, nil
}
