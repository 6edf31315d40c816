// Package directory wraps the chat platform behind a narrow capability
// interface: role and channel lookup/creation, permission overwrites, and
// member role mutation. The rest of the service never touches the Discord
// client directly, which keeps the reconciliation core testable against fakes.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a member, role, or channel does not exist in
// the guild. Member absence is an expected race (events can arrive after a
// user leaves) and callers treat it as a silent no-op.
var ErrNotFound = errors.New("directory: not found")

// Role is a guild role.
type Role struct {
	ID   string
	Name string
}

// Channel is a guild channel. ParentID is the containing category, if any.
type Channel struct {
	ID       string
	Name     string
	ParentID string
}

// Member is a guild member with the role IDs they currently hold.
type Member struct {
	ID       string
	Username string
	RoleIDs  []string
}

// Overwrite is a permission overwrite for one role on one channel. Nil fields
// are left untouched; true allows, false denies.
type Overwrite struct {
	RoleID       string
	ViewChannel  *bool
	SendMessages *bool
	AddReactions *bool
}

// ChannelParams describes a text channel to create.
type ChannelParams struct {
	Name       string
	CategoryID string
	Overwrites []Overwrite
	Reason     string
}

// Directory is the capability set the provisioner and reconciler need.
type Directory interface {
	Member(ctx context.Context, id string) (Member, error)
	Members(ctx context.Context) ([]Member, error)

	Roles(ctx context.Context) ([]Role, error)
	RoleByID(ctx context.Context, id string) (Role, error)
	CreateRole(ctx context.Context, name, reason string) (Role, error)

	ChannelByID(ctx context.Context, id string) (Channel, error)
	CategoryChildCount(ctx context.Context, categoryID string) (int, error)
	CreateTextChannel(ctx context.Context, p ChannelParams) (Channel, error)
	SetChannelOverwrite(ctx context.Context, channelID string, ov Overwrite) error

	AddMemberRole(ctx context.Context, memberID, roleID string) error
	RemoveMemberRoles(ctx context.Context, memberID string, roleIDs []string) error

	// EveryoneRoleID is the ID of the guild-wide default role (@everyone).
	EveryoneRoleID() string
}

// Bool is a convenience for building Overwrite fields.
func Bool(v bool) *bool { return &v }
