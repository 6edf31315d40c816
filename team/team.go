// Package team implements the reconciliation core: given a (member, team)
// fact from the membership source, converge the guild's role/channel state to
// match it. The Provisioner guarantees a team's role and channel are created
// at most once; the Reconciler swaps a member's team-tagged roles.
package team

import (
	"fmt"
	"strings"
)

// RolePrefix marks a guild role as representing team membership. Created roles
// are named RolePrefix + sanitized team name.
const RolePrefix = "Team: "

// Team identifies a competition team. ID is the opaque stable identity from
// the membership source; Name is the current display name and may contain
// emoji or other non-ASCII characters.
type Team struct {
	ID   string
	Name string
}

// IsTeamRole reports whether a role name carries the team tag. The match is on
// the bare "Team:" marker so roles from before the space was added still count
// for removal.
func IsTeamRole(name string) bool {
	return strings.HasPrefix(name, "Team:")
}

// Sanitize strips runes outside the printable ASCII range and trims the
// result. Role and channel names are always derived from the sanitized name;
// the raw name is never used for directory lookups.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 0x20 && r <= 0x7e {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ChannelName derives the text channel name for a team: sanitized, spaces
// replaced with hyphens, lowercased.
func ChannelName(name string) string {
	return strings.ToLower(strings.ReplaceAll(Sanitize(name), " ", "-"))
}

// ConfigError reports that a configured guild object (category, announcements
// channel, muted role) could not be resolved. It is fatal for the provisioning
// attempt and must never be masked as "team has no role".
type ConfigError struct {
	Object string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configured %s cannot be resolved: %v", e.Object, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
