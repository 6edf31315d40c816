// Package testutil holds shared test doubles: an in-memory fake of the chat
// directory and an httptest-backed mock of the Polympics API.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/onnwee/team-sync/directory"
)

// FakeDirectory is an in-memory guild implementing directory.Directory. It
// records every mutation in order so tests can assert sequencing, and counts
// role/channel creations so tests can assert at-most-once provisioning.
type FakeDirectory struct {
	mu      sync.Mutex
	guildID string
	nextID  int

	roles    map[string]directory.Role
	channels map[string]directory.Channel
	members  map[string][]string // member id -> role ids
	users    map[string]string   // member id -> username

	// Mutations is the ordered log of state-changing calls, e.g.
	// "create-role Team: Alpha", "remove-role 42 r1", "add-role 42 r2".
	Mutations []string

	RoleCreates    int
	ChannelCreates int
}

// NewFakeDirectory returns an empty guild. The @everyone role shares the
// guild ID, as on Discord.
func NewFakeDirectory(guildID string) *FakeDirectory {
	f := &FakeDirectory{
		guildID:  guildID,
		roles:    map[string]directory.Role{},
		channels: map[string]directory.Channel{},
		members:  map[string][]string{},
		users:    map[string]string{},
	}
	f.roles[guildID] = directory.Role{ID: guildID, Name: "@everyone"}
	return f
}

// SeedRole adds a pre-existing role and returns its ID.
func (f *FakeDirectory) SeedRole(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newIDLocked("role")
	f.roles[id] = directory.Role{ID: id, Name: name}
	return id
}

// SeedChannel adds a pre-existing channel (parentID "" for a category or an
// uncategorized channel) and returns its ID.
func (f *FakeDirectory) SeedChannel(name, parentID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newIDLocked("chan")
	f.channels[id] = directory.Channel{ID: id, Name: name, ParentID: parentID}
	return id
}

// SeedMember adds a guild member holding the given role IDs.
func (f *FakeDirectory) SeedMember(id, username string, roleIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id] = append([]string(nil), roleIDs...)
	f.users[id] = username
}

// MemberRoles returns the role IDs a member currently holds.
func (f *FakeDirectory) MemberRoles(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.members[id]...)
}

func (f *FakeDirectory) newIDLocked(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *FakeDirectory) Member(_ context.Context, id string) (directory.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roles, ok := f.members[id]
	if !ok {
		return directory.Member{}, fmt.Errorf("member %s: %w", id, directory.ErrNotFound)
	}
	return directory.Member{ID: id, Username: f.users[id], RoleIDs: append([]string(nil), roles...)}, nil
}

func (f *FakeDirectory) Members(_ context.Context) ([]directory.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]directory.Member, 0, len(f.members))
	for id, roles := range f.members {
		out = append(out, directory.Member{ID: id, Username: f.users[id], RoleIDs: append([]string(nil), roles...)})
	}
	return out, nil
}

func (f *FakeDirectory) Roles(_ context.Context) ([]directory.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]directory.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *FakeDirectory) RoleByID(_ context.Context, id string) (directory.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return directory.Role{}, fmt.Errorf("role %s: %w", id, directory.ErrNotFound)
	}
	return r, nil
}

func (f *FakeDirectory) CreateRole(_ context.Context, name, _ string) (directory.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newIDLocked("role")
	r := directory.Role{ID: id, Name: name}
	f.roles[id] = r
	f.RoleCreates++
	f.Mutations = append(f.Mutations, "create-role "+name)
	return r, nil
}

func (f *FakeDirectory) ChannelByID(_ context.Context, id string) (directory.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return directory.Channel{}, fmt.Errorf("channel %s: %w", id, directory.ErrNotFound)
	}
	return c, nil
}

func (f *FakeDirectory) CategoryChildCount(_ context.Context, categoryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[categoryID]; !ok {
		return 0, fmt.Errorf("category %s: %w", categoryID, directory.ErrNotFound)
	}
	n := 0
	for _, c := range f.channels {
		if c.ParentID == categoryID {
			n++
		}
	}
	return n, nil
}

func (f *FakeDirectory) CreateTextChannel(_ context.Context, p directory.ChannelParams) (directory.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newIDLocked("chan")
	c := directory.Channel{ID: id, Name: p.Name, ParentID: p.CategoryID}
	f.channels[id] = c
	f.ChannelCreates++
	f.Mutations = append(f.Mutations, "create-channel "+p.Name)
	return c, nil
}

func (f *FakeDirectory) SetChannelOverwrite(_ context.Context, channelID string, ov directory.Overwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return fmt.Errorf("channel %s: %w", channelID, directory.ErrNotFound)
	}
	f.Mutations = append(f.Mutations, fmt.Sprintf("set-overwrite %s %s", channelID, ov.RoleID))
	return nil
}

func (f *FakeDirectory) AddMemberRole(_ context.Context, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[memberID]; !ok {
		return fmt.Errorf("member %s: %w", memberID, directory.ErrNotFound)
	}
	for _, held := range f.members[memberID] {
		if held == roleID {
			return nil
		}
	}
	f.members[memberID] = append(f.members[memberID], roleID)
	f.Mutations = append(f.Mutations, fmt.Sprintf("add-role %s %s", memberID, roleID))
	return nil
}

func (f *FakeDirectory) RemoveMemberRoles(_ context.Context, memberID string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[memberID]; !ok {
		return fmt.Errorf("member %s: %w", memberID, directory.ErrNotFound)
	}
	for _, roleID := range roleIDs {
		held := f.members[memberID]
		for i, id := range held {
			if id == roleID {
				f.members[memberID] = append(held[:i], held[i+1:]...)
				break
			}
		}
		f.Mutations = append(f.Mutations, fmt.Sprintf("remove-role %s %s", memberID, roleID))
	}
	return nil
}

func (f *FakeDirectory) EveryoneRoleID() string { return f.guildID }

// MutationLog returns a copy of the ordered mutation log.
func (f *FakeDirectory) MutationLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Mutations...)
}
