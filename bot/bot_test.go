package bot

import (
	"testing"

	"github.com/onnwee/team-sync/polympics"
)

func TestParseMemberArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123456789", "123456789"},
		{"<@123456789>", "123456789"},
		{"<@!123456789>", "123456789"},
		{"<@123456789", ""},
		{"<@>", ""},
		{"", ""},
		{"not-an-id", ""},
		{"<@12ab34>", ""},
		{"12 34", ""},
	}
	for _, tt := range tests {
		if got := parseMemberArg(tt.in); got != tt.want {
			t.Errorf("parseMemberArg(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHoldsAnyRole(t *testing.T) {
	names := map[string]string{
		"r1": "Staff",
		"r2": "Member",
		"r3": "Mod",
	}
	wanted := []string{"Staff", "Mod"}

	tests := []struct {
		name string
		held []string
		want bool
	}{
		{"holds staff", []string{"r2", "r1"}, true},
		{"holds mod", []string{"r3"}, true},
		{"member only", []string{"r2"}, false},
		{"unknown role id", []string{"r9"}, false},
		{"no roles", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := holdsAnyRole(tt.held, names, wanted); got != tt.want {
				t.Errorf("holdsAnyRole(%v) = %v, want %v", tt.held, got, tt.want)
			}
		})
	}
}

func TestTeamFromAccount(t *testing.T) {
	if got := teamFromAccount(nil); got != nil {
		t.Errorf("nil account: got %+v", got)
	}
	if got := teamFromAccount(&polympics.Account{ID: 1}); got != nil {
		t.Errorf("teamless account: got %+v", got)
	}
	got := teamFromAccount(&polympics.Account{
		ID:   1,
		Team: &polympics.Team{ID: 7, Name: "Alpha"},
	})
	if got == nil || got.ID != "7" || got.Name != "Alpha" {
		t.Errorf("got %+v, want ID=7 Name=Alpha", got)
	}
}
