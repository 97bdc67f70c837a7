package app

import (
	"testing"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"run", "snapshot", "prune", "status", "daemon"}
	for _, name := range want {
		found := false
		for _, cmd := range RootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestPruneSides(t *testing.T) {
	tests := []struct {
		side    string
		want    []string
		wantErr bool
	}{
		{side: "local", want: []string{"local"}},
		{side: "remote", want: []string{"remote"}},
		{side: "both", want: []string{"local", "remote"}},
		{side: "everything", wantErr: true},
		{side: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.side, func(t *testing.T) {
			got, err := pruneSides(tt.side)
			if tt.wantErr {
				if err == nil {
					t.Errorf("pruneSides(%q) expected error", tt.side)
				}
				return
			}
			if err != nil {
				t.Fatalf("pruneSides(%q) error: %v", tt.side, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("pruneSides(%q) = %v, want %v", tt.side, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("pruneSides(%q)[%d] = %q, want %q", tt.side, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolveConfigPathPrecedence(t *testing.T) {
	t.Setenv("BTRBAK_CONFIG", "/from/env/config.json")

	configPath = "/from/flag/config.json"
	defer func() { configPath = "" }()

	got, err := resolveConfigPath()
	if err != nil {
		t.Fatalf("resolveConfigPath() error: %v", err)
	}
	if got != "/from/flag/config.json" {
		t.Errorf("resolveConfigPath() = %q, flag should win over env", got)
	}

	configPath = ""
	got, err = resolveConfigPath()
	if err != nil {
		t.Fatalf("resolveConfigPath() error: %v", err)
	}
	if got != "/from/env/config.json" {
		t.Errorf("resolveConfigPath() = %q, want env value", got)
	}
}

func TestResolveConfigPathDefault(t *testing.T) {
	t.Setenv("BTRBAK_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	configPath = ""
	got, err := resolveConfigPath()
	if err != nil {
		t.Fatalf("resolveConfigPath() error: %v", err)
	}
	if got != "/xdg/btrbak/config.json" {
		t.Errorf("resolveConfigPath() = %q, want XDG default", got)
	}
}
