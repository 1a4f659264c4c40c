package main

import (
	"strings"
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "migrate", "slots"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %q not registered: %v", name, err)
		}
	}
	if root.RunE == nil {
		t.Fatal("root command must default to serve")
	}
}

func TestSlotsRequiresService(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"slots", "--date", "2025-06-01"})
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "service") {
		t.Fatalf("expected missing --service error, got %v", err)
	}
}
