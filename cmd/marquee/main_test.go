package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := newRootCmd()

	want := map[string]bool{
		"version":   false,
		"browse":    false,
		"popular":   false,
		"search":    false,
		"favorites": false,
		"serve":     false,
		"bot":       false,
		"mcp-serve": false,
		"config":    false,
	}

	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	root := newRootCmd()
	flag := root.PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("--config flag not registered")
	}
	if flag.DefValue != "configs/marquee.yaml" {
		t.Errorf("--config default = %q, want %q", flag.DefValue, "configs/marquee.yaml")
	}
	if flag.Shorthand != "c" {
		t.Errorf("--config shorthand = %q, want %q", flag.Shorthand, "c")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
}

func TestSearchCommand_RequiresArgs(t *testing.T) {
	cmd := newSearchCmd()
	err := cmd.Args(cmd, []string{})
	if err == nil {
		t.Error("search command should require at least 1 argument")
	}
	err = cmd.Args(cmd, []string{"the", "matrix"})
	if err != nil {
		t.Errorf("search command should accept args: %v", err)
	}
}

func TestListingCommands_FavoritesFlag(t *testing.T) {
	for _, cmd := range []*cobra.Command{newPopularCmd(), newSearchCmd()} {
		if cmd.Flags().Lookup("favorites") == nil {
			t.Errorf("%s: --favorites flag not registered", cmd.Name())
		}
	}
}

func TestServeCommand_PortFlag(t *testing.T) {
	flag := newServeCmd().Flags().Lookup("port")
	if flag == nil {
		t.Fatal("--port flag not registered")
	}
	if flag.Shorthand != "p" || flag.DefValue != "0" {
		t.Errorf("--port shorthand = %q default = %q", flag.Shorthand, flag.DefValue)
	}
}

func TestBotCommand_WithAPIFlag(t *testing.T) {
	if newBotCmd().Flags().Lookup("with-api") == nil {
		t.Error("--with-api flag not registered")
	}
}

func TestMCPServeCommand_Hidden(t *testing.T) {
	if !newMCPServeCmd().Hidden {
		t.Error("mcp-serve should be hidden")
	}
}

func TestFavoritesCommand_Subcommands(t *testing.T) {
	cmd := newFavoritesCmd()
	want := map[string]bool{"list": false, "add": false, "remove": false}
	for _, sub := range cmd.Commands() {
		want[sub.Name()] = true
	}
	for name, found := range want {
		if !found {
			t.Errorf("favorites command missing %q subcommand", name)
		}
	}
}

func TestConfigCommand_HasValidateSubcommand(t *testing.T) {
	cmd := newConfigCmd()
	found := false
	for _, sub := range cmd.Commands() {
		if sub.Name() == "validate" {
			found = true
			break
		}
	}
	if !found {
		t.Error("config command missing 'validate' subcommand")
	}
}
