package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

type CommandSchema struct {
	Path        string           `json:"path"`
	Use         string           `json:"use"`
	Short       string           `json:"short"`
	Aliases     []string         `json:"aliases,omitempty"`
	Flags       []FlagSchema     `json:"flags,omitempty"`
	GlobalFlags []FlagSchema     `json:"global_flags,omitempty"`
	ExitCodes   []ExitCodeSchema `json:"exit_codes,omitempty"`
	Subcommands []CommandSchema  `json:"subcommands,omitempty"`
}

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
}

type ExitCodeSchema struct {
	Code int    `json:"code"`
	Type string `json:"type"`
}

// Build describes the command at commandPath (the root when empty). Global
// flags and the exit code table are listed once, on the root.
func Build(root *cobra.Command, commandPath string) (CommandSchema, error) {
	cmd := root
	if strings.TrimSpace(commandPath) != "" {
		parts := strings.Fields(strings.TrimSpace(commandPath))
		for _, p := range parts {
			found := false
			for _, c := range cmd.Commands() {
				if c.Name() == p || contains(c.Aliases, p) {
					cmd = c
					found = true
					break
				}
			}
			if !found {
				return CommandSchema{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("command not found: %s", commandPath))
			}
		}
	}
	s := serialize(cmd)
	if cmd == root {
		s.GlobalFlags = visit(root.PersistentFlags())
		for _, code := range clierr.Codes() {
			s.ExitCodes = append(s.ExitCodes, ExitCodeSchema{Code: int(code), Type: clierr.Kind(code)})
		}
	}
	return s, nil
}

func serialize(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:    strings.TrimSpace(cmd.CommandPath()),
		Use:     cmd.Use,
		Short:   cmd.Short,
		Aliases: cmd.Aliases,
		Flags:   visit(cmd.LocalNonPersistentFlags()),
	}

	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		s.Subcommands = append(s.Subcommands, serialize(sub))
	}
	return s
}

func visit(set *pflag.FlagSet) []FlagSchema {
	items := []FlagSchema{}
	set.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		items = append(items, FlagSchema{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     f.Usage,
			Default:   f.DefValue,
		})
	})
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
