// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// resolvedMod is one row of the resolve output.
type resolvedMod struct {
	Position int      `json:"position"`
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Depth    int      `json:"depth"`
	Requires []string `json:"requires,omitempty"`
}

func newResolveCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the mod load order",
		Long: `Discover installed mods, validate their dependencies and print the load order.

Mods run in order of dependency depth; mods at the same depth run by name.
core and base always run first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, app, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the load order as JSON")
	return cmd
}

func runResolve(cmd *cobra.Command, app *App, asJSON bool) error {
	cfg, err := app.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := app.newLogger(cfg.Log)
	if err != nil {
		return err
	}

	s, err := app.openSession(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	rows := s.loadOrder()
	if asJSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(app.stdout, "%s\n", data)
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		Headers("#", "MOD", "VERSION", "DEPTH", "REQUIRES").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for _, r := range rows {
		t.Row(strconv.Itoa(r.Position), CmdStyle.Render(r.Name), r.Version, strconv.Itoa(r.Depth), strings.Join(r.Requires, ", "))
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Load order")+SubtitleStyle.Render(" (game "+s.discovered.GameVersion.String()+")"))
	fmt.Fprintln(app.stdout, t.Render())
	return nil
}

// loadOrder lists the resolved mods in execution order.
func (s *session) loadOrder() []resolvedMod {
	rows := make([]resolvedMod, 0, len(s.resolution.Order))
	for i, name := range s.resolution.Order {
		row := resolvedMod{
			Position: i + 1,
			Name:     name,
			Depth:    s.resolution.Depths[name],
			Requires: s.resolution.Edges[name],
		}
		if m, ok := s.discovered.Registry.Lookup(name); ok {
			row.Version = m.Version.String()
		}
		rows = append(rows, row)
	}
	return rows
}
