// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/factoriotools/modloader/internal/config"
)

func newSettingsCommand(app *App) *cobra.Command {
	var (
		path   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Decode mod-settings.dat",
		Long: `Decode mod-settings.dat and print its settings tree.

The file is checked against the game version unless --allow-version-drift is
given. Without --game-version the version in the file header is accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			if path != "" {
				cfg.ModSettings = path
			}
			if format == "" {
				format = string(cfg.Output.Format)
			}
			outFormat := config.OutputFormat(format)
			if valid, errs := outFormat.IsValid(); !valid {
				return errs[0]
			}

			logger, err := app.newLogger(cfg.Log)
			if err != nil {
				return err
			}
			game, err := cfg.ParsedGameVersion()
			if err != nil {
				return classify(err)
			}

			tree, err := readSettings(cfg, game, logger)
			if err != nil {
				return err
			}
			return writeValue(app.stdout, tree, outFormat)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "settings file (default: <mods_dir>/mod-settings.dat)")
	cmd.Flags().StringVar(&format, "format", "", "output format: json or toml (default: output.format)")
	return cmd
}
