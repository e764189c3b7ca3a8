// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/7blacky7/tensorc/envconfig"
	"github.com/7blacky7/tensorc/version"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += "      " + e.Name + "   " + e.Description + "\n"
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: envconfig.LogLevel(),
	})))

	rootCmd := &cobra.Command{
		Use:           "tensorc",
		Short:         "Layer-group scheduler for tensor accelerators",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				cmd.Println(version.Version)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	planCmd := newPlanCmd()
	targetsCmd := newTargetsCmd()

	envVars := envconfig.AsMap()
	appendEnvDocs(planCmd, []envconfig.EnvVar{
		envVars["TENSORC_DEBUG"],
		envVars["TENSORC_TARGET"],
		envVars["TENSORC_NUM_PARALLEL"],
		envVars["TENSORC_CHECK_SLICES"],
	})

	rootCmd.AddCommand(planCmd, targetsCmd)

	return rootCmd
}
