package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arkcheck/arkcheck/envconfig"
	"github.com/arkcheck/arkcheck/logutil"
)

// appendEnvDocs - Fuegt Environment-Variablen zur Hilfe hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "arkcheck",
		Short:         "Inference accuracy harness for speech models",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	verifyCmd := newVerifyCmd()
	opsCmd := newOpsCmd()
	runsCmd := newRunsCmd()
	serveCmd := newServeCmd()

	envVars := envconfig.AsMap()
	backendEnvs := []envconfig.EnvVar{
		envVars["ARKCHECK_DEBUG"],
		envVars["ARKCHECK_BACKEND"],
		envVars["ARKCHECK_PREFER"],
		envVars["ARKCHECK_THREADS"],
		envVars["ARKCHECK_FETCH_TIMEOUT"],
		envVars["ARKCHECK_ORT_LIBRARY"],
	}

	for _, cmd := range []*cobra.Command{verifyCmd, opsCmd, runsCmd, serveCmd} {
		switch cmd {
		case verifyCmd:
			appendEnvDocs(cmd, append(backendEnvs, envVars["ARKCHECK_NOPROGRESS"], envVars["ARKCHECK_DB"]))
		case opsCmd:
			appendEnvDocs(cmd, backendEnvs)
		case runsCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["ARKCHECK_DB"]})
		case serveCmd:
			appendEnvDocs(cmd, append(backendEnvs,
				envVars["ARKCHECK_HOST"],
				envVars["ARKCHECK_ORIGINS"],
				envVars["ARKCHECK_DB"],
			))
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		verifyCmd,
		opsCmd,
		runsCmd,
	)

	return rootCmd
}
