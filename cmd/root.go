package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/NadavTAshkenazi/smash/core/config"
	"github.com/NadavTAshkenazi/smash/core/logger"
	"github.com/NadavTAshkenazi/smash/core/shell"
	"github.com/NadavTAshkenazi/smash/core/vos"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	commandLine string
)

// configDir returns the configuration directory from --config or the
// default under $HOME.
func configDir() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, config.DefaultDirName), nil
}

func loadConfig(appLog *log.Logger) (*config.Configuration, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	configuration, err := config.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if cfgPath != "" {
			appLog.Printf("Couldn't load config from %q: did you run init?", dir)
		}
		return config.Default(), nil
	}

	return configuration, err
}

// openEventLog returns the session's event recorder and a func to close it.
func openEventLog(cfg *config.Configuration, appLog *log.Logger) (logger.Recorder, func()) {
	fd, err := cfg.OpenEventLog()
	switch {
	case errors.Is(err, config.ErrEventLogDisabled):
		return logger.Discard, func() {}
	case err != nil:
		appLog.Printf("Couldn't open event log: %v", err)
		return logger.Discard, func() {}
	}

	return logger.NewJsonLinesLogRecorder(fd).NewSession(), func() { fd.Close() }
}

func runShell(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	appLog := log.New(cmd.ErrOrStderr(), "smash: ", 0)
	cfg, err := loadConfig(appLog)
	if err != nil {
		return err
	}

	hostOS := vos.NewHostOS(os.Stdin, os.Stdout, os.Stderr)
	defer hostOS.Close()

	events, closeEvents := openEventLog(cfg, appLog)
	defer closeEvents()

	session := shell.NewSession(hostOS, shell.Options{
		Prompt:          cfg.Prompt,
		PromptDelimiter: cfg.PromptDelimiter,
		KillMarker:      cfg.KillMarker,
		Color:           cfg.UseColor(isatty.IsTerminal(os.Stderr.Fd())),
		Events:          events,
	})

	if commandLine != "" {
		err := session.Dispatch(commandLine)
		if err != nil && !errors.Is(err, shell.ErrQuit) {
			// Already reported by the shell.
			os.Exit(1)
		}
		return nil
	}

	rl, err := session.NewReadline(cfg.HistoryPath(), cfg.HistoryLimit, hostOS.Interactive())
	if err != nil {
		return err
	}
	defer rl.Close()

	session.Run(rl)
	return nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smash",
	Short: "Small shell with job control",
	Long: `An interactive shell with builtins for directory navigation and job
control (jobs, fg, bg, kill) that runs everything else as child processes.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default $HOME/"+config.DefaultDirName+")")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single command line and exit")
}
