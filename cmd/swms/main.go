package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goliatone/go-swms/internal/app"
	"github.com/goliatone/go-swms/internal/config"
	"github.com/goliatone/go-swms/internal/logging"
	"github.com/goliatone/go-swms/internal/prompt"
)

const serviceName = "swms"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	v          *viper.Viper
	configPath string
	jsonOutput bool
	yes        bool

	// confirm asks before overwriting an existing file.
	confirm func(message string) (bool, error)
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper(), confirm: confirmPrompt}

	root := &cobra.Command{
		Use:   "swms",
		Short: "Safe Work Method Statement generator",
		Long: `swms assembles Safe Work Method Statements from project, activity,
emergency, plant and PPE sections, scores every activity and renders the
result to PDF. Rendering tries the external service, a headless browser and
the built-in PDF writer in that order and returns the first PDF produced.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file (default ./swms.yaml)")
	flags.BoolVar(&c.jsonOutput, "json", false, "output JSON")
	flags.BoolVarP(&c.yes, "yes", "y", false, "overwrite existing files without asking")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, console)")
	flags.String("theme", "", "theme manifest name")
	flags.String("variant", "", "theme variant")
	flags.String("external-endpoint", "", "external rendering service URL")
	flags.Bool("chromium", true, "enable the headless browser tier")
	flags.String("chromium-path", "", "browser executable")
	flags.Int64("seed", 0, "jitter seed (0 seeds from the clock)")
	flags.Bool("jitter", true, "apply scoring jitter")
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = c.v.BindPFlag("theme.name", flags.Lookup("theme"))
	_ = c.v.BindPFlag("theme.variant", flags.Lookup("variant"))
	_ = c.v.BindPFlag("renderers.external.endpoint", flags.Lookup("external-endpoint"))
	_ = c.v.BindPFlag("renderers.chromium.enabled", flags.Lookup("chromium"))
	_ = c.v.BindPFlag("renderers.chromium.exec_path", flags.Lookup("chromium-path"))
	_ = c.v.BindPFlag("risk.seed", flags.Lookup("seed"))
	_ = c.v.BindPFlag("risk.jitter", flags.Lookup("jitter"))

	root.AddCommand(
		c.renderCmd(),
		c.registerCmd(),
		c.scoreCmd(),
		c.tiersCmd(),
		c.jobsCmd(),
		c.serveCmd(),
		c.configCmd(),
		c.validateCmd(),
		c.contractCmd(),
		c.initCmd(),
	)
	return root
}

// load resolves configuration from defaults, file, environment and flags.
func (c *cli) load() (config.Config, error) {
	return config.Load(c.v, c.configPath)
}

// open builds the application graph. Callers must Close it.
func (c *cli) open(opts ...app.Option) (*app.App, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, logger, opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("close", zap.Error(err))
	}
	_ = a.Logger.Sync()
}

// writeOutput writes data to path, asking first when the file exists and
// --yes was not given. An empty path or "-" writes to out.
func (c *cli) writeOutput(out io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := out.Write(data)
		return err
	}
	if _, err := os.Stat(path); err == nil && !c.yes {
		ok, err := c.confirm(fmt.Sprintf("%s exists. Overwrite?", path))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s exists, not overwritten", path)
		}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// newDriver and confirmPrompt are replaced in tests.
var (
	newDriver     = prompt.NewSurveyDriver
	confirmPrompt = surveyConfirm
)

func surveyConfirm(message string) (bool, error) {
	return newDriver(os.Stderr).Confirm(context.Background(), prompt.ConfirmConfig{Message: message})
}

func printJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
