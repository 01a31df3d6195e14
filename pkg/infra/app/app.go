// Package app provides application bootstrapping with Cobra, Viper, and Pflag.
//
// An App is a root command carrying the option flags of every subcommand.
// Before any subcommand runs, configuration is merged from, in increasing
// precedence: the config file, a .env file, the environment and the flags.
//
// Usage:
//
//	a := app.NewApp(
//	    app.WithName("docbench"),
//	    app.WithOptions(opts),
//	    app.WithCommand("run", "Run the workload", run),
//	)
//	a.Run()
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	options "github.com/kart-io/docbench/pkg/app"
	"github.com/kart-io/docbench/pkg/app/cliflag"
)

// RunFunc is a subcommand's run function.
type RunFunc func(ctx context.Context, args []string) error

type command struct {
	use   string
	short string
	args  cobra.PositionalArgs
	run   RunFunc
}

// App is the main application structure.
type App struct {
	name        string
	shortDesc   string
	description string
	options     options.CliOptions
	commands    []command
	cmd         *cobra.Command
	viper       *viper.Viper
	silence     bool
	noVersion   bool
	noConfig    bool
}

// Option configures an App.
type Option func(*App)

// WithName sets the application name.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithShortDescription sets the short description.
func WithShortDescription(desc string) Option {
	return func(a *App) {
		a.shortDesc = desc
	}
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions sets the CLI options.
func WithOptions(opts options.CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithCommand adds a subcommand.
func WithCommand(use, short string, run RunFunc) Option {
	return func(a *App) {
		a.commands = append(a.commands, command{use: use, short: short, args: cobra.NoArgs, run: run})
	}
}

// WithCommandArgs adds a subcommand that accepts positional arguments.
func WithCommandArgs(use, short string, args cobra.PositionalArgs, run RunFunc) Option {
	return func(a *App) {
		a.commands = append(a.commands, command{use: use, short: short, args: args, run: run})
	}
}

// WithSilence disables usage and error printing.
func WithSilence() Option {
	return func(a *App) {
		a.silence = true
	}
}

// WithNoVersion disables version flag.
func WithNoVersion() Option {
	return func(a *App) {
		a.noVersion = true
	}
}

// WithNoConfig disables config file loading.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name:  filepath.Base(os.Args[0]),
		viper: viper.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.buildCommand()
	return a
}

// buildCommand creates the cobra command tree.
func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:               a.name,
		Short:             a.shortDesc,
		Long:              a.description,
		SilenceUsage:      true,
		PersistentPreRunE: a.prepare,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	if a.silence {
		cmd.SilenceErrors = true
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.PersistentFlags().SortFlags = false

	a.addGlobalFlags(cmd)

	if a.options != nil {
		fss := a.options.Flags()
		fss.AddTo(cmd.PersistentFlags())
		cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
			out := c.OutOrStdout()
			desc := c.Long
			if desc == "" {
				desc = c.Short
			}
			_, _ = fmt.Fprintf(out, "%s\n\nUsage:\n  %s\n", desc, c.UseLine())
			if c.HasAvailableSubCommands() {
				_, _ = fmt.Fprintf(out, "\nCommands:\n")
				for _, sub := range c.Commands() {
					if sub.IsAvailableCommand() {
						_, _ = fmt.Fprintf(out, "  %-10s %s\n", sub.Name(), sub.Short)
					}
				}
			}
			cliflag.PrintSections(out, fss, 100)
		})
	}

	for _, c := range a.commands {
		run := c.run
		cmd.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  c.args,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), args)
			},
		})
	}

	a.cmd = cmd
}

// addGlobalFlags adds global flags to the command.
func (a *App) addGlobalFlags(cmd *cobra.Command) {
	if !a.noConfig {
		cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
		cmd.PersistentFlags().String("env-file", ".env", "Path to a dotenv file loaded into the environment")
	}

	if !a.noVersion {
		version.AddFlags(cmd.PersistentFlags())
	}
}

// prepare runs before every subcommand: version flag, configuration, then
// Complete and Validate.
func (a *App) prepare(cmd *cobra.Command, _ []string) error {
	if !a.noVersion {
		version.PrintAndExitIfRequested()
	}

	if !a.noConfig {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig loads configuration from file, dotenv, environment, and flags.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.viper

	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), "."+a.name))
		v.AddConfigPath("/etc/" + a.name)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnvVars(v)

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(a.name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// Binding the flags makes every option key known to viper, so the
	// environment is consulted for keys absent from the config file. Bound
	// flags that were set explicitly take precedence over everything else.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands ${VAR} and $VAR style environment variables in config values.
// References to unset variables are kept as written.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(strVal, func(match string) string {
			name := match[1:]
			if strings.HasPrefix(match, "${") {
				name = match[2 : len(match)-1]
			}
			if envVal := os.Getenv(name); envVal != "" {
				return envVal
			}
			return match
		})
		if expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// Run executes the application until it finishes or SIGINT/SIGTERM arrives.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := a.cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
