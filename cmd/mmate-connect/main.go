package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/glimte/mmate-connect/health"
	"github.com/glimte/mmate-connect/internal/rabbitmq"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

type options struct {
	configPath   string
	cfg          rabbitmq.Config
	verbose      bool
	showPassword bool
	timeout      time.Duration
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "mmate-connect",
		Short:         "Build RabbitMQ connection URLs and check broker connectivity",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML file with broker settings")
	flags.StringVar(&opts.cfg.User, "user", "", "Broker user")
	flags.StringVar(&opts.cfg.Password, "password", "", "Broker password")
	flags.StringVar(&opts.cfg.Hostname, "hostname", "", "Broker hostname")
	flags.IntVar(&opts.cfg.Port, "port", 0, "Broker port (omitted from the URL when 0)")
	flags.StringVar(&opts.cfg.Protocol, "protocol", "", "URL protocol (default \"amqp://\")")
	flags.StringVar(&opts.cfg.Vhost, "vhost", "", "Virtual host")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	urlCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the connection URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if opts.showPassword {
				fmt.Fprintln(cmd.OutOrStdout(), manager.URL())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), rabbitmq.SanitizeURL(manager.URL()))
			}
			return nil
		},
	}
	urlCmd.Flags().BoolVar(&opts.showPassword, "show-password", false, "Print the password instead of masking it")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Open a connection, report health and close it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer manager.CloseConnection()

			checker := health.NewRabbitMQChecker(manager,
				health.WithCheckLogger(opts.logger(cmd.ErrOrStderr())),
				health.WithCheckTimeout(opts.timeout),
			)
			result := checker.Check(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Status != health.StatusHealthy {
				return fmt.Errorf("broker is %s", result.Status)
			}
			return nil
		},
	}
	checkCmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "How long the check may wait for the broker")

	rootCmd.AddCommand(urlCmd, checkCmd)
	return rootCmd
}

func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// manager builds a ConnectionManager from the config file, if any, with
// command line flags taking precedence. Validation runs on the merged
// result, so a flag may supply a field the file leaves out.
func (o *options) manager(logOut io.Writer) (*rabbitmq.ConnectionManager, error) {
	cfg := o.cfg
	if o.configPath != "" {
		loaded, err := rabbitmq.ReadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = merge(loaded, o.cfg)
	}
	return rabbitmq.NewConnectionManager(cfg, rabbitmq.WithLogger(o.logger(logOut)))
}

func merge(base, override rabbitmq.Config) rabbitmq.Config {
	if override.User != "" {
		base.User = override.User
	}
	if override.Password != "" {
		base.Password = override.Password
	}
	if override.Hostname != "" {
		base.Hostname = override.Hostname
	}
	if override.Port != 0 {
		base.Port = override.Port
	}
	if override.Protocol != "" {
		base.Protocol = override.Protocol
	}
	if override.Vhost != "" {
		base.Vhost = override.Vhost
	}
	return base
}
