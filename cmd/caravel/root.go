package main

import (
	"fmt"
	"os"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/caravel-sh/caravel/internal/fargate"
)

// v holds the merged flag and environment configuration. Flags win over
// environment variables, which win over defaults.
var v = viper.New()

const (
	defaultDescriptorPath = "caravel.yaml"
	defaultStatePath      = ".caravel/state.json"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "caravel",
		Short:   "deploy containerized chatbots to AWS ECS Fargate",
		Version: fargate.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvPrefix("CARAVEL")
			// Hyphenated flag names map to underscored env names, so
			// --log-level is settable as CARAVEL_LOG_LEVEL.
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
				return errors.Wrap(err, "bind flags")
			}
			return setupLogging(v.GetString("log-level"))
		},
	}

	registerFlags(cmd.PersistentFlags())

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newApplyCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDestroyCmd())
	cmd.AddCommand(newInvokeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func registerFlags(fs *pflag.FlagSet) {
	fs.StringP("file", "f", defaultDescriptorPath,
		"path to the deployment descriptor (YAML or JSON)")
	fs.String("state", defaultStatePath,
		"path to the deployment state file")
	fs.String("log-level", "info",
		"set the logging level (can be one of: debug, info, warn, error, or fatal)")
}

func setupLogging(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	log.SetLevel(parsed)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

// loadDescriptor reads and parses the descriptor file named by --file.
func loadDescriptor() (*fargate.Descriptor, error) {
	path := v.GetString("file")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read descriptor %s", path)
	}
	d, err := fargate.ParseDescriptor(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse descriptor %s", path)
	}
	return d, nil
}

// newDeployer builds a Deployer backed by the --state file.
func newDeployer() *fargate.Deployer {
	return fargate.NewDeployer(fargate.NewStateStore(v.GetString("state")))
}

// printDeployError expands a structured deploy error for the operator.
func printDeployError(err error) {
	if summary := errorSummary(err); summary != "" {
		fmt.Fprint(os.Stderr, summary)
	}
	if de := fargate.IsDeployError(err); de != nil {
		fmt.Fprintf(os.Stderr, "error category: %s\n", de.Category)
		if de.Remediation != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", de.Remediation)
		}
	}
}

// errorSummary breaks an aggregated error into its per-resource diagnostic
// lines. Single errors produce no summary; the error text already says it.
func errorSummary(err error) string {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return fargate.DiagnosticSummary(merr.Errors)
	}
	return ""
}
