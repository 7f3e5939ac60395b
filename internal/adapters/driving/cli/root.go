// Package cli provides the mlsq command line interface.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mlsq/internal/core/ports/driving"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// version is set at build time.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
	noKeyring bool
)

// Options carries the global flags into the service builder.
type Options struct {
	ConfigDir string
	NoKeyring bool
}

// Services are the driving ports the commands run against.
type Services struct {
	Adapter  driving.ProtocolAdapter
	Profiles driving.ProfileService

	// WatchProfiles reloads saved profiles whenever their file changes
	// until ctx is done. Optional.
	WatchProfiles func(ctx context.Context, onChange func()) error
}

// Builder wires the services once the global flags are parsed.
type Builder func(opts Options) (*Services, error)

var (
	adapterService driving.ProtocolAdapter
	profileService driving.ProfileService
	watchProfiles  func(ctx context.Context, onChange func()) error

	buildServices Builder
)

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "mlsq",
	Short: "Query RETS and RESO Web API servers",
	Long: `mlsq talks to real estate listing servers over RETS 1.x and the
RESO Web API. Save a connection profile once, then browse metadata,
resolve lookup values, run searches and export raw metadata.

Secrets are kept in the OS keychain and never written to profiles.toml.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.mlsq)")
	rootCmd.PersistentFlags().BoolVar(&noKeyring, "no-keyring", false, "keep secrets in memory instead of the OS keychain")
}

// Execute runs the root command. build is called once the global flags
// are parsed; it may be nil when services were injected directly.
func Execute(ctx context.Context, build Builder) error {
	buildServices = build
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	version = v
}

func setupServices(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if buildServices == nil || adapterService != nil {
		return nil
	}
	svc, err := buildServices(Options{ConfigDir: configDir, NoKeyring: noKeyring})
	if err != nil {
		return err
	}
	adapterService = svc.Adapter
	profileService = svc.Profiles
	watchProfiles = svc.WatchProfiles
	return nil
}

func requireServices() error {
	if adapterService == nil || profileService == nil {
		return errNotConfigured
	}
	return nil
}
