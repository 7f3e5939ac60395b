// Command mlsq is a RETS and RESO Web API client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/mlsq/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mlsq/internal/adapters/driven/secret"
	"github.com/custodia-labs/mlsq/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mlsq/internal/adapters/driving/cli"
	"github.com/custodia-labs/mlsq/internal/connectors"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/core/services"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx, build); err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		stop()
		os.Exit(1)
	}
}

// build wires the driven adapters into the core services.
func build(opts cli.Options) (*cli.Services, error) {
	config, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	profiles, err := file.NewProfileStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening profiles: %w", err)
	}

	var store driven.SecretStore
	if opts.NoKeyring {
		store = memory.NewSecretStore()
	} else {
		keychain, err := secret.OpenKeychain()
		if err != nil {
			return nil, fmt.Errorf("opening keychain: %w", err)
		}
		store = keychain
	}
	secrets := secret.NewEnvOverlay(store)

	factory := connectors.NewFactory(services.NewDefaultParserRegistry(), connectors.FactoryOptions{
		SampleSize: config.GetInt(services.KeySampleSize),
	})

	return &cli.Services{
		Adapter:       services.NewAdapterService(factory),
		Profiles:      services.NewProfileService(profiles, secrets, config),
		WatchProfiles: profiles.Watch,
	}, nil
}
