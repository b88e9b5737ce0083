package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"scriptstudio/internal/catalog"
	"scriptstudio/internal/credential"
	"scriptstudio/internal/orchestrator"
	"scriptstudio/internal/provider"
	providerfactory "scriptstudio/internal/provider/factory"
)

const validateKeyUsage = `Usage:
  scriptstudio validate-key --provider <id> [--config <path>]

Flags:
  --provider string  Provider identifier (anthropic, google)
  --config   string  Path to YAML configuration file (optional)`

const validateKeyTimeout = 30 * time.Second

func validateKey(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate-key", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, validateKeyUsage)
	}

	var cfgPath string
	var providerID string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&providerID, "provider", "", "provider identifier")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse validate-key flags: %w", err)
	}

	if providerID == "" {
		return errors.New("validate-key requires --provider <id>")
	}
	if !catalog.KnownProvider(providerID) {
		return fmt.Errorf("unknown provider %q", providerID)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	creds, err := credential.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return err
	}

	serviceName, err := catalog.CredentialKey(providerID)
	if err != nil {
		return err
	}
	secret, okStored, err := creds.Get(serviceName)
	if err != nil {
		return err
	}
	if !okStored {
		return fmt.Errorf("no %s key stored; save one through the editor settings first", providerID)
	}

	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProviders(cfg, registry); err != nil {
		return err
	}
	orch := orchestrator.New(registry, creds, cfg)

	probeCtx, cancel := context.WithTimeout(ctx, validateKeyTimeout)
	defer cancel()

	if err := orch.ValidateCredential(probeCtx, providerID, secret); err != nil {
		return fmt.Errorf("%s key rejected: %w", providerID, err)
	}

	fmt.Printf("%s key accepted\n", providerID)
	return nil
}
