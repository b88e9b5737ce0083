package cmd

import (
	"context"
	"fmt"
	"strings"
)

const usage = `scriptstudio is the local AI-generation backend for the script editor shell.

Usage:
  scriptstudio serve [flags]
  scriptstudio validate-key [flags]

Commands:
  serve         Start the local HTTP backend
  validate-key  Check a stored provider API key against the provider

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "validate-key":
		return validateKey(ctx, args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
