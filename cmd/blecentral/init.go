package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"blecentral/internal/infra/config"
)

// runInit writes a starter config with a freshly generated gateway token.
func runInit(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg := starterConfig(flags.Backend)
	if err := config.Save(cfg, flags.ConfigPath, false); err != nil {
		return err
	}
	fmt.Printf("Config written to %s\n", flags.ConfigPath)
	fmt.Printf("Gateway token: %s\n", cfg.Gateway.Tokens[0].Token)
	return nil
}

func starterConfig(backend string) *config.Config {
	cfg := config.Defaults()
	if backend != "" {
		cfg.Driver.Backend = backend
	}
	cfg.Gateway.Tokens = []config.TokenConfig{{
		Token: strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:  "default",
	}}
	return cfg
}
