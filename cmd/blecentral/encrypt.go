package main

import (
	"errors"
	"fmt"
	"os"

	"blecentral/internal/infra/config"
)

// runEncrypt prints an "enc:" value for a gateway token, to paste into the
// config file. Load decrypts it with the same $BLECENTRAL_CONFIG_KEY.
func runEncrypt(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(flags.Rest) != 1 {
		return errors.New("usage: blecentral encrypt <token>")
	}
	passphrase := os.Getenv("BLECENTRAL_CONFIG_KEY")
	if passphrase == "" {
		return errors.New("BLECENTRAL_CONFIG_KEY is not set")
	}
	sealed, err := config.EncryptValue(flags.Rest[0], passphrase)
	if err != nil {
		return err
	}
	fmt.Println("enc:" + sealed)
	return nil
}
