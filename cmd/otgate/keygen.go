package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/encryption"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generates the RSA key used for the key exchange",
	Long: "Generates a 1024-bit RSA key and writes it to the configured private key file. " +
		"Clients must be patched with the matching public modulus.",
	Run: KeygenCommand,
}

func KeygenCommand(cmd *cobra.Command, args []string) {
	cfg, err := core.LoadConfig(ConfigFlag)
	if err != nil {
		fmt.Println("error loading config:", err)
		os.Exit(1)
	}
	path := cfg.QualifiedPath(cfg.RSA.PrivateKeyFile)

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("%s already exists; refusing to overwrite it\n", path)
		return
	}

	key, err := encryption.GenerateRSAKey()
	if err != nil {
		fmt.Println("error generating key:", err)
		return
	}
	if err := os.WriteFile(path, key.MarshalPEM(), 0600); err != nil {
		fmt.Println("error writing key:", err)
		return
	}
	fmt.Printf("wrote %s\nmodulus: %s\n", path, key.Modulus())
}
