package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ConfigFlag string

func main() {
	rootCmd := &cobra.Command{
		Use:   "otgate",
		Short: "Login gateway and game server for tile-based MMO clients",
		Run:   ServerCommand,
	}
	rootCmd.PersistentFlags().StringVarP(&ConfigFlag, "config", "c", "./", "Path to the server config/data directory")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountDeleteCmd)
	accountAddCmd.Flags().IntVar(&PremiumDaysFlag, "premium-days", 0, "Premium days granted to the account")
	accountAddCmd.Flags().StringVar(&SecretFlag, "secret", "", "Base32 authenticator secret enabling the second factor")

	worldCmd.AddCommand(worldAddCmd)
	worldAddCmd.Flags().BoolVar(&PreviewerFlag, "previewer", false, "Mark the world as a preview world")

	characterCmd.AddCommand(characterAddCmd)

	banCmd.AddCommand(banAddCmd)
	banAddCmd.Flags().StringVar(&ReasonFlag, "reason", "", "Reason shown to the banned client")
	banAddCmd.Flags().StringVar(&BannedByFlag, "by", "Server", "Name of the banning gamemaster")

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(worldCmd)
	rootCmd.AddCommand(characterCmd)
	rootCmd.AddCommand(banCmd)
	rootCmd.AddCommand(keygenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
