// The account, world, character and ban commands are small convenience tools
// for manipulating the configured server database.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/auth"
	"github.com/dcrodman/otgate/internal/core/data"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account management tools",
}

var accountAddCmd = &cobra.Command{
	Use:   "add [name] [password]",
	Short: "Registers new accounts in the database",
	Run:   AccountAddCommand,
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Deletes accounts from the database",
	Run:   AccountDeleteCommand,
}

var (
	PremiumDaysFlag int
	SecretFlag      string
)

func initDB() *gorm.DB {
	cfg, err := core.LoadConfig(ConfigFlag)
	if err != nil {
		fmt.Println("error loading config:", err)
		os.Exit(1)
	}
	// Query logging would drown out the command output.
	cfg.Debugging.DatabaseLoggingEnabled = false

	db, err := data.Initialize(cfg)
	if err != nil {
		fmt.Println("error connecting to database:", err)
		os.Exit(1)
	}
	return db
}

func AccountAddCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	name, args := popArg(args, "Account name")
	password, _ := popArg(args, "Password")
	if name == "" || password == "" {
		fmt.Println("account name and password are required")
		return
	}

	existing, err := data.FindAccountByName(db, name)
	if err != nil {
		fmt.Println("error finding account:", err)
		return
	} else if existing != nil {
		fmt.Printf("account '%s' already exists; skipping\n", name)
		return
	}

	account, err := auth.CreateAccount(db, name, password, SecretFlag, PremiumDaysFlag)
	if err != nil {
		fmt.Println("error creating account:", err)
		return
	}
	fmt.Printf("created account for '%s' (ID: %d)\n", account.Name, account.ID)
}

func AccountDeleteCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	name, _ := popArg(args, "Account name")
	if err := auth.DeleteAccount(db, name); err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			fmt.Printf("account '%s' does not exist\n", name)
			return
		}
		fmt.Println("error deleting account:", err)
		return
	}
	fmt.Println("deleted account")
}

func popArg(args []string, prompt string) (string, []string) {
	if len(args) == 1 {
		return args[0], nil
	} else if len(args) > 1 {
		return args[0], args[1:]
	}

	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text(), args
}
