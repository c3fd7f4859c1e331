package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dcrodman/otgate/internal/core/data"
)

var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "World list management tools",
}

var worldAddCmd = &cobra.Command{
	Use:   "add [id] [name] [ip] [port]",
	Short: "Adds a world to the list sent after login",
	Run:   WorldAddCommand,
}

var characterCmd = &cobra.Command{
	Use:   "character",
	Short: "Character management tools",
}

var characterAddCmd = &cobra.Command{
	Use:   "add [account] [name] [world id]",
	Short: "Creates a character on an account",
	Run:   CharacterAddCommand,
}

var PreviewerFlag bool

func WorldAddCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	idInput, args := popArg(args, "World ID")
	name, args := popArg(args, "Name")
	ip, args := popArg(args, "IP")
	portInput, _ := popArg(args, "Port")

	id, err := strconv.ParseUint(idInput, 10, 8)
	if err != nil {
		fmt.Println("world id must be between 0 and 255")
		return
	}
	port, err := strconv.ParseUint(portInput, 10, 16)
	if err != nil {
		fmt.Println("invalid port:", portInput)
		return
	}

	world := &data.World{
		ID:        uint8(id),
		Name:      name,
		IP:        ip,
		Port:      uint16(port),
		Previewer: PreviewerFlag,
	}
	if err := data.CreateWorld(db, world); err != nil {
		fmt.Println("error creating world:", err)
		return
	}
	fmt.Printf("added world '%s' (ID: %d) at %s:%d\n", world.Name, world.ID, world.IP, world.Port)
}

func CharacterAddCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	accountName, args := popArg(args, "Account name")
	nameInput, args := popArg(args, "Character name")
	worldInput, _ := popArg(args, "World ID")

	account, err := data.FindAccountByName(db, accountName)
	if err != nil {
		fmt.Println("error finding account:", err)
		return
	} else if account == nil {
		fmt.Printf("account '%s' does not exist\n", accountName)
		return
	}

	worldID, err := strconv.ParseUint(worldInput, 10, 8)
	if err != nil {
		fmt.Println("world id must be between 0 and 255")
		return
	}

	// Character names are shown capitalized in game.
	name := cases.Title(language.English).String(nameInput)
	if name != nameInput {
		fmt.Printf("Warning: using '%s' as the character name\n", name)
	}

	player := &data.Player{
		AccountID: account.ID,
		Name:      name,
		WorldID:   uint8(worldID),
	}
	if err := data.CreatePlayer(db, player); err != nil {
		fmt.Println("error creating character:", err)
		return
	}
	fmt.Printf("created character '%s' (ID: %d) on world %d\n", player.Name, player.ID, player.WorldID)
}
