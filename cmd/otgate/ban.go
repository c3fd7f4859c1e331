package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dcrodman/otgate/internal/core/data"
)

var banCmd = &cobra.Command{
	Use:   "ban",
	Short: "IP ban management tools",
}

var banAddCmd = &cobra.Command{
	Use:   "add [ip] [days]",
	Short: "Bans an IP address from logging in",
	Run:   BanAddCommand,
}

var (
	ReasonFlag   string
	BannedByFlag string
)

func BanAddCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	ip, args := popArg(args, "IP")
	daysInput, _ := popArg(args, "Days")

	days, err := strconv.Atoi(daysInput)
	if err != nil || days <= 0 {
		fmt.Println("days must be a positive number")
		return
	}

	now := time.Now()
	ban := &data.IPBan{
		IP:        ip,
		Reason:    ReasonFlag,
		BannedBy:  BannedByFlag,
		BannedAt:  now,
		ExpiresAt: now.AddDate(0, 0, days),
	}
	if err := data.CreateIPBan(db, ban); err != nil {
		fmt.Println("error creating ban:", err)
		return
	}
	fmt.Printf("banned %s until %s\n", ban.IP, ban.ExpiresAt.Format("02 Jan 2006"))
}
