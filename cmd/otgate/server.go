package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dcrodman/otgate/internal"
	"github.com/dcrodman/otgate/internal/core"
)

// ServerCommand is the main entrypoint for running otgate. It takes care of
// initializing everything and runs the login and game servers until
// interrupted.
func ServerCommand(cmd *cobra.Command, args []string) {
	config, err := core.LoadConfig(ConfigFlag)
	if err != nil {
		fmt.Println("error loading config:", err)
		os.Exit(1)
	}
	fmt.Println("using configuration directory:", ConfigFlag)

	// Bind the Controller to one top-level server context so that we can shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())

	// Register a SIGTERM handler so that Ctrl-C will shut the servers down gracefully.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go exitHandler(cancel, c)

	// Start up the controller to handle all of the resources and server init.
	controller := &internal.Controller{
		Config: config,
	}
	controller.Start(ctx)
	fmt.Println("shut down")
}

func exitHandler(cancelFn func(), c chan os.Signal) {
	<-c
	fmt.Println("waiting to shut down gracefully...")
	cancelFn()

	<-c
	fmt.Println("hard exiting (killed)")
	os.Exit(1)
}
