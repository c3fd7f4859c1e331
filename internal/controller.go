package internal

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/client"
	"github.com/dcrodman/otgate/internal/core/data"
	"github.com/dcrodman/otgate/internal/core/debug"
	"github.com/dcrodman/otgate/internal/dispatcher"
	"github.com/dcrodman/otgate/internal/encryption"
	"github.com/dcrodman/otgate/internal/game"
	"github.com/dcrodman/otgate/internal/login"
	"github.com/dcrodman/otgate/internal/store"
)

// Controller is the main entrypoint for otgate. It's responsible for initializing
// any shared resources (such as database and logging), defining the servers, and
// launching everything.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	wg     sync.WaitGroup

	db         *gorm.DB
	store      *store.Store
	key        *encryption.RSAKey
	state      core.StateHolder
	sessions   *client.List
	dispatcher *dispatcher.Dispatcher
	servers    []*frontend
}

func (c *Controller) Start(ctx context.Context) {
	var err error
	// Set up the logger, which will be used by all sub-servers.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		logrus.Errorf("error initializing logger: %v", err)
		return
	}
	defer c.Shutdown()

	// Anything that fails below stops whatever was already started.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.state.Set(core.GameStateStartup)

	// Start any debug utilities if we're configured to do so.
	if c.Config.Debugging.Enabled {
		debug.StartUtilities(c.logger,
			c.Config.Debugging.PprofPort,
			c.Config.Debugging.MetricsPort,
		)
	}

	c.db, err = data.Initialize(c.Config)
	if err != nil {
		c.logger.Errorf("error initializing database: %v", err)
		return
	}
	c.store = store.New(c.db)

	keyFile := c.Config.QualifiedPath(c.Config.RSA.PrivateKeyFile)
	c.key, err = encryption.LoadRSAKey(keyFile)
	if err != nil {
		c.logger.Errorf("error loading rsa key from %s: %v", keyFile, err)
		return
	}

	// Every server shares one dispatcher so storage and world state are only
	// ever touched from a single goroutine.
	c.sessions = client.NewList()
	c.dispatcher = dispatcher.New(c.logger, c.sessions)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.dispatcher.Run(ctx)
	}()

	// Configure and run all of our servers.
	c.declareServers()
	c.run(ctx)
}

// Set up all of the servers we want to run.
func (c *Controller) declareServers() {
	c.servers = []*frontend{
		{
			Address: c.Config.LoginAddress(),
			Backend: &login.Server{
				Name:       "LOGIN",
				Config:     c.Config,
				Logger:     c.logger,
				Oracle:     c.store,
				Dispatcher: c.dispatcher,
				State:      &c.state,
				Key:        c.key,
			},
		},
		{
			Address: c.Config.GameAddress(),
			Backend: &game.Server{
				Name:       "GAME",
				Config:     c.Config,
				Logger:     c.logger,
				Players:    c.store,
				Dispatcher: c.dispatcher,
				State:      &c.state,
				Key:        c.key,
			},
		},
	}
}

func (c *Controller) run(ctx context.Context) {
	// Start all of our servers. Failure to initialize one of the registered servers is considered terminal.
	for _, server := range c.servers {
		server.Config = c.Config
		server.Logger = c.logger
		server.Sessions = c.sessions

		if err := server.Start(ctx, &c.wg); err != nil {
			c.logger.Errorf("error starting %s server: %v", server.Backend.Identifier(), err)
			return
		}
	}

	c.state.Set(core.GameStateNormal)
	c.logger.Infof("%s is online", c.Config.ServerName)

	<-ctx.Done()
	c.state.Set(core.GameStateShutdown)
	c.wg.Wait()
}

// Shutdown waits for every server to stop before closing the database.
func (c *Controller) Shutdown() {
	c.state.Set(core.GameStateShutdown)
	c.wg.Wait()

	if c.db != nil {
		if err := data.Shutdown(c.db); err != nil {
			c.logger.Errorf("error closing database: %v", err)
		}
	}
	c.logger.Infof("%s has shut down", c.Config.ServerName)
}
