package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/app"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

type commandContext struct {
	verbose *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	log        *zap.Logger

	app *app.App
}

func newCommandContext(verbose *bool) *commandContext {
	return &commandContext{verbose: verbose}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *zap.Logger {
	c.loggerOnce.Do(func() {
		if c.verbose == nil || !*c.verbose {
			c.log = zap.NewNop()
			return
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			c.log = zap.NewNop()
			return
		}
		c.log = l
	})
	return c.log
}

// ensureApp opens the database and lock arena once per invocation
func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, c.logger())
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}

func parseMeetingID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid meeting id %q: %w", arg, err)
	}
	return id, nil
}
