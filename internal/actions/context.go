// Package actions provides the action registry and invocation system.
package actions

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ModuleConfig is the configuration the host persists for this module.
// Address is the authenticated bridge base URL, http://<ip>/api/<username>.
type ModuleConfig struct {
	Address string `json:"address" yaml:"address"`
}

// IsZero reports whether the module has not been installed yet
func (c ModuleConfig) IsZero() bool {
	return c.Address == ""
}

// Context is the capability object handed to actions for one invocation
type Context struct {
	ctx          context.Context
	config       ModuleConfig
	invocationID string
	logger       zerolog.Logger
}

// NewContext creates a new action Context
func NewContext(ctx context.Context, config ModuleConfig, invocationID string) *Context {
	return &Context{
		ctx:          ctx,
		config:       config,
		invocationID: invocationID,
		logger:       log.With().Str("invocation", invocationID).Logger(),
	}
}

// Ctx returns the Go context for cancellation
func (c *Context) Ctx() context.Context {
	return c.ctx
}

// Config returns the module config of this invocation
func (c *Context) Config() ModuleConfig {
	return c.config
}

// InvocationID identifies the invocation in logs and the ledger
func (c *Context) InvocationID() string {
	return c.invocationID
}

// Logger returns a logger tagged with the invocation ID
func (c *Context) Logger() *zerolog.Logger {
	return &c.logger
}
