package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueaction/internal/ledger"
	"github.com/dokzlo13/hueaction/internal/metrics"
)

var (
	// ErrActionNotFound is returned when invoking an unregistered action name
	ErrActionNotFound = errors.New("action not found")

	// ErrNoMatch is returned when no action name prefixes a command
	ErrNoMatch = errors.New("no action matches command")
)

// Result describes one completed invocation
type Result struct {
	InvocationID string `json:"invocation_id"`
	Action       string `json:"action"`
	Param        string `json:"param"`
	Response     string `json:"response"`
}

// Invoker executes actions and records every run
type Invoker struct {
	registry *Registry
	ledger   *ledger.Ledger
}

// NewInvoker creates a new action invoker. The ledger is optional.
func NewInvoker(registry *Registry, l *ledger.Ledger) *Invoker {
	return &Invoker{
		registry: registry,
		ledger:   l,
	}
}

// HasAction checks if an action is registered
func (i *Invoker) HasAction(actionName string) bool {
	_, exists := i.registry.Get(actionName)
	return exists
}

// Registry returns the registry the invoker resolves names against
func (i *Invoker) Registry() *Registry {
	return i.registry
}

// Invoke executes the named action with param
func (i *Invoker) Invoke(ctx context.Context, actionName, param string, cfg ModuleConfig) (*Result, error) {
	return i.invoke(ctx, actionName, param, cfg, "")
}

// InvokeWithSource is like Invoke but records where the invocation came from
func (i *Invoker) InvokeWithSource(ctx context.Context, actionName, param string, cfg ModuleConfig, source string) (*Result, error) {
	return i.invoke(ctx, actionName, param, cfg, source)
}

// Run resolves a free-text command against the registry and executes it
func (i *Invoker) Run(ctx context.Context, command string, cfg ModuleConfig, source string) (*Result, error) {
	action, param, ok := i.registry.Match(command)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, command)
	}
	return i.invoke(ctx, action.Name(), param, cfg, source)
}

func (i *Invoker) invoke(ctx context.Context, actionName, param string, cfg ModuleConfig, source string) (*Result, error) {
	action, exists := i.registry.Get(actionName)
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrActionNotFound, actionName)
	}

	invocationID := uuid.NewString()
	actx := NewContext(ctx, cfg, invocationID)

	logEvent := actx.Logger().Debug().Str("action", actionName).Str("param", param)
	if source != "" {
		logEvent = logEvent.Str("source", source)
	}
	logEvent.Msg("Executing action")

	start := time.Now()
	response, err := action.Execute(actx, param)
	metrics.ActionDuration.WithLabelValues(actionName).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ActionInvocations.WithLabelValues(actionName, "error").Inc()
		i.appendLedger(ledger.EventActionFailed, invocationID, source, map[string]any{
			"action": actionName,
			"param":  param,
			"error":  err.Error(),
		})
		return nil, err
	}

	metrics.ActionInvocations.WithLabelValues(actionName, "ok").Inc()
	i.appendLedger(ledger.EventActionCompleted, invocationID, source, map[string]any{
		"action":   actionName,
		"param":    param,
		"response": response,
	})

	actx.Logger().Info().
		Str("action", actionName).
		Dur("took", time.Since(start)).
		Msg(response)

	return &Result{
		InvocationID: invocationID,
		Action:       actionName,
		Param:        param,
		Response:     response,
	}, nil
}

func (i *Invoker) appendLedger(eventType ledger.EventType, invocationID, source string, payload map[string]any) {
	if i.ledger == nil {
		return
	}
	if err := i.ledger.Append(eventType, invocationID, source, payload); err != nil {
		log.Error().Err(err).Str("event", string(eventType)).Msg("Failed to append to ledger")
	}
}
