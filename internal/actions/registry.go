package actions

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Action represents a named, invokable unit of work.
// param is the free text that followed the action name in the command.
type Action interface {
	Name() string
	Execute(ctx *Context, param string) (string, error)
}

// HandlerFunc is the function form of an action
type HandlerFunc func(ctx *Context, param string) (string, error)

// SimpleAction is the standard action implementation
type SimpleAction struct {
	name string
	fn   HandlerFunc
}

func (a *SimpleAction) Name() string { return a.name }

func (a *SimpleAction) Execute(ctx *Context, param string) (string, error) {
	return a.fn(ctx, param)
}

// Registry holds all registered actions
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates a new action registry
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
	}
}

// Register adds an action to the registry
func (r *Registry) Register(action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.Name()]; exists {
		return fmt.Errorf("action %q already registered", action.Name())
	}

	r.actions[action.Name()] = action
	return nil
}

// Unregister removes the named action. Returns false when it was not registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[name]; !exists {
		return false
	}
	delete(r.actions, name)
	return true
}

// RegisterSimple adds a simple action (convenience method)
func (r *Registry) RegisterSimple(name string, fn HandlerFunc) error {
	return r.Register(&SimpleAction{name: name, fn: fn})
}

// Get retrieves an action by name
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, exists := r.actions[name]
	return action, exists
}

// Names returns all registered action names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match splits a command such as "turn on the Kitchen" into the action whose
// name is the longest word-wise, case-insensitive prefix of the command, and
// the remaining text ("Kitchen") as its parameter.
func (r *Registry) Match(command string) (Action, string, bool) {
	words := strings.Fields(command)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Action
	bestLen := 0
	for name, action := range r.actions {
		nameWords := strings.Fields(name)
		if len(nameWords) == 0 || len(nameWords) > len(words) || len(nameWords) < bestLen {
			continue
		}
		if !prefixFold(words, nameWords) {
			continue
		}
		if len(nameWords) == bestLen && best != nil && best.Name() < name {
			continue
		}
		best, bestLen = action, len(nameWords)
	}

	if best == nil {
		return nil, "", false
	}
	return best, strings.Join(words[bestLen:], " "), true
}

func prefixFold(words, prefix []string) bool {
	for i, w := range prefix {
		if !strings.EqualFold(words[i], w) {
			return false
		}
	}
	return true
}
