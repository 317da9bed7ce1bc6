package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind is the kind of a registered action.
type Kind string

// Action kinds.
const (
	KindIndexer   Kind = "indexer"
	KindRetriever Kind = "retriever"
	KindTool      Kind = "tool"
)

var (
	// ErrActionNotFound is returned by Lookup and Run for unknown keys.
	ErrActionNotFound = errors.New("registry: action not found")

	// ErrDuplicateAction is returned when a key is registered twice.
	ErrDuplicateAction = errors.New("registry: action already registered")

	// ErrInvalidAction is returned for actions without a name, kind or
	// run function.
	ErrInvalidAction = errors.New("registry: invalid action")
)

// Key identifies an action.
type Key struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.Name
}

// RunFunc executes an action on a JSON input.
type RunFunc func(ctx context.Context, input json.RawMessage) (any, error)

// Action is a named, runnable component with its resolved configuration.
type Action struct {
	Key         Key    `json:"key"`
	Description string `json:"description,omitempty"`
	// Config is the configuration the action was built from.
	Config any     `json:"config,omitempty"`
	Run    RunFunc `json:"-"`
}

// Registry maps keys to actions. It is filled once at startup and read
// concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	actions map[Key]Action
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{actions: make(map[Key]Action)}
}

// Register adds an action. Empty names, unknown kinds, a missing Run and
// duplicate keys are rejected.
func (r *Registry) Register(action Action) error {
	switch {
	case strings.TrimSpace(action.Key.Name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidAction)
	case action.Key.Kind != KindIndexer && action.Key.Kind != KindRetriever && action.Key.Kind != KindTool:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, action.Key.Kind)
	case action.Run == nil:
		return fmt.Errorf("%w: %s has no run function", ErrInvalidAction, action.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, action.Key)
	}
	r.actions[action.Key] = action
	return nil
}

// Lookup returns the action registered under exactly key.
func (r *Registry) Lookup(key Key) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[key]
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrActionNotFound, key)
	}
	return action, nil
}

// Run looks up key and runs the action with input.
func (r *Registry) Run(ctx context.Context, key Key, input json.RawMessage) (any, error) {
	action, err := r.Lookup(key)
	if err != nil {
		return nil, err
	}
	return action.Run(ctx, input)
}

// List returns all actions sorted by kind, then name.
func (r *Registry) List() []Action {
	r.mu.RLock()
	out := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Kind != out[j].Key.Kind {
			return out[i].Key.Kind < out[j].Key.Kind
		}
		return out[i].Key.Name < out[j].Key.Name
	})
	return out
}

// Typed adapts a function on a concrete request type to a RunFunc. The
// input is decoded into In; an empty input decodes to the zero value.
func Typed[In, Out any](fn func(ctx context.Context, in In) (Out, error)) RunFunc {
	return func(ctx context.Context, input json.RawMessage) (any, error) {
		var in In
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("registry: invalid input: %w", err)
			}
		}
		return fn(ctx, in)
	}
}
