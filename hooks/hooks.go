// Package hooks provides a flexible hook registration and execution system with priority support.
package hooks

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/presbrey/flex/logging"
)

// Hook defines a generic hook function that returns an error if it fails
type Hook[T any] func(context T) error

// HookInfo stores information about a registered hook including its priority
type HookInfo[T any] struct {
	Name     string  // Name of the hook function
	Hook     Hook[T] // The hook function itself
	Priority int64   // Priority value (lower values run first, like Unix nice)
}

// Registry manages hook registration and execution for a specific context type
type Registry[T any] struct {
	mu    sync.RWMutex
	hooks []HookInfo[T]
}

// NewRegistry creates a new hook registry for the given context type
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		hooks: make([]HookInfo[T], 0),
	}
}

// Register adds a new hook to the registry with default priority (0)
func (r *Registry[T]) Register(hook Hook[T]) {
	r.RegisterWithPriority(hook, 0)
}

// RegisterWithPriority adds a new hook to the registry with the specified priority
// Hooks with lower priority values run first (like Unix nice)
func (r *Registry[T]) RegisterWithPriority(hook Hook[T], priority int64) {
	name := runtime.FuncForPC(reflect.ValueOf(hook).Pointer()).Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, HookInfo[T]{
		Name:     name,
		Hook:     hook,
		Priority: priority,
	})
	// stable keeps registration order within a priority
	sort.SliceStable(r.hooks, func(i, j int) bool {
		return r.hooks[i].Priority < r.hooks[j].Priority
	})
}

// snapshot copies the hooks so none run under the lock
func (r *Registry[T]) snapshot() []HookInfo[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hooks := make([]HookInfo[T], len(r.hooks))
	copy(hooks, r.hooks)
	return hooks
}

// call runs one hook, converting a panic into an error
func call[T any](info HookInfo[T], context T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().Str("hook", info.Name).Interface("panic", rec).Msg("hook panicked")
			err = fmt.Errorf("panic in hook %s: %v", info.Name, rec)
		}
	}()
	return info.Hook(context)
}

// RunAll executes every registered hook in priority order, lower values
// first. It returns a map of hook names to errors for any hooks that failed.
func (r *Registry[T]) RunAll(context T) map[string]error {
	var hookErrors map[string]error

	for _, info := range r.snapshot() {
		if err := call(info, context); err != nil {
			if hookErrors == nil {
				hookErrors = make(map[string]error)
			}
			hookErrors[info.Name] = err
			logging.Debug().Str("hook", info.Name).Err(err).Msg("hook failed")
		}
	}

	return hookErrors
}

// Run executes hooks in priority order and stops at the first error, which
// it returns
func (r *Registry[T]) Run(context T) error {
	for _, info := range r.snapshot() {
		if err := call(info, context); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes all hooks from the registry
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = make([]HookInfo[T], 0)
}

// Count returns the number of registered hooks
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks)
}
