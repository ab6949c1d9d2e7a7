// Package target resolves the polymorphic object a comment thread is
// attached to. Type names arrive from clients and are only ever matched
// against the explicitly registered set of sources.
package target

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrInvalidTarget is returned for malformed or unrecognized
	// target descriptors. Always a client error.
	ErrInvalidTarget = errors.New("invalid target descriptor")
	// ErrNotFound is returned when the descriptor is well-formed but
	// no such entity exists.
	ErrNotFound = errors.New("target not found")
	// ErrAccessDenied is returned when the caller may not read the
	// resolved entity.
	ErrAccessDenied = errors.New("target access denied")
)

// Target is the minimal view of a comment-bearing entity. The rest of
// the entity stays owned by the surrounding application.
type Target interface {
	TypeName() string
	ID() int64
	// CanRead reports whether the given user (0 = anonymous) may see
	// the entity and therefore its comment thread.
	CanRead(userID int64) bool
	// SpaceID returns the grouping space the entity belongs to, if any.
	SpaceID() (int64, bool)
}

// Source loads entities of a single registered type.
type Source interface {
	// Load returns the entity or ErrNotFound.
	Load(ctx context.Context, id int64) (Target, error)
	// Touch bumps the entity's updated_at, marking thread activity.
	Touch(ctx context.Context, id int64) error
}

// Registry is the closed allow-list of commentable types. Sources are
// registered at wiring time; lookups never instantiate anything from
// client input.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

func (r *Registry) Register(typeName string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[typeName] = src
}

func (r *Registry) Source(typeName string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[typeName]
	return src, ok
}

type memoKey struct {
	typeName string
	id       int64
}

// Resolver resolves and authorizes targets for the lifetime of one
// request. Repeated resolution of the same descriptor hits neither the
// source nor the permission check again, so it must not outlive the
// request it was created for.
type Resolver struct {
	reg  *Registry
	memo map[memoKey]Target
}

func NewResolver(reg *Registry) *Resolver {
	return &Resolver{reg: reg, memo: make(map[memoKey]Target)}
}

// Resolve validates the untrusted (typeName, id) pair, loads the entity
// and checks the caller's read capability before returning it.
func (r *Resolver) Resolve(ctx context.Context, typeName string, id, userID int64) (Target, error) {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" || id <= 0 {
		return nil, ErrInvalidTarget
	}

	if t, ok := r.memo[memoKey{typeName, id}]; ok {
		return t, nil
	}

	src, ok := r.reg.Source(typeName)
	if !ok {
		return nil, ErrInvalidTarget
	}

	t, err := src.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.CanRead(userID) {
		return nil, ErrAccessDenied
	}

	r.memo[memoKey{typeName, id}] = t
	return t, nil
}

// Touch bumps updated_at on an already-resolved target.
func (r *Resolver) Touch(ctx context.Context, t Target) error {
	src, ok := r.reg.Source(t.TypeName())
	if !ok {
		return ErrInvalidTarget
	}
	return src.Touch(ctx, t.ID())
}
