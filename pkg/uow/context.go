// SPDX-License-Identifier: Apache-2.0

// Package uow implements the Unit-of-Work persistence engine: an identity
// map, change detector, lifecycle state machine and dependency-ordered
// flush pipeline built around pkg/metadata and pkg/entity.
package uow

import (
	"context"

	"github.com/ormkit/ormkit/pkg/db"
	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/identitymap"
	"github.com/ormkit/ormkit/pkg/metadata"
	"github.com/ormkit/ormkit/pkg/ormlog"
)

// Context is the public persistence context: the object application code
// calls Persist/Remove/Flush/Find against.
type Context struct {
	metaRegistry *metadata.Registry
	identityMap  *identitymap.Map
	db           db.DB

	entityRegistry  *EntityRegistry
	stateManager    *StateManager
	relationManager *RelationManager
	dispatcher      *Dispatcher
	detector        *Detector
	logger          ormlog.Logger

	insertionProcessor *InsertionProcessor
	updateProcessor    *UpdateProcessor
	deletionProcessor  *DeletionProcessor
	joinTableProcessor *JoinTableProcessor

	flushDepth int
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithLogger sets the Logger a Context routes its non-fatal warnings
// through (zero-row updates, flush rollback notices). Defaults to a
// no-op Logger.
func WithLogger(logger ormlog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Context wired against the given metadata registry and
// database connection.
func New(metaRegistry *metadata.Registry, database db.DB, opts ...Option) *Context {
	ctx := &Context{
		metaRegistry:   metaRegistry,
		identityMap:    identitymap.New(),
		db:             database,
		entityRegistry: newEntityRegistry(),
		stateManager:   newStateManager(),
		dispatcher:     NewDispatcher(),
		logger:         ormlog.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	ctx.relationManager = NewRelationManager(ctx)
	ctx.insertionProcessor = NewInsertionProcessor(ctx)
	ctx.updateProcessor = NewUpdateProcessor(ctx)
	ctx.updateProcessor.SetLogger(ctx.logger)
	ctx.deletionProcessor = NewDeletionProcessor()
	ctx.joinTableProcessor = NewJoinTableProcessor(ctx)
	ctx.detector = NewDetector(ctx.resolveTargetKey)
	return ctx
}

// MetadataOf implements Resolver by looking instance's concrete type up in
// the metadata registry.
func (c *Context) MetadataOf(instance any) (*metadata.EntityMetadata, error) {
	return c.metaRegistry.Get(instance)
}

// AccessorOf implements Resolver.
func (c *Context) AccessorOf(instance any, meta *metadata.EntityMetadata) (entity.Accessor, error) {
	return entity.ForInstance(instance, meta)
}

func (c *Context) resolveTargetKey(target any) (string, any, bool, error) {
	meta, err := c.MetadataOf(target)
	if err != nil {
		return "", nil, false, err
	}
	acc, err := c.AccessorOf(target, meta)
	if err != nil {
		return "", nil, false, err
	}
	pk, hasPK := acc.PrimaryKeyValue()
	return meta.ClassName, pk, hasPK, nil
}

// On registers handler to fire on every dispatch of name.
func (c *Context) On(name EventName, handler EventHandler) {
	c.dispatcher.On(name, handler)
}

// Persist begins tracking instance (if new) or queues it for insertion, per
// the persist(e) transition.
func (c *Context) Persist(instance any) error {
	meta, err := c.MetadataOf(instance)
	if err != nil {
		return err
	}
	acc, err := c.AccessorOf(instance, meta)
	if err != nil {
		return err
	}

	st, tracked := c.entityRegistry.StateOf(instance)
	if !tracked {
		st = c.entityRegistry.Track(instance, meta, acc, New)
	}
	return c.stateManager.Persist(instance, st)
}

// Remove queues instance for deletion per the remove(e) transition.
func (c *Context) Remove(instance any) error {
	st, tracked := c.entityRegistry.StateOf(instance)
	if !tracked {
		return DetachedEntityError{Class: classNameOrUnknown(c, instance)}
	}
	return c.stateManager.Remove(instance, st)
}

// Detach stops tracking instance and clears it from both scheduled queues.
func (c *Context) Detach(instance any) {
	st, tracked := c.entityRegistry.StateOf(instance)
	if !tracked {
		return
	}
	c.stateManager.Detach(instance, st)
	c.entityRegistry.Forget(instance)
}

// Clear detaches every tracked entity and forgets all identity-map state.
func (c *Context) Clear() {
	c.entityRegistry.Clear()
	c.stateManager = newStateManager()
	c.identityMap.Clear()
	c.dispatcher.Reset()
}

// Contains reports whether instance is currently tracked (any lifecycle
// state other than DETACHED/untracked).
func (c *Context) Contains(instance any) bool {
	st, tracked := c.entityRegistry.StateOf(instance)
	return tracked && st.Lifecycle != Detached
}

// Flush runs the flush algorithm: compute a dependency-safe order over
// every scheduled insertion/update/deletion and execute it inside one
// retryable transaction.
func (c *Context) Flush(ctx context.Context) error {
	orch := &flushOrchestrator{ctx: c}
	if err := orch.run(ctx); err != nil {
		c.logger.Warn("flush rolled back", "error", err)
		return err
	}
	return nil
}

// Track registers instance as MANAGED without scheduling it for insertion —
// the path a Repository uses after hydrating a row read back from the
// database.
func (c *Context) Track(instance any) error {
	meta, err := c.MetadataOf(instance)
	if err != nil {
		return err
	}
	acc, err := c.AccessorOf(instance, meta)
	if err != nil {
		return err
	}
	c.entityRegistry.Track(instance, meta, acc, Managed)
	if pk, ok := acc.PrimaryKeyValue(); ok {
		c.identityMap.Add(meta.ClassName, pk, instance)
	}
	return c.dispatcher.Dispatch(PostLoad, instance, nil, c.flushDepth)
}

// Identity returns the already-tracked instance of class with the given
// primary key, if the identity map has one.
func (c *Context) Identity(className string, pk any) (any, bool) {
	return c.identityMap.Get(className, pk)
}

func classNameOrUnknown(c *Context, instance any) string {
	if meta, err := c.MetadataOf(instance); err == nil {
		return meta.ClassName
	}
	return "unknown"
}
