/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"path"
	"sort"
	"sync"
)

// Observer defines an interface for observing evaluation outcomes
type Observer interface {
	// Fail marks the evaluation as failed with the given message
	// Should be called at most once per evaluation
	Fail(string)
	// Log logs a message
	Log(string)
	// Grade assigns a rating (0.0-1.0) with reasoning to the evaluation
	// Should be called at most once per evaluation
	Grade(score float64, reasoning string)
	// Increment is called once for each evaluation
	Increment()
	// Total returns the number of observed evaluations
	Total() int64
}

// Record reports one evaluation. A non-empty failure is reported with Fail
// instead of a grade.
func Record(obs Observer, score float64, reasoning, failure string) {
	if obs == nil {
		return
	}
	obs.Increment()
	if failure != "" {
		obs.Fail(failure)
		return
	}
	obs.Grade(score, reasoning)
}

// NamespacedObserver provides hierarchical namespacing for Observer instances
type NamespacedObserver[T Observer] struct {
	name     string
	inner    T
	factory  func(string) T
	children map[string]*NamespacedObserver[T]
	mu       sync.Mutex
}

// NewNamespacedObserver creates a new root NamespacedObserver with the given factory function
func NewNamespacedObserver[T Observer](factory func(string) T) *NamespacedObserver[T] {
	return &NamespacedObserver[T]{
		name:     "/",
		inner:    factory("/"),
		factory:  factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
}

// Name returns the namespace path of this node.
func (n *NamespacedObserver[T]) Name() string { return n.name }

// Fail delegates to the inner Observer instance
func (n *NamespacedObserver[T]) Fail(msg string) { n.inner.Fail(msg) }

// Log delegates to the inner Observer instance
func (n *NamespacedObserver[T]) Log(msg string) { n.inner.Log(msg) }

// Grade delegates to the inner Observer instance
func (n *NamespacedObserver[T]) Grade(score float64, reasoning string) {
	n.inner.Grade(score, reasoning)
}

// Increment delegates to the inner Observer instance
func (n *NamespacedObserver[T]) Increment() { n.inner.Increment() }

// Total delegates to the inner Observer instance
func (n *NamespacedObserver[T]) Total() int64 { return n.inner.Total() }

// Child returns the child namespace with the given name, creating it if necessary
func (n *NamespacedObserver[T]) Child(name string) *NamespacedObserver[T] {
	n.mu.Lock()
	defer n.mu.Unlock()

	if child, exists := n.children[name]; exists {
		return child
	}

	childPath := path.Join(n.name, name)
	child := &NamespacedObserver[T]{
		name:     childPath,
		inner:    n.factory(childPath),
		factory:  n.factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
	n.children[name] = child
	return child
}

// Walk traverses the observer tree in depth-first order, calling the visitor function
// on the current node first, then on all children in sorted order by name
func (n *NamespacedObserver[T]) Walk(visitor func(string, T)) {
	visitor(n.name, n.inner)

	n.mu.Lock()
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	children := make([]*NamespacedObserver[T], 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		children = append(children, n.children[name])
	}
	n.mu.Unlock()

	for _, child := range children {
		child.Walk(visitor)
	}
}
