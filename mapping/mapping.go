// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mapping defines reverse rules and resolves the rule of every node
// in a traced model.
//
// Rules are looked up per node: rules bound to a node instance first, then
// the Source (usually a Registry keyed by node type), then a fallback.
package mapping

import (
	"github.com/born-ml/attribution/internal/mapping"
)

type (
	// State is the per-invocation context handed to a reverse function.
	State = mapping.State

	// Info is the construction context handed to factories and objects.
	Info = mapping.Info

	// Func reverses one node invocation.
	Func = mapping.Func

	// Factory builds the Func of a node.
	Factory = mapping.Factory

	// Mapping is a stateful reverse rule bound to one node.
	Mapping = mapping.Mapping

	// Object builds the Mapping of a node.
	Object = mapping.Object

	// Rule is one of Func, Factory or Object.
	Rule = mapping.Rule

	// Source looks up the rule for a node.
	Source = mapping.Source

	// Registry maps node type tags to rules.
	Registry = mapping.Registry

	// SelectorFunc adapts a function to Source.
	SelectorFunc = mapping.SelectorFunc

	// Resolver combines bound rules, a Source and a fallback.
	Resolver = mapping.Resolver

	// Resolved holds the reverse functions of one run.
	Resolved = mapping.Resolved

	// MissingError reports a node without a rule.
	MissingError = mapping.MissingError
)

// Errors returned by rules and the resolver.
var (
	ErrMissingMapping   = mapping.ErrMissingMapping
	ErrUnsupportedShape = mapping.ErrUnsupportedShape
)

// Identity passes reversed outputs straight through to the inputs.
var Identity = mapping.Identity

// As converts a Rule, a Mapping or a function of a supported shape to a Rule.
func As(v any) (Rule, error) {
	return mapping.As(v)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return mapping.NewRegistry()
}

// NewResolver creates a resolver over source with fallback for everything
// else. Both may be nil.
func NewResolver(source Source, fallback Rule) *Resolver {
	return mapping.NewResolver(source, fallback)
}
