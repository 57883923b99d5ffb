/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package executor defines the provider-neutral contract for a single
// structured model call: bind a request into a prompt, call the model once,
// decode the JSON reply into a response type.
package executor

import (
	"context"

	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
)

// Interface runs one model call for a request and decodes the reply.
type Interface[Request promptbuilder.Bindable, Response any] interface {
	Execute(ctx context.Context, request Request) (Response, error)
}

// Func adapts a function to Interface.
type Func[Request promptbuilder.Bindable, Response any] func(ctx context.Context, request Request) (Response, error)

// Execute implements Interface.
func (f Func[Request, Response]) Execute(ctx context.Context, request Request) (Response, error) {
	return f(ctx, request)
}
