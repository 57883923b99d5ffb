/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package agenttrace records one model call as an OpenTelemetry span plus a
// structured log line, tagged with the evaluation context (session, kind,
// question) carried on the context.Context.
package agenttrace
