// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log re-exports github.com/luxfi/log's Logger interface so
// every subsystem in this module depends on one local name instead of
// importing the upstream package directly.
package log

import (
	upstream "github.com/luxfi/log"
)

// Logger is the logging interface every subsystem in this module
// accepts: vrf.Evaluator, mux.Session, streamrpc.Channel, node.Dispatcher.
type Logger = upstream.Logger

// NewNoOp returns a Logger that discards everything, for tests and for
// callers that don't wire a real logger.
func NewNoOp() Logger {
	return upstream.NewNoOpLogger()
}
