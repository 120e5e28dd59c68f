// Copyright 2025 Certen Protocol
//
// Scheduler package errors

package scheduler

import "errors"

var (
	ErrNilExecutor   = errors.New("executor cannot be nil")
	ErrEmptyBatch    = errors.New("batch cannot be empty")
	ErrBatchTooLarge = errors.New("batch exceeds configured size")
)
