package domain

import (
	"fmt"
)

// SafeRun executes fn with panic recovery. A panic is logged and returned as an error
// instead of crashing the worker that called it.
func SafeRun(fn func() error, logger Logger) error {
	_, err := SafeCall(func() (struct{}, error) {
		return struct{}{}, fn()
	}, logger)
	return err
}

// SafeCall is SafeRun for functions that also produce a value.
func SafeCall[T any](fn func() (T, error), logger Logger) (val T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			val = zero
			err = fmt.Errorf("panic: %v", rec)
			logger.Error("panic: %v", rec)
		}
	}()
	return fn()
}
