//go:build debug

package main

import "go.uber.org/zap"

// newLogger returns a development logger at debug level when built with
// -tags debug, whatever the configured level.
func newLogger(string) (*zap.Logger, error) {
	return zap.NewDevelopment()
}
