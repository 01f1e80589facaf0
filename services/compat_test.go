package services

// Go 1.21 equivalents of testing.T.Chdir and testing.T.Context (added in Go 1.24).

import (
	"context"
	"testing"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
