package engine

import (
	"testing"
)

// OpenTest opens an in-memory engine that is closed when the test ends.
func OpenTest(t *testing.T) *Engine {
	t.Helper()

	e, err := Open("")
	if err != nil {
		t.Fatalf("open test engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}
