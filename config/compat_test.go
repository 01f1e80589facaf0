package config

// Go 1.21 equivalents of testing.T.Chdir and testing.T.Context (added in Go 1.24).

import (
	"os"
	"testing"
)

func testChdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
