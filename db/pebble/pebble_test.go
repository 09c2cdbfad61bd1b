package pebble

import (
	"testing"

	indexedtree "github.com/marlinprotocol/indexed-merkle-store"
	backendtest "github.com/marlinprotocol/indexed-merkle-store/db/test"
)

type builder struct{}

func (builder) NewBackend(t *testing.T) indexedtree.Backend {
	dir := t.TempDir()
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend(t *testing.T) {
	backendtest.TestAll(t, builder{})
}
