package memory

import (
	"testing"

	indexedtree "github.com/marlinprotocol/indexed-merkle-store"
	backendtest "github.com/marlinprotocol/indexed-merkle-store/db/test"
)

type builder struct{}

func (builder) NewBackend(t *testing.T) indexedtree.Backend {
	return New()
}

func TestBackend(t *testing.T) {
	backendtest.TestAll(t, builder{})
}
