package store

import (
	goerrors "github.com/goliatone/go-errors"
)

// CodecError wraps a key or value that could not be encoded or decoded by a backend.
func CodecError(err error, keyspace string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "codec failure").
		WithTextCode("CODEC_FAILURE").
		WithMetadata(map[string]any{"keyspace": keyspace})
}

// BackendError wraps a failure reported by the underlying store.
func BackendError(err error, keyspace, operation string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "store "+operation+" failed").
		WithTextCode("STORE_FAILURE").
		WithMetadata(map[string]any{"keyspace": keyspace, "operation": operation})
}
