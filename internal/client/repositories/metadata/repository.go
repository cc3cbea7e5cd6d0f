// Package metadata stores small named values in the client's local
// database. The client keeps its session there.
package metadata

import "context"

// Repository is a key/value view of the metadata table. Get returns
// common.ErrKeyNotFound for a missing key; Delete of a missing key is not an
// error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
