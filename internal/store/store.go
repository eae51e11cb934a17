// Package store abstracts the remote key-value tree the multiplayer
// bridge synchronizes through. Paths are slash-separated strings like
// "sessions/ABC123/gameState"; values are JSON documents. Subscribers
// receive the current value on attach and every write after it.
package store

import "context"

// Store is the remote key-value tree.
type Store interface {
	// Write marshals value as JSON and overwrites the document at path.
	Write(ctx context.Context, path string, value interface{}) error

	// ReadOnce fetches the document at path. The second return is false
	// when no document exists there.
	ReadOnce(ctx context.Context, path string) ([]byte, bool, error)

	// Subscribe registers fn for the document at path. If a document
	// already exists fn fires once with it immediately, then once per
	// subsequent Write. fn runs on the store's delivery goroutine and
	// must not block. The returned func cancels the subscription.
	Subscribe(ctx context.Context, path string, fn func([]byte)) (func(), error)

	// ServerTimestamp returns the store's clock in milliseconds since
	// the epoch, falling back to the local clock when the store cannot
	// supply one.
	ServerTimestamp(ctx context.Context) int64

	Close() error
}
