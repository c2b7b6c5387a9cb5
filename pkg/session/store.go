package session

import "context"

// Store is the external session store. Get returns (nil, nil) when the
// session does not exist or has expired; Set and Delete return only after
// the store has acknowledged the write.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Set(ctx context.Context, id string, rec *Record) error
	Delete(ctx context.Context, id string) error
}
