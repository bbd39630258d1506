package mediastore

import (
	"context"
	"io"

	"github.com/yungbote/archsheet-backend/internal/observability"
)

// instrumentedStore counts backend operations in the as_storage_ops_total
// metric. No-op when metrics are disabled.
type instrumentedStore struct {
	next Store
}

func instrument(next Store) Store {
	return &instrumentedStore{next: next}
}

func (s *instrumentedStore) Put(ctx context.Context, key string, data []byte) error {
	err := s.next.Put(ctx, key, data)
	observability.Current().IncStorageOp("put", opStatus(err))
	return err
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.next.Get(ctx, key)
	observability.Current().IncStorageOp("get", opStatus(err))
	return rc, err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	observability.Current().IncStorageOp("delete", opStatus(err))
	return err
}

func (s *instrumentedStore) PublicURL(key string) string {
	return s.next.PublicURL(key)
}

func opStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
