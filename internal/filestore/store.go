package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Store keeps the uploaded page photos. Keys are opaque and generated by the
// caller.
type Store interface {
	Name() string
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type FactoryFunc func(args interface{}) (Store, error)

var mp = make(map[string]FactoryFunc)

func Register(name string, fn FactoryFunc) {
	mp[name] = fn
}

func NewStore(name string, args interface{}) (Store, error) {
	fn, ok := mp[name]
	if !ok {
		return nil, fmt.Errorf("file store not found, name:%s", name)
	}
	return fn(args)
}

func decodeConfig(args interface{}, target interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
