package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fakearchive/internal/codec"
	"fakearchive/internal/kvstore"
	"fakearchive/internal/model"
)

var ErrNotFound = errors.New("message not found")

// Repository keeps the whole archive as one encoded value under one key.
// Every mutation reads, modifies and rewrites the full value.
type Repository struct {
	store *kvstore.Store
	codec codec.Codec
	key   string

	// read-modify-write を直列化する (プロセス内のみ)
	mu sync.Mutex
}

func NewRepository(store *kvstore.Store, c codec.Codec, key string) *Repository {
	return &Repository{store: store, codec: c, key: key}
}

func (r *Repository) Codec() codec.Codec {
	return r.codec
}

func (r *Repository) List(ctx context.Context) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(ctx)
}

// Raw returns the encoded archive without decoding it.
func (r *Repository) Raw(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, _, err := r.store.String(ctx, r.key)
	return raw, err
}

// Append adds the message at the end. Duplicate ids are kept.
func (r *Repository) Append(ctx context.Context, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, err := r.list(ctx)
	if err != nil {
		return err
	}
	messages = append(messages, msg)
	return r.save(ctx, messages)
}

// Remove deletes the first message with the given id. It returns false
// without writing when no message matches.
func (r *Repository) Remove(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, err := r.list(ctx)
	if err != nil {
		return false, err
	}

	idx := -1
	for i, m := range messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	messages = append(messages[:idx], messages[idx+1:]...)
	if err := r.save(ctx, messages); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) list(ctx context.Context) ([]model.Message, error) {
	raw, ok, err := r.store.String(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if !ok {
		// 初回アクセス時は空のアーカイブを書き込んでおく
		if err := r.store.SetString(ctx, r.key, ""); err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		raw = ""
	}
	return r.codec.Decode(raw), nil
}

func (r *Repository) save(ctx context.Context, messages []model.Message) error {
	if err := r.store.SetString(ctx, r.key, r.codec.Encode(messages)); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}
