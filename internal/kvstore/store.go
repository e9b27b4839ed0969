package kvstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Backend is a flat string key-value storage.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store namespaces keys on top of a Backend and exposes typed accessors.
type Store struct {
	backend   Backend
	namespace string
}

func New(backend Backend, namespace string) *Store {
	return &Store{backend: backend, namespace: namespace}
}

// Key returns the backend key for the given logical key.
func (s *Store) Key(key string) string {
	return s.namespace + key
}

// String reads a string value. Missing, empty and "undefined" values are
// reported as absent.
func (s *Store) String(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.backend.Get(ctx, s.Key(key))
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || raw == "" || raw == "undefined" {
		return "", false, nil
	}
	return raw, true, nil
}

// Bool reads a boolean value stored as "true" or "false" in any case.
func (s *Store) Bool(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := s.String(ctx, key)
	if err != nil || !ok {
		return false, false, err
	}
	switch strings.ToLower(raw) {
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	}
	return false, false, nil
}

func (s *Store) SetString(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, s.Key(key), value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	return s.SetString(ctx, key, strconv.FormatBool(value))
}
