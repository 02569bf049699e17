package store

import "github.com/rs/zerolog"

// WithLogger sets the logger used by the store and the backends it opens
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) error {
		s.Log = l
		return nil
	}
}
