// Package store persists the search history log.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
)

// SearchFilter narrows ListSearches.
type SearchFilter struct {
	Term   string       `json:"term,omitempty"`
	Region string       `json:"region,omitempty"`
	Status model.Status `json:"status,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// limit returns the page size, defaulting to 50 and capping at 500.
func (f SearchFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return 50
	case f.Limit > 500:
		return 500
	}
	return f.Limit
}

// Store is the search history contract.
type Store interface {
	RecordSearch(ctx context.Context, rec model.SearchRecord) error
	ListSearches(ctx context.Context, filter SearchFilter) ([]model.SearchRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the backend named by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres", "postgresql":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
