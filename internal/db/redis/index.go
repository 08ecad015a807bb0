package redis

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/unihelp/internal/db"
)

// CreateIndex issues FT.CREATE. A concurrent creator surfaces as db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := def.CreateArgs()
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}

	err = s.client.Do(ctx, s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()).Error()
	switch {
	case err == nil:
		return nil
	case serverErrorContains(err, "already exists"):
		return db.ErrIndexExists
	default:
		return &db.Error{Op: db.OpCreateIndex, Key: def.Name, Err: err}
	}
}

// DropIndex issues FT.DROPINDEX without DD; the chunk hashes stay.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	err := s.client.Do(ctx, s.client.B().Arbitrary("FT.DROPINDEX").Args(name).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isMissingIndex(err):
		return db.ErrIndexNotFound
	default:
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}
}

// IndexExists probes FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.client.Do(ctx, s.client.B().Arbitrary("FT.INFO").Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case isMissingIndex(err):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Key: name, Err: err}
	}
}
