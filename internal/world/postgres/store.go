// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides a PostgreSQL-backed attribute store.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/world"
)

// poolIface is the subset of pgxpool.Pool the store uses.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AttrStore implements world.AttrStore using PostgreSQL.
type AttrStore struct {
	pool poolIface
}

var _ world.AttrStore = (*AttrStore)(nil)

// NewAttrStore creates a store over an existing pool.
func NewAttrStore(pool *pgxpool.Pool) *AttrStore {
	return &AttrStore{pool: pool}
}

// Connect opens a pool for dsn and checks it is reachable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// Get implements world.AttrStore.
func (s *AttrStore) Get(ctx context.Context, thingID, name string) (attr.Attr, error) {
	a := attr.Attr{Name: name}
	var typ string
	err := s.pool.QueryRow(ctx,
		`SELECT value, type FROM attributes WHERE thing_id = $1 AND name = $2`,
		thingID, name).Scan(&a.Value, &typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return attr.Attr{}, world.ErrNotFound(thingID, name)
	}
	if err != nil {
		return attr.Attr{}, storeError("get attribute", thingID, err)
	}
	a.Type = attr.Type(typ)
	return a, nil
}

// Set implements world.AttrStore.
func (s *AttrStore) Set(ctx context.Context, thingID string, a attr.Attr) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attributes (thing_id, name, value, type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (thing_id, name) DO UPDATE
		SET value = EXCLUDED.value, type = EXCLUDED.type, updated_at = now()
	`, thingID, a.Name, a.Value, string(a.Type))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return oops.Code(attr.CodeInvalidType).
				With("thing_id", thingID).
				With("name", a.Name).
				With("type", string(a.Type)).
				Errorf("invalid type %s", a.Type)
		}
		return storeError("set attribute", thingID, err)
	}
	return nil
}

// Remove implements world.AttrStore.
func (s *AttrStore) Remove(ctx context.Context, thingID, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM attributes WHERE thing_id = $1 AND name = $2`, thingID, name)
	if err != nil {
		return storeError("remove attribute", thingID, err)
	}
	if tag.RowsAffected() == 0 {
		return world.ErrNotFound(thingID, name)
	}
	return nil
}

// List implements world.AttrStore.
func (s *AttrStore) List(ctx context.Context, thingID string) ([]attr.Attr, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, value, type FROM attributes WHERE thing_id = $1 ORDER BY name`, thingID)
	if err != nil {
		return nil, storeError("list attributes", thingID, err)
	}
	defer rows.Close()

	attrs := []attr.Attr{}
	for rows.Next() {
		var a attr.Attr
		var typ string
		if err := rows.Scan(&a.Name, &a.Value, &typ); err != nil {
			return nil, storeError("scan attribute", thingID, err)
		}
		a.Type = attr.Type(typ)
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list attributes", thingID, err)
	}
	return attrs, nil
}

func storeError(operation, thingID string, err error) error {
	return oops.Code(world.CodeStoreFailed).
		With("operation", operation).
		With("thing_id", thingID).
		Wrap(err)
}
