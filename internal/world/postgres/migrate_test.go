// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plugincall/pkg/errutil"
)

type mockMigrate struct {
	upErr          error
	downErr        error
	versionVal     uint
	versionErr     error
	dirty          bool
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgres://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("pgx5://u@h/db"))
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrator_Up(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Up())
	require.NoError(t, (&Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange}}).Up())

	err := (&Migrator{m: &mockMigrate{upErr: errors.New("boom")}}).Up()
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
}

func TestMigrator_Down(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{downErr: migrate.ErrNoChange}}).Down())

	err := (&Migrator{m: &mockMigrate{downErr: errors.New("boom")}}).Down()
	errutil.AssertErrorCode(t, err, "MIGRATION_DOWN_FAILED")
}

func TestMigrator_Version(t *testing.T) {
	v, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	v, dirty, err = (&Migrator{m: &mockMigrate{versionVal: 1, dirty: true}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.True(t, dirty)

	_, _, err = (&Migrator{m: &mockMigrate{versionErr: errors.New("boom")}}).Version()
	errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
}

func TestMigrator_Pending(t *testing.T) {
	pending, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Pending()
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, pending)

	pending, err = (&Migrator{m: &mockMigrate{versionVal: 1}}).Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMigrator_Close(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Close())

	tests := []struct {
		name      string
		mock      *mockMigrate
		component string
	}{
		{name: "source", mock: &mockMigrate{closeSourceErr: errors.New("src")}, component: "source"},
		{name: "database", mock: &mockMigrate{closeDbErr: errors.New("db")}, component: "database"},
		{name: "both", mock: &mockMigrate{closeSourceErr: errors.New("src"), closeDbErr: errors.New("db")}, component: "both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: tt.mock}).Close()
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.component)
		})
	}
}
