// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	// SQL drivers for the supported directory backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/toeirei/keymaster-remote/internal/logging"
	"github.com/toeirei/keymaster-remote/internal/plugin"
)

// BuiltinName names the SQL directory plugin.
const BuiltinName = "builtin"

const (
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 5 * time.Minute
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// SQL is the built-in directory backed by sqlite, postgres or mysql.
type SQL struct {
	plugin.Info

	mu  sync.Mutex
	db  *bun.DB
	typ string
}

// NewSQL returns the unopened SQL directory plugin.
func NewSQL() *SQL {
	return &SQL{Info: plugin.Info{
		PluginName:        BuiltinName,
		PluginVersion:     "1.0",
		PluginDescription: "Network object directory stored in a SQL database",
	}}
}

// Open connects to the database in s and creates the schema.
func (d *SQL) Open(ctx context.Context, s Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		return nil
	}

	dbType := strings.ToLower(s.Type)
	driverName := dbType
	switch dbType {
	case "sqlite":
		if !isMemoryDSN(s.DSN) {
			if err := os.MkdirAll(filepath.Dir(s.DSN), 0o700); err != nil {
				return fmt.Errorf("create directory database dir: %w", err)
			}
		}
	case "postgres":
		// The pgx stdlib registers driver name "pgx".
		driverName = "pgx"
	case "mysql":
	default:
		return fmt.Errorf("unsupported directory database type %q", s.Type)
	}

	sqlDB, err := sqlOpenFunc(driverName, s.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	maxOpen := defaultMaxOpenConns
	// In-memory SQLite databases exist per connection; keep exactly one.
	if dbType == "sqlite" && isMemoryDSN(s.DSN) {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)

	db := createBunDB(sqlDB, dbType)
	if _, err := db.NewCreateTable().Model((*NetworkObject)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("create directory schema: %w", err)
	}
	logging.Debugf("directory: opened %s database", dbType)
	d.db, d.typ = db, dbType
	return nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

func (d *SQL) conn() (*bun.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil, errors.New("directory: database not open")
	}
	return d.db, nil
}

// Objects lists the children of parent ordered by type and name.
func (d *SQL) Objects(ctx context.Context, parent uuid.UUID) ([]NetworkObject, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	var objs []NetworkObject
	err = db.NewSelect().Model(&objs).
		Where("parent_uid = ?", parent.String()).
		OrderExpr("type ASC, name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return objs, nil
}

// Add inserts o, assigning a random UID when it has none.
func (d *SQL) Add(ctx context.Context, o NetworkObject) (NetworkObject, error) {
	db, err := d.conn()
	if err != nil {
		return NetworkObject{}, err
	}
	if o.UID == uuid.Nil {
		o.UID = uuid.New()
	}
	n, err := db.NewSelect().Model((*NetworkObject)(nil)).
		Where("parent_uid = ?", o.ParentUID.String()).
		Where("name = ?", o.Name).
		Count(ctx)
	if err != nil {
		return NetworkObject{}, fmt.Errorf("check duplicate: %w", err)
	}
	if n > 0 {
		return NetworkObject{}, fmt.Errorf("%w: %q", ErrDuplicate, o.Name)
	}
	if _, err := db.NewInsert().Model(&o).Exec(ctx); err != nil {
		return NetworkObject{}, mapDBError(err)
	}
	return o, nil
}

// Remove deletes uid and all of its descendants in one transaction.
func (d *SQL) Remove(ctx context.Context, uid uuid.UUID) error {
	db, err := d.conn()
	if err != nil {
		return err
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		pending := []uuid.UUID{uid}
		removed := 0
		for len(pending) > 0 {
			cur := pending[0]
			pending = pending[1:]

			var children []NetworkObject
			if err := tx.NewSelect().Model(&children).Where("parent_uid = ?", cur.String()).Scan(ctx); err != nil {
				return fmt.Errorf("list children: %w", err)
			}
			for _, c := range children {
				pending = append(pending, c.UID)
			}
			res, err := tx.NewDelete().Model((*NetworkObject)(nil)).Where("uid = ?", cur.String()).Exec(ctx)
			if err != nil {
				return fmt.Errorf("remove %s: %w", cur, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				removed += int(n)
			}
		}
		if removed == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		return nil
	})
}

// Find returns the object with uid.
func (d *SQL) Find(ctx context.Context, uid uuid.UUID) (NetworkObject, error) {
	db, err := d.conn()
	if err != nil {
		return NetworkObject{}, err
	}
	var o NetworkObject
	err = db.NewSelect().Model(&o).Where("uid = ?", uid.String()).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return NetworkObject{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	if err != nil {
		return NetworkObject{}, fmt.Errorf("find %s: %w", uid, err)
	}
	return o, nil
}

// Close closes the database. It is safe to call more than once.
func (d *SQL) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// mapDBError maps driver constraint violations to ErrDuplicate.
func mapDBError(err error) error {
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry, Postgres unique violation (23505), SQLite unique constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
