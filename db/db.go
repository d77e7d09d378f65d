package db

//nolint:golint,revive
import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/podnetwork/pod-sdk-sub000/config"
)

const (
	defaultMigrationsURL = "file://db/migrations"
	maxIdleConns         = 3
	maxOpenConns         = 10
)

// DB is the settlement journal connection. Every query is timed under the name of the calling repository method.
type DB struct {
	cfg *config.DBConfig
	db  *sqlx.DB
}

func (db *DB) Migrate() error {
	m, err := migrate.New(defaultMigrationsURL, db.dbURL("pgx"))
	if err != nil {
		return fmt.Errorf("can't connect to postgres database: %w", err)
	}
	defer m.Close()
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("can't apply postgres database migrations: %w", err)
	}
	return nil
}

func (db *DB) dbURL(prefix string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", prefix, db.cfg.User, db.cfg.Password, db.cfg.Host, db.cfg.Port, db.cfg.DB)
}

func NewDB(ctx context.Context, cfg *config.DBConfig) (*DB, error) {
	db := &DB{
		cfg: cfg,
	}
	conn, err := sqlx.ConnectContext(ctx, "pgx", db.dbURL("postgres"))
	if err != nil {
		return nil, fmt.Errorf("can't connect to postgres database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetMaxOpenConns(maxOpenConns)
	db.db = conn
	return db, nil
}

func ConnectToDBAndMigrate(ctx context.Context, cfg *config.DBConfig) (*DB, error) {
	db, err := NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err = db.Migrate(); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer ObserveDuration(callerName(2))()
	return db.db.ExecContext(ctx, query, args...)
}

func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(callerName(2))()
	err := db.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(callerName(2))()
	return db.db.SelectContext(ctx, dest, query, args...)
}

// callerName turns "pkg.(*settlementsRepo).Ensure" into "settlementsRepo.Ensure".
func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	details := runtime.FuncForPC(pc)
	if details == nil {
		return "unknown"
	}
	name := details.Name()
	name = name[strings.LastIndex(name, "/")+1:]
	name = name[strings.Index(name, ".")+1:]
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)
	return name
}
