package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tomasagata/extra-api-sub001/contract"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	queryTimeout = 5 * time.Second

	mysqlDuplicateEntry = 1062
)

// NewDB opens the connection pool shared by every repository.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetConnMaxLifetime(time.Minute * 5)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(time.Minute * 3)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// Migrate brings the schema up to date with the embedded migrations. It uses
// its own connection since closing the migrator closes the database handle.
func Migrate(dsn string) error {
	migrateDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := migratemysql.WithInstance(migrateDB, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("create mysql driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "mysql", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// mapError turns driver errors into the contract sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return contract.ErrNotFound
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s", contract.ErrDuplicate, mysqlErr.Message)
	}
	return err
}

// expectOne reports ErrNotFound when an owner-scoped write matched no row.
func expectOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return contract.ErrNotFound
	}
	return nil
}

// withTx runs fn inside a serializable transaction on a dedicated connection.
func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

var (
	_ contract.UserRepo        = (*UserRepoMysql)(nil)
	_ contract.ResetTokenRepo  = (*ResetTokenRepoMysql)(nil)
	_ contract.CategoryRepo    = (*CategoryRepoMysql)(nil)
	_ contract.TransactionRepo = (*TransactionRepoMysql)(nil)
	_ contract.BudgetRepo      = (*BudgetRepoMysql)(nil)
	_ contract.InvestmentRepo  = (*InvestmentRepoMysql)(nil)
	_ contract.DeviceRepo      = (*DeviceRepoMysql)(nil)
)
