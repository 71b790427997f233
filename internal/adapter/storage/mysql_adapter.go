package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/inventory-api/internal/port"
)

const mysqlErrDuplicateEntry = 1062

const createItemsTable = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id            BIGINT       NOT NULL AUTO_INCREMENT,
	product_name  VARCHAR(255) NOT NULL DEFAULT '',
	quantity      INT          NOT NULL DEFAULT 0,
	shipment_date DATETIME(6)  NULL,
	created_at    DATETIME(6)  NOT NULL,
	updated_at    DATETIME(6)  NOT NULL,
	PRIMARY KEY (id)
)`

const itemColumns = `id, product_name, quantity, shipment_date, created_at, updated_at`

type MySQLOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenMySQL connects with parseTime and UTC forced on, so DATETIME columns
// scan into time.Time regardless of the DSN the operator supplied.
func OpenMySQL(ctx context.Context, dsn string, opts MySQLOptions) (*sqlx.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

type MySQLGateway struct {
	db *sqlx.DB
}

func NewMySQLGateway(db *sqlx.DB) *MySQLGateway {
	return &MySQLGateway{db: db}
}

func (g *MySQLGateway) Migrate(ctx context.Context) error {
	if _, err := g.db.ExecContext(ctx, createItemsTable); err != nil {
		return fmt.Errorf("create inventory_items: %w", err)
	}
	return nil
}

func (g *MySQLGateway) Begin(ctx context.Context) (port.Session, error) {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &mysqlSession{tx: tx}, nil
}

type mysqlSession struct {
	tx *sqlx.Tx
}

func (s *mysqlSession) Add(ctx context.Context, rec *port.ItemRecord) error {
	query := `
		INSERT INTO inventory_items (id, product_name, quantity, shipment_date, created_at, updated_at)
		VALUES (:id, :product_name, :quantity, :shipment_date, :created_at, :updated_at)`
	if rec.ID == 0 {
		query = `
		INSERT INTO inventory_items (product_name, quantity, shipment_date, created_at, updated_at)
		VALUES (:product_name, :quantity, :shipment_date, :created_at, :updated_at)`
	}

	result, err := s.tx.NamedExecContext(ctx, query, rec)
	if err != nil {
		return translateMySQLError(fmt.Errorf("insert item: %w", err))
	}

	if rec.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		rec.ID = id
	}
	return nil
}

func (s *mysqlSession) FindByID(ctx context.Context, id int64) (*port.ItemRecord, error) {
	var rec port.ItemRecord
	err := s.tx.GetContext(ctx, &rec, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &rec, nil
}

func (s *mysqlSession) FindAll(ctx context.Context) ([]port.ItemRecord, error) {
	recs := []port.ItemRecord{}
	if err := s.tx.SelectContext(ctx, &recs, `SELECT `+itemColumns+` FROM inventory_items ORDER BY id`); err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return recs, nil
}

func (s *mysqlSession) Save(ctx context.Context, rec port.ItemRecord) error {
	_, err := s.tx.NamedExecContext(ctx, `
		UPDATE inventory_items
		SET product_name = :product_name, quantity = :quantity,
			shipment_date = :shipment_date, updated_at = :updated_at
		WHERE id = :id`, rec)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *mysqlSession) Remove(ctx context.Context, id int64) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *mysqlSession) Commit() error {
	return s.tx.Commit()
}

func (s *mysqlSession) Rollback() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func translateMySQLError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return err
}
