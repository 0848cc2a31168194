// Package sqlite implements store.Store on an embedded SQLite database.
// Guard records rely on the (pk0, sk0) primary key exactly as they rely on
// conditional puts elsewhere.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const recordColumns = "pk0, sk0, pk1, sk1, pk2, sk2, pk3, sk3, type, version, status, modified_date, data"

// Store is a store.Store backed by one SQLite file
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("open", err)
	}
	// One connection serializes transactions, which is what makes the
	// read-check-write sequence inside TransactWrite atomic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, pkgerrors.NewDatabaseError("configure", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, pkgerrors.NewDatabaseError("migrate", err)
	}

	logger.Info("SQLite store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// TransactWrite implements store.Store
func (s *Store) TransactWrite(ctx context.Context, ops []store.WriteOp) (err error) {
	if err := store.CheckTransaction(ops); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range ops {
		current, exists, getErr := getRecord(ctx, tx, op.Target())
		if getErr != nil {
			return translate("condition check", getErr)
		}
		if condErr := store.Evaluate(op, current, exists); condErr != nil {
			s.logger.Debug("Transaction condition failed",
				zap.String("pk", op.Target().PartitionKey),
				zap.String("sk", op.Target().SortKey),
				zap.Error(condErr))
			return condErr
		}
		if applyErr := apply(ctx, tx, op); applyErr != nil {
			return translate("write", applyErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return translate("commit", commitErr)
	}
	s.logger.Debug("Transaction committed", zap.Int("items", len(ops)))
	return nil
}

// Get implements store.Store
func (s *Store) Get(ctx context.Context, key store.Key) (store.Record, bool, error) {
	record, ok, err := getRecord(ctx, s.db, key)
	if err != nil {
		return store.Record{}, false, translate("get", err)
	}
	return record, ok, nil
}

// Query implements store.Store
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	pkCol, skCol := columns(q.Index)
	order := "ASC"
	if q.Descending {
		order = "DESC"
	}

	query := fmt.Sprintf(
		"SELECT %s FROM records WHERE %s = ? AND substr(%s, 1, length(?)) = ? ORDER BY %s %s, sk0 ASC",
		recordColumns, pkCol, skCol, skCol, order)
	args := []interface{}{q.PartitionKey, q.SortKeyPrefix, q.SortKeyPrefix}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("query", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, translate("scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("query", err)
	}
	return records, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func getRecord(ctx context.Context, q queryer, key store.Key) (store.Record, bool, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE pk0 = ? AND sk0 = ?",
		key.PartitionKey, key.SortKey)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, err
	}
	return record, true, nil
}

func apply(ctx context.Context, tx *sql.Tx, op store.WriteOp) error {
	switch op.Kind {
	case store.OpPut:
		r := op.Record
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			r.PK0, r.SK0, null(r.PK1), null(r.SK1), null(r.PK2), null(r.SK2), null(r.PK3), null(r.SK3),
			r.Type, null(r.Version), null(r.Status), null(r.ModifiedDate), r.Data)
		return err
	case store.OpDelete:
		_, err := tx.ExecContext(ctx, "DELETE FROM records WHERE pk0 = ? AND sk0 = ?",
			op.Key.PartitionKey, op.Key.SortKey)
		return err
	}
	return fmt.Errorf("unknown op kind %d", op.Kind)
}

func scanRecord(row scanner) (store.Record, error) {
	var (
		r                                                       store.Record
		pk1, sk1, pk2, sk2, pk3, sk3, version, status, modified sql.NullString
	)
	err := row.Scan(&r.PK0, &r.SK0, &pk1, &sk1, &pk2, &sk2, &pk3, &sk3,
		&r.Type, &version, &status, &modified, &r.Data)
	if err != nil {
		return store.Record{}, err
	}
	r.PK1, r.SK1 = pk1.String, sk1.String
	r.PK2, r.SK2 = pk2.String, sk2.String
	r.PK3, r.SK3 = pk3.String, sk3.String
	r.Version, r.Status, r.ModifiedDate = version.String, status.String, modified.String
	if len(r.Data) == 0 {
		r.Data = nil
	}
	return r, nil
}

func columns(index store.IndexName) (string, string) {
	switch index {
	case store.IndexByCustomerOwner:
		return "pk1", "sk1"
	case store.IndexByCustomerResource:
		return "pk2", "sk2"
	case store.IndexByTypeAndIdentifier:
		return "pk3", "sk3"
	default:
		return "pk0", "sk0"
	}
}

func null(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func translate(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewUnavailableError("sqlite", err)
	}
	return pkgerrors.NewDatabaseError(operation, err)
}
