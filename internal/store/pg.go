package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PGConfig captures the connection parameters for a Postgres instance.
type PGConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
	SSLMode  string
}

// PGFromEnv populates a PGConfig with defaults that can be overridden via
// environment variables.
func PGFromEnv() PGConfig {
	return PGConfig{
		User:     getEnv("TPCC_PG_USER", "tpcc"),
		Password: getEnv("TPCC_PG_PASSWORD", "tpcc"),
		Host:     getEnv("TPCC_PG_HOST", "127.0.0.1"),
		Port:     getEnv("TPCC_PG_PORT", "5432"),
		Database: getEnv("TPCC_PG_DATABASE", "tpcc"),
		SSLMode:  getEnv("TPCC_PG_SSLMODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// PG is a Store over a single Postgres table of versioned records. The
// read phase snapshots the declared keys in one repeatable-read
// transaction; commit re-validates every declared key's version under row
// locks and applies the buffered writes in one SQL transaction, each write
// still guarded by the snapshotted version. An update that affects zero
// rows means a concurrent writer got there first.
type PG struct {
	db *gorm.DB
}

// OpenPG connects and ensures the records table exists.
func OpenPG(cfg PGConfig) (*PG, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres client")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)

	tx := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			k       bytea PRIMARY KEY,
			version bigint NOT NULL,
			data    bytea NOT NULL
		)
	`)
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "ensure records table")
	}

	return &PG{db: db}, nil
}

func (p *PG) Run(ctx context.Context, keys []Key, fn func(Txn) error) error {
	txn := &memTxn{
		snapshot: make(map[Key]memRecord, len(keys)),
		declared: make(map[Key]bool, len(keys)),
		pending:  make(map[Key]pendingWrite),
	}

	db := p.db.WithContext(ctx)

	// Read phase: one repeatable-read transaction, so every declared key
	// is read from the same database snapshot.
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, k := range keys {
			txn.declared[k] = true
			row, err := p.readRow(tx, k)
			if err == nil {
				txn.snapshot[k] = memRecord{version: row.Version, data: row.Data}
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return err
	}

	if err := fn(txn); err != nil {
		return err
	}
	if len(txn.pending) == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// Re-validate every declared key under row locks, read-only keys
		// included: a read that fed the transaction's logic is stale the
		// same way a write is. Missing keys cannot be locked; creates
		// racing on them are caught by the primary-key insert below.
		for k := range txn.declared {
			snap, had := txn.snapshot[k]
			row, err := p.lockRow(tx, k)
			has := err == nil
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if had != has || (had && snap.version != row.Version) {
				return ErrConflict
			}
		}

		for k, w := range txn.pending {
			snap, had := txn.snapshot[k]
			switch {
			case w.delete:
				res := tx.Exec(`DELETE FROM records WHERE k = ? AND version = ?`, k[:], snap.version)
				if res.Error != nil {
					return res.Error
				} else if res.RowsAffected == 0 {
					return ErrConflict
				}
			case had:
				res := tx.Exec(`
					UPDATE records
					SET data = ?, version = version + 1
					WHERE k = ? AND version = ?`, w.data, k[:], snap.version)
				if res.Error != nil {
					return res.Error
				} else if res.RowsAffected == 0 {
					return ErrConflict
				}
			default:
				res := tx.Exec(`
					INSERT INTO records (k, version, data) VALUES (?, 1, ?)
					ON CONFLICT (k) DO NOTHING`, k[:], w.data)
				if res.Error != nil {
					return res.Error
				} else if res.RowsAffected == 0 {
					return ErrConflict
				}
			}
		}
		return nil
	})
}

func (p *PG) Get(ctx context.Context, k Key) ([]byte, error) {
	row, err := p.readRow(p.db.WithContext(ctx), k)
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (p *PG) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type recordRow struct {
	Version uint64
	Data    []byte
}

func (p *PG) readRow(db *gorm.DB, k Key) (recordRow, error) {
	var row recordRow
	res := db.Raw(`SELECT version, data FROM records WHERE k = ? LIMIT 1`, k[:]).Scan(&row)
	if res.Error != nil {
		return recordRow{}, res.Error
	}
	if res.RowsAffected == 0 {
		return recordRow{}, ErrNotFound
	}
	return row, nil
}

// lockRow reads a record's version and takes its row lock, pinning it for
// the rest of the commit transaction.
func (p *PG) lockRow(db *gorm.DB, k Key) (recordRow, error) {
	var row recordRow
	res := db.Raw(`SELECT version, data FROM records WHERE k = ? FOR UPDATE`, k[:]).Scan(&row)
	if res.Error != nil {
		return recordRow{}, res.Error
	}
	if res.RowsAffected == 0 {
		return recordRow{}, ErrNotFound
	}
	return row, nil
}
