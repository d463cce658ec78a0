package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/migrations"
	"github.com/dmitrijs2005/gophdrive/internal/models"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"
)

const (
	tracerName     = "gophdrive/store"
	defaultPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
)

// SQLiteStore implements Store on an embedded SQLite database.
// It is safe for concurrent use.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
	opts   options
	closed atomic.Bool
}

var _ Store = (*SQLiteStore)(nil)

// New wraps an already migrated database. Most callers want Open.
func New(db *sql.DB, logger logging.Logger, opts ...Option) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
		opts:   buildOptions(opts),
	}
}

// Open opens the database at dsn, checks it is reachable and applies pending
// migrations. Any failure is reported as ErrStorageUnavailable.
func Open(ctx context.Context, dsn string, logger logging.Logger, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", common.ErrStorageUnavailable, dsn, err)
	}
	// One connection keeps ":memory:" databases coherent and matches
	// SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", common.ErrStorageUnavailable, dsn, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate %s: %w", common.ErrStorageUnavailable, dsn, err)
	}

	s := New(db, logger, opts...)
	v, err := s.SchemaVersion(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: schema version %s: %w", common.ErrStorageUnavailable, dsn, err)
	}
	s.logger.Info(ctx, "store opened", "dsn", dsn, "schema_version", v)
	return s, nil
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + defaultPragmas
}

func newProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
}

// RunMigrations applies pending embedded migrations. Running it again on an
// up-to-date database is a no-op.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := newProvider(db)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// SchemaVersion reports the applied migration version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int64, error) {
	p, err := newProvider(s.db)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

func (s *SQLiteStore) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *SQLiteStore) checkOpen() error {
	if s.closed.Load() {
		return fmt.Errorf("%w: store is closed", common.ErrStorageUnavailable)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, name string, size int64, typ string, payload []byte) (id string, err error) {
	ctx, span := s.startSpan(ctx, "store.Create",
		attribute.String("entry.name", name), attribute.Int64("entry.size", size))
	defer func() { endSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return "", err
	}

	e, err := newEntry(s.opts.now(), name, size, typ, payload)
	if err != nil {
		return "", err
	}
	e.Checksum = cryptox.Checksum(e.Payload)

	for attempt := 1; attempt <= s.opts.maxIDAttempts; attempt++ {
		id, err = s.opts.newID(e.CreatedAt)
		if err != nil {
			return "", err
		}

		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			res, err := tx.ExecContext(ctx, `INSERT INTO entry_ids (id) VALUES (?)`, id)
			if err != nil {
				return err
			}
			seq, err := res.LastInsertId()
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO files (id, seq, name, size, type, created_at, checksum, payload)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, seq, e.Name, e.Size, e.Type, e.CreatedAt.UnixMilli(), e.Checksum, e.Payload)
			return err
		})
		err = classify("create entry", err)
		if err == nil {
			span.SetAttributes(attribute.String("entry.id", id))
			s.logger.Info(ctx, "entry created", "id", id, "name", e.Name, "size", e.Size)
			return id, nil
		}
		if !errors.Is(err, common.ErrWriteConflict) {
			return "", err
		}
		s.logger.Warn(ctx, "entry id collision, regenerating", "id", id, "attempt", attempt)
	}

	return "", err
}

func (s *SQLiteStore) ListAll(ctx context.Context) (result []models.FileEntry, err error) {
	ctx, span := s.startSpan(ctx, "store.ListAll")
	defer func() { endSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, name, size, type, created_at, checksum FROM files ORDER BY created_at DESC, seq ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = make([]models.FileEntry, 0)
		for rows.Next() {
			var (
				e         models.FileEntry
				createdAt int64
			)
			if err := rows.Scan(&e.ID, &e.Name, &e.Size, &e.Type, &createdAt, &e.Checksum); err != nil {
				return err
			}
			e.CreatedAt = time.UnixMilli(createdAt)
			result = append(result, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify("list entries", err)
	}

	span.SetAttributes(attribute.Int("entries.count", len(result)))
	return result, nil
}

func (s *SQLiteStore) Search(ctx context.Context, query string) ([]models.FileEntry, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByName(all, query), nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (e *models.FileEntry, err error) {
	ctx, span := s.startSpan(ctx, "store.GetByID", attribute.String("entry.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	e = &models.FileEntry{}
	var createdAt int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, size, type, created_at, checksum, payload FROM files WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Size, &e.Type, &createdAt, &e.Checksum, &e.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, classify("get entry", err)
	}
	e.CreatedAt = time.UnixMilli(createdAt)

	if !cryptox.Verify(e.Payload, e.Checksum) {
		return nil, fmt.Errorf("%w: entry %s payload checksum mismatch", common.ErrStorageUnavailable, id)
	}
	return e, nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "store.DeleteByID", attribute.String("entry.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
		}
		return nil
	})
	if err != nil {
		return classify("delete entry", err)
	}

	s.logger.Info(ctx, "entry deleted", "id", id)
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "store.Clear")
	defer func() { endSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return err
	}

	var removed int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM files`)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return classify("clear entries", err)
	}

	s.logger.Info(ctx, "store cleared", "removed", removed)
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (st models.Stats, err error) {
	ctx, span := s.startSpan(ctx, "store.Stats")
	defer func() { endSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return models.Stats{}, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).
		Scan(&st.Count, &st.TotalSize)
	if err != nil {
		return models.Stats{}, classify("stats", err)
	}
	return st, nil
}

// Close releases the database. Later calls fail with ErrStorageUnavailable.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
