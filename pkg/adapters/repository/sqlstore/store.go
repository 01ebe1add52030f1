// Package sqlstore is the database/sql implementation of ports.LinkRepository
// shared by the SQLite and PostgreSQL backends.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

var _ ports.LinkRepository = (*Store)(nil)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	Name string
	// Schema holds DDL statements run in order on open.
	Schema []string
	// Numbered placeholders ($1, $2, ...) instead of ?
	NumberedParams bool
	// IsUniqueViolation reports a UNIQUE constraint failure from the driver.
	IsUniqueViolation func(error) bool
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New migrates db and wraps it. The caller keeps ownership of db settings.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating %s schema: %w", d.Name, err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying handle, mostly for tests and health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *Store) rebind(query string) string {
	if !s.dialect.NumberedParams {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

const linkColumns = `seq, id, original_url, short_code, validity_minutes, created_at, expires_at, is_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (int64, domain.ShortLink, error) {
	var (
		seq              int64
		l                domain.ShortLink
		created, expires int64
	)
	if err := row.Scan(&seq, &l.ID, &l.OriginalURL, &l.ShortCode, &l.ValidityMinutes, &created, &expires, &l.IsActive); err != nil {
		return 0, l, err
	}
	l.CreatedAt = fromNanos(created)
	l.ExpiresAt = fromNanos(expires)
	l.Clicks = []domain.ClickRecord{}
	return seq, l, nil
}

func (s *Store) GetAll(ctx context.Context) ([]domain.ShortLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}

	links := []domain.ShortLink{}
	index := make(map[int64]int)
	for rows.Next() {
		seq, l, err := scanLink(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrCorruptData, err)
		}
		index[seq] = len(links)
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("reading links: %w", err)
	}
	// Close before the next query, SQLite runs on a single connection.
	rows.Close()

	clickRows, err := s.db.QueryContext(ctx, `SELECT link_seq, user_agent, referrer, ip_hash, created_at FROM clicks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying clicks: %w", err)
	}
	defer clickRows.Close()

	for clickRows.Next() {
		var (
			seq int64
			c   domain.ClickRecord
			ts  int64
		)
		if err := clickRows.Scan(&seq, &c.UserAgent, &c.Referrer, &c.IPHash, &ts); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCorruptData, err)
		}
		c.Timestamp = fromNanos(ts)
		if i, ok := index[seq]; ok {
			links[i].Clicks = append(links[i].Clicks, c)
		}
	}
	if err := clickRows.Err(); err != nil {
		return nil, fmt.Errorf("reading clicks: %w", err)
	}
	return links, nil
}

// SaveBatch inserts every link, and any clicks it carries, in one transaction.
func (s *Store) SaveBatch(ctx context.Context, links []domain.ShortLink) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	defer tx.Rollback()

	insertLink := s.rebind(`INSERT INTO links (id, original_url, short_code, validity_minutes, created_at, expires_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING seq`)
	insertClick := s.rebind(`INSERT INTO clicks (link_seq, user_agent, referrer, ip_hash, created_at) VALUES (?, ?, ?, ?, ?)`)

	for _, l := range links {
		var seq int64
		err := tx.QueryRowContext(ctx, insertLink,
			l.ID, l.OriginalURL, l.ShortCode, l.ValidityMinutes,
			l.CreatedAt.UnixNano(), l.ExpiresAt.UnixNano(), l.IsActive,
		).Scan(&seq)
		if err != nil {
			return s.persistErr(fmt.Errorf("inserting %s: %w", l.ShortCode, err))
		}

		for _, c := range l.Clicks {
			if _, err := tx.ExecContext(ctx, insertClick, seq, c.UserAgent, c.Referrer, c.IPHash, c.Timestamp.UnixNano()); err != nil {
				return s.persistErr(fmt.Errorf("inserting click for %s: %w", l.ShortCode, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return s.persistErr(err)
	}
	return nil
}

func (s *Store) persistErr(err error) error {
	if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w (%v)", domain.ErrPersistenceFailure, domain.ErrShortcodeInUse, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
}

func (s *Store) FindByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+linkColumns+` FROM links WHERE short_code = ?`), code)
	seq, l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying link by code: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT user_agent, referrer, ip_hash, created_at FROM clicks WHERE link_seq = ? ORDER BY id`), seq)
	if err != nil {
		return nil, fmt.Errorf("querying clicks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c  domain.ClickRecord
			ts int64
		)
		if err := rows.Scan(&c.UserAgent, &c.Referrer, &c.IPHash, &ts); err != nil {
			return nil, fmt.Errorf("scanning click: %w", err)
		}
		c.Timestamp = fromNanos(ts)
		l.Clicks = append(l.Clicks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading clicks: %w", err)
	}
	return &l, nil
}

// RecordClick appends one click row. Other links are never touched.
func (s *Store) RecordClick(ctx context.Context, code string, click domain.ClickRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT seq FROM links WHERE short_code = ?`), code).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO clicks (link_seq, user_agent, referrer, ip_hash, created_at) VALUES (?, ?, ?, ?, ?)`),
		seq, click.UserAgent, click.Referrer, click.IPHash, click.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func (s *Store) Deactivate(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE links SET is_active = ? WHERE short_code = ?`), false, code)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM clicks`, `DELETE FROM links`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func (s *Store) ListShortcodes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT short_code FROM links`)
	if err != nil {
		return nil, fmt.Errorf("querying shortcodes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning shortcode: %w", err)
		}
		codes[code] = struct{}{}
	}
	return codes, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
