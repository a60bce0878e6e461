package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const entryColumns = "id, url, title, alternate_name, creator, created_at, last_modified_at"

// SQLiteLoader reads the catalog_entries table of a SQLite database. The
// optional catalog_meta(key, value) table may carry a "version" row.
type SQLiteLoader struct {
	Path    string
	Version string
}

// Load implements Loader.
func (l *SQLiteLoader) Load(ctx context.Context) (*Index, error) {
	db, err := sql.Open("sqlite", l.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("apply pragma: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT "+entryColumns+" FROM catalog_entries")
	if err != nil {
		return nil, fmt.Errorf("query catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog entries: %w", err)
	}

	version := l.Version
	if version == "" {
		version, err = readMetaVersion(ctx, db)
		if err != nil {
			return nil, err
		}
	}
	return NewIndex(version, entries)
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		id          string
		url         sql.NullString
		title       sql.NullString
		altName     sql.NullString
		creator     sql.NullString
		createdRaw  sql.NullString
		modifiedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &url, &title, &altName, &creator, &createdRaw, &modifiedRaw); err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:            id,
		URL:           url.String,
		Title:         title.String,
		AlternateName: altName.String,
		Creator:       creator.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if modified, err := parseTimeString(modifiedRaw.String); err == nil {
		entry.LastModifiedAt = modified
	}
	return entry, nil
}

func readMetaVersion(ctx context.Context, db *sql.DB) (string, error) {
	var tableExists int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='catalog_meta'",
	).Scan(&tableExists); err != nil {
		return "", fmt.Errorf("check catalog_meta table: %w", err)
	}
	if tableExists == 0 {
		return "", nil
	}
	var version string
	err := db.QueryRowContext(ctx, "SELECT value FROM catalog_meta WHERE key = 'version'").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read catalog version: %w", err)
	}
	return strings.TrimSpace(version), nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
