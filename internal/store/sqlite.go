package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"basegraph.app/pulse/internal/model"

	_ "modernc.org/sqlite" // pure-Go driver
)

type sqliteBackend struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a local state database at path.
func NewSQLite(path string) (Stores, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	b := &sqliteBackend{db: conn}
	if err := b.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating sqlite database: %w", err)
	}
	return newStores(b), nil
}

func (b *sqliteBackend) migrate() error {
	_, err := b.db.Exec(`
	CREATE TABLE IF NOT EXISTS pulse_state (
		kind       TEXT NOT NULL,
		guild_id   TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		data       TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (kind, guild_id, channel_id)
	);`)
	return err
}

func (b *sqliteBackend) get(ctx context.Context, kind string, key model.ChannelKey) ([]byte, error) {
	var data string
	err := b.db.QueryRowContext(ctx,
		`SELECT data FROM pulse_state WHERE kind = ? AND guild_id = ? AND channel_id = ?`,
		kind, key.GuildID, key.ChannelID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(data), nil
}

func (b *sqliteBackend) put(ctx context.Context, kind string, key model.ChannelKey, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO pulse_state (kind, guild_id, channel_id, data, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (kind, guild_id, channel_id)
		 DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		kind, key.GuildID, key.ChannelID, string(data), time.Now().UTC(),
	)
	return err
}

func (b *sqliteBackend) listGuild(ctx context.Context, kind, guildID string) ([][]byte, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT data FROM pulse_state WHERE kind = ? AND guild_id = ? ORDER BY channel_id`,
		kind, guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		out = append(out, []byte(data))
	}
	return out, rows.Err()
}

func (b *sqliteBackend) keys(ctx context.Context, kind string) ([]model.ChannelKey, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT guild_id, channel_id FROM pulse_state WHERE kind = ? ORDER BY guild_id, channel_id`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s keys: %w", kind, err)
	}
	defer rows.Close()

	var out []model.ChannelKey
	for rows.Next() {
		var k model.ChannelKey
		if err := rows.Scan(&k.GuildID, &k.ChannelID); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}
