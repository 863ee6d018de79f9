package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"basegraph.app/pulse/core/db"
	"basegraph.app/pulse/internal/model"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS pulse_state (
		kind       TEXT        NOT NULL,
		guild_id   TEXT        NOT NULL,
		channel_id TEXT        NOT NULL DEFAULT '',
		data       JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (kind, guild_id, channel_id)
	)`,
	`CREATE INDEX IF NOT EXISTS pulse_state_kind_updated_idx ON pulse_state (kind, updated_at)`,
}

type postgresBackend struct {
	db *db.DB
}

// NewPostgres returns stores backed by one JSONB table, creating it if needed.
func NewPostgres(ctx context.Context, database *db.DB) (Stores, error) {
	err := database.WithTx(ctx, func(q db.Querier) error {
		for _, stmt := range postgresSchema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("migrating state table: %w", err)
	}
	return newStores(&postgresBackend{db: database}), nil
}

func (b *postgresBackend) get(ctx context.Context, kind string, key model.ChannelKey) ([]byte, error) {
	var data []byte
	err := b.db.Querier().QueryRow(ctx,
		`SELECT data FROM pulse_state WHERE kind = $1 AND guild_id = $2 AND channel_id = $3`,
		kind, key.GuildID, key.ChannelID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *postgresBackend) put(ctx context.Context, kind string, key model.ChannelKey, data []byte) error {
	_, err := b.db.Querier().Exec(ctx,
		`INSERT INTO pulse_state (kind, guild_id, channel_id, data, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (kind, guild_id, channel_id)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		kind, key.GuildID, key.ChannelID, data,
	)
	return err
}

func (b *postgresBackend) listGuild(ctx context.Context, kind, guildID string) ([][]byte, error) {
	rows, err := b.db.Querier().Query(ctx,
		`SELECT data FROM pulse_state WHERE kind = $1 AND guild_id = $2 ORDER BY channel_id`,
		kind, guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

func (b *postgresBackend) keys(ctx context.Context, kind string) ([]model.ChannelKey, error) {
	rows, err := b.db.Querier().Query(ctx,
		`SELECT guild_id, channel_id FROM pulse_state WHERE kind = $1 ORDER BY guild_id, channel_id`,
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

func (b *postgresBackend) close() error {
	b.db.Close()
	return nil
}
