package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmrtn/partybot/internal/config"
)

// DB is the global Postgres pool for the historian side.
var DB *pgxpool.Pool

// ConnectDB opens the pool from POSTGRES_USER / POSTGRES_PASSWORD /
// PG_HOST / PG_PORT / PG_DATABASE and verifies connectivity.
func ConnectDB() {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		config.GetEnv("POSTGRES_USER", "partybot"),
		config.GetEnv("POSTGRES_PASSWORD", ""),
		config.GetEnv("PG_HOST", "localhost"),
		config.GetEnv("PG_PORT", "5432"),
		config.GetEnv("PG_DATABASE", "partybot"),
	)

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	log.Printf("Connected to database at %s:%s", config.GetEnv("PG_HOST", "localhost"), config.GetEnv("PG_PORT", "5432"))
}

// InsertMatchTx upserts a match row and its per-player results inside the
// given transaction.
func InsertMatchTx(ctx context.Context, tx pgx.Tx, rec MatchRecord) error {
	upsertMatch := `
		INSERT INTO matches (id, channel_id, guild_id, game, outcome, rounds, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, to_timestamp($7 / 1000.0), to_timestamp($8 / 1000.0))
		ON CONFLICT (id) DO UPDATE
		SET outcome = EXCLUDED.outcome, rounds = EXCLUDED.rounds, ended_at = EXCLUDED.ended_at
	`
	if _, err := tx.Exec(ctx, upsertMatch,
		rec.MatchID, rec.ChannelID, rec.GuildID, rec.Game, rec.Outcome, rec.Rounds,
		rec.StartedAt, rec.EndedAt,
	); err != nil {
		return err
	}

	for _, res := range rec.Results {
		q := `
			INSERT INTO match_results (match_id, user_id, display_name, score, won)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (match_id, user_id)
			DO UPDATE SET score = EXCLUDED.score, won = EXCLUDED.won
		`
		if _, err := tx.Exec(ctx, q, rec.MatchID, res.UserID, res.DisplayName, res.Score, res.Won); err != nil {
			return err
		}
	}
	return nil
}

// RecordMatch persists one match record in a single transaction. The engine
// normally journals through Redis instead; this direct path serves the
// historian and degraded single-process deployments.
func RecordMatch(ctx context.Context, rec MatchRecord) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return InsertMatchTx(ctx, tx, rec)
	})
	if err != nil {
		return fmt.Errorf("tx upsert match: %w", err)
	}
	return nil
}

// UserMatch is one row of a player's match history.
type UserMatch struct {
	MatchID string
	Game    string
	Outcome string
	Score   int
	Won     bool
	EndedAt time.Time
}

// QueryRecentByUser returns the user's most recent matches, newest first.
func QueryRecentByUser(ctx context.Context, userID string, limit int) ([]UserMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `
		SELECT m.id, m.game, m.outcome, r.score, r.won, m.ended_at
		FROM match_results r
		JOIN matches m ON m.id = r.match_id
		WHERE r.user_id = $1
		ORDER BY m.ended_at DESC
		LIMIT $2
	`
	rows, err := DB.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query match history: %w", err)
	}
	defer rows.Close()

	var out []UserMatch
	for rows.Next() {
		var m UserMatch
		if err := rows.Scan(&m.MatchID, &m.Game, &m.Outcome, &m.Score, &m.Won, &m.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
