package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// migration driver
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// insertBatch is the number of rows queued per pgx batch round trip.
const insertBatch = 200

// PostgresRepository stores comments in PostgreSQL via a pgx pool.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	dsn    string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewPostgresRepository opens a pool against dsn and pings it.
func NewPostgresRepository(ctx context.Context, dsn string, maxConns int, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &PostgresRepository{
		pool:   pool,
		dsn:    dsn,
		logger: logger.With("component", "postgres_repository"),
	}, nil
}

func (r *PostgresRepository) Name() string { return "postgres" }

func (r *PostgresRepository) Migrate(ctx context.Context) (uint, error) {
	url := "pgx5://" + strings.TrimPrefix(strings.TrimPrefix(r.dsn, "postgres://"), "postgresql://")
	return runMigrations("postgres", url)
}

func (r *PostgresRepository) AppendComments(ctx context.Context, comments []types.Comment) error {
	rows := make([][]any, len(comments))
	for i, c := range comments {
		rows[i] = []any{c.Stock, c.CommentTime, c.Comments, c.SentimentTag, c.Influence}
	}
	n, err := r.insert(ctx,
		`INSERT INTO comments (stock, comment_time, comments, sentiment_tag, influence)
		 VALUES ($1, $2, $3, $4, $5)`, rows)
	if err != nil {
		return fmt.Errorf("postgres insert comments: %w", err)
	}
	r.logger.Debug("comments stored", "count", n, "total", r.total(n))
	return nil
}

func (r *PostgresRepository) AppendSentiments(ctx context.Context, scored []types.ScoredComment) error {
	rows := make([][]any, len(scored))
	for i, s := range scored {
		rows[i] = []any{s.Stock, s.CommentTime, s.Comments, s.SentimentTag, s.Influence, s.Sentiment, s.Score}
	}
	if _, err := r.insert(ctx,
		`INSERT INTO comment_sentiments (stock, comment_time, comments, sentiment_tag, influence, sentiment, score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`, rows); err != nil {
		return fmt.Errorf("postgres insert sentiments: %w", err)
	}
	return nil
}

// insert queues rows in batches of insertBatch and returns the rows affected.
func (r *PostgresRepository) insert(ctx context.Context, query string, rows [][]any) (int, error) {
	total := 0
	for i := 0; i < len(rows); i += insertBatch {
		j := min(i+insertBatch, len(rows))

		b := &pgx.Batch{}
		for _, args := range rows[i:j] {
			b.Queue(query, args...)
		}
		br := r.pool.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, err
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *PostgresRepository) Comments(ctx context.Context) ([]types.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stock, comment_time, comments, sentiment_tag, influence FROM comments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres query comments: %w", err)
	}
	defer rows.Close()

	var out []types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.Stock, &c.CommentTime, &c.Comments, &c.SentimentTag, &c.Influence); err != nil {
			return nil, fmt.Errorf("postgres scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Sentiments(ctx context.Context) ([]types.ScoredComment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stock, comment_time, comments, sentiment_tag, influence, sentiment, score
		 FROM comment_sentiments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres query sentiments: %w", err)
	}
	defer rows.Close()

	var out []types.ScoredComment
	for rows.Next() {
		var s types.ScoredComment
		if err := rows.Scan(&s.Stock, &s.CommentTime, &s.Comments, &s.SentimentTag, &s.Influence, &s.Sentiment, &s.Score); err != nil {
			return nil, fmt.Errorf("postgres scan sentiment: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) total(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count += n
	return r.count
}

func (r *PostgresRepository) Close() error {
	r.logger.Info("postgres repository closing", "total_comments", r.count)
	r.pool.Close()
	return nil
}
