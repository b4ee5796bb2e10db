package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // sqlite:// migration driver
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// SQLiteRepository stores comments in a local SQLite file. Dates are kept as
// 2006-01-02 text.
type SQLiteRepository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at path.
func NewSQLiteRepository(path string, logger *slog.Logger) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_repository"),
	}, nil
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

func (r *SQLiteRepository) Migrate(ctx context.Context) (uint, error) {
	return runMigrations("sqlite", "sqlite://"+r.path)
}

func (r *SQLiteRepository) AppendComments(ctx context.Context, comments []types.Comment) error {
	return r.inTx(ctx,
		`INSERT INTO comments (stock, comment_time, comments, sentiment_tag, influence) VALUES (?, ?, ?, ?, ?)`,
		len(comments),
		func(stmt *sql.Stmt, i int) error {
			c := comments[i]
			_, err := stmt.ExecContext(ctx, c.Stock, c.CommentTime.Format(types.DateLayout), c.Comments, c.SentimentTag, c.Influence)
			return err
		})
}

func (r *SQLiteRepository) AppendSentiments(ctx context.Context, scored []types.ScoredComment) error {
	return r.inTx(ctx,
		`INSERT INTO comment_sentiments (stock, comment_time, comments, sentiment_tag, influence, sentiment, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(scored),
		func(stmt *sql.Stmt, i int) error {
			s := scored[i]
			_, err := stmt.ExecContext(ctx, s.Stock, s.CommentTime.Format(types.DateLayout), s.Comments, s.SentimentTag, s.Influence, s.Sentiment, s.Score)
			return err
		})
}

// inTx prepares query once and executes it n times in a single transaction.
func (r *SQLiteRepository) inTx(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	if n == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	r.logger.Debug("rows stored", "count", n)
	return nil
}

func (r *SQLiteRepository) Comments(ctx context.Context) ([]types.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stock, comment_time, comments, sentiment_tag, influence FROM comments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query comments: %w", err)
	}
	defer rows.Close()

	var out []types.Comment
	for rows.Next() {
		var (
			c    types.Comment
			date string
			tag  sql.NullString
		)
		if err := rows.Scan(&c.Stock, &date, &c.Comments, &tag, &c.Influence); err != nil {
			return nil, fmt.Errorf("sqlite: scan comment: %w", err)
		}
		if c.CommentTime, err = time.Parse(types.DateLayout, date); err != nil {
			return nil, fmt.Errorf("sqlite: comment_time %q: %w", date, err)
		}
		if tag.Valid {
			c.SentimentTag = types.StringPtr(tag.String)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Sentiments(ctx context.Context) ([]types.ScoredComment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stock, comment_time, comments, sentiment_tag, influence, sentiment, score
		 FROM comment_sentiments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query sentiments: %w", err)
	}
	defer rows.Close()

	var out []types.ScoredComment
	for rows.Next() {
		var (
			s    types.ScoredComment
			date string
			tag  sql.NullString
		)
		if err := rows.Scan(&s.Stock, &date, &s.Comments, &tag, &s.Influence, &s.Sentiment, &s.Score); err != nil {
			return nil, fmt.Errorf("sqlite: scan sentiment: %w", err)
		}
		if s.CommentTime, err = time.Parse(types.DateLayout, date); err != nil {
			return nil, fmt.Errorf("sqlite: comment_time %q: %w", date, err)
		}
		if tag.Valid {
			s.SentimentTag = types.StringPtr(tag.String)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
