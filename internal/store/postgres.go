package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/orbzodiac84/regpulse/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock implements it,
// which keeps the Postgres store testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used in tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	agency       TEXT NOT NULL,
	title        TEXT NOT NULL,
	link         TEXT NOT NULL UNIQUE,
	published_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	content      TEXT,
	category     TEXT,
	analysis     JSONB
);

CREATE INDEX IF NOT EXISTS idx_articles_agency ON articles(agency);
CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_agency_published ON articles(agency, published_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertArticle(ctx context.Context, article *model.Article) (bool, error) {
	var analysisJSON []byte
	if article.Analysis != nil {
		var err error
		analysisJSON, err = json.Marshal(article.Analysis)
		if err != nil {
			return false, eris.Wrap(err, "postgres: marshal analysis")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO articles (id, agency, title, link, published_at, created_at, content, category, analysis)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (link) DO NOTHING`,
		article.ID, article.Agency, article.Title, article.Link,
		article.PublishedAt.UTC(), article.CreatedAt.UTC(),
		article.Content, article.Category, analysisJSON,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert article %s", article.Link)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ExistsByLink(ctx context.Context, link string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM articles WHERE link = $1`, link,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: exists by link %s", link)
	}
	return true, nil
}

func (s *PostgresStore) LastPublishedAt(ctx context.Context, agency string) (*time.Time, error) {
	var last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(published_at) FROM articles WHERE agency = $1`, agency,
	).Scan(&last)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: last published for %s", agency)
	}
	if last == nil {
		return nil, nil
	}
	t := last.In(model.KST)
	return &t, nil
}

func (s *PostgresStore) UpdateAnalysis(ctx context.Context, articleID string, analysis *model.AnalysisResult) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE articles SET analysis = $1 WHERE id = $2`,
		analysisJSON, articleID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update analysis %s", articleID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("article not found: %s", articleID)
	}
	return nil
}

func (s *PostgresStore) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, agency, title, link, published_at, created_at, content, category, analysis
		 FROM articles WHERE id = $1`, id,
	)
	return scanPgArticle(row)
}

func (s *PostgresStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, error) {
	query := `SELECT id, agency, title, link, published_at, created_at, content, category, analysis
	          FROM articles WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Agency != "" {
		query += ` AND agency = ` + arg(filter.Agency)
	}
	if filter.Status != "" {
		query += ` AND analysis->>'status' = ` + arg(string(filter.Status))
	}
	if filter.MinImportance > 0 {
		query += ` AND (analysis->>'importance_score')::int >= ` + arg(filter.MinImportance)
	}
	query += ` ORDER BY published_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list articles")
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanPgArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, eris.Wrap(rows.Err(), "postgres: list articles iterate")
}

func (s *PostgresStore) AgencyStats(ctx context.Context) ([]AgencyStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT agency,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE analysis->>'status' = 'ANALYZED'),
		        MAX(published_at)
		 FROM articles GROUP BY agency ORDER BY agency`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: agency stats")
	}
	defer rows.Close()

	var stats []AgencyStat
	for rows.Next() {
		var st AgencyStat
		var last *time.Time
		if err := rows.Scan(&st.Agency, &st.Total, &st.Analyzed, &last); err != nil {
			return nil, eris.Wrap(err, "postgres: scan agency stat")
		}
		if last != nil {
			t := last.In(model.KST)
			st.LastPublishedAt = &t
		}
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: agency stats iterate")
}

func scanPgArticle(row pgx.Row) (*model.Article, error) {
	var a model.Article
	var content, category *string
	var analysisJSON []byte

	err := row.Scan(&a.ID, &a.Agency, &a.Title, &a.Link, &a.PublishedAt, &a.CreatedAt, &content, &category, &analysisJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("article not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan article")
	}

	if content != nil {
		a.Content = *content
	}
	if category != nil {
		a.Category = *category
	}
	a.PublishedAt = a.PublishedAt.In(model.KST)
	a.CreatedAt = a.CreatedAt.In(model.KST)
	if len(analysisJSON) > 0 {
		a.Analysis = &model.AnalysisResult{}
		if err := json.Unmarshal(analysisJSON, a.Analysis); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis")
		}
	}
	return &a, nil
}
