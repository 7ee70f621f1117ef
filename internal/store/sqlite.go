package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/orbzodiac84/regpulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// The UNIQUE constraint on link is the backstop for deduplication: even if
// two cycles race, only one row per release can exist.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	agency       TEXT NOT NULL,
	title        TEXT NOT NULL,
	link         TEXT NOT NULL UNIQUE,
	published_at DATETIME NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	content      TEXT,
	category     TEXT,
	analysis     TEXT
);

CREATE INDEX IF NOT EXISTS idx_articles_agency ON articles(agency);
CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_agency_published ON articles(agency, published_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertArticle(ctx context.Context, article *model.Article) (bool, error) {
	analysisJSON, err := marshalAnalysis(article.Analysis)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal analysis")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (id, agency, title, link, published_at, created_at, content, category, analysis)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(link) DO NOTHING`,
		article.ID, article.Agency, article.Title, article.Link,
		article.PublishedAt.UTC(), article.CreatedAt.UTC(),
		article.Content, article.Category, analysisJSON,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert article %s", article.Link)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ExistsByLink(ctx context.Context, link string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM articles WHERE link = ?`, link,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: exists by link %s", link)
	}
	return true, nil
}

func (s *SQLiteStore) LastPublishedAt(ctx context.Context, agency string) (*time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(published_at) FROM articles WHERE agency = ?`, agency,
	).Scan(&last)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: last published for %s", agency)
	}
	if !last.Valid {
		return nil, nil
	}
	t := last.Time.In(model.KST)
	return &t, nil
}

func (s *SQLiteStore) UpdateAnalysis(ctx context.Context, articleID string, analysis *model.AnalysisResult) error {
	analysisJSON, err := marshalAnalysis(analysis)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET analysis = ? WHERE id = ?`,
		analysisJSON, articleID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update analysis %s", articleID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("article not found: %s", articleID)
	}
	return nil
}

func (s *SQLiteStore) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agency, title, link, published_at, created_at, content, category, analysis
		 FROM articles WHERE id = ?`, id,
	)
	return scanArticle(row)
}

func (s *SQLiteStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, error) {
	query := `SELECT id, agency, title, link, published_at, created_at, content, category, analysis
	          FROM articles WHERE 1=1`
	var args []any

	if filter.Agency != "" {
		query += ` AND agency = ?`
		args = append(args, filter.Agency)
	}
	if filter.Status != "" {
		query += ` AND json_extract(analysis, '$.status') = ?`
		args = append(args, string(filter.Status))
	}
	if filter.MinImportance > 0 {
		query += ` AND json_extract(analysis, '$.importance_score') >= ?`
		args = append(args, filter.MinImportance)
	}
	query += ` ORDER BY published_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list articles")
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, eris.Wrap(rows.Err(), "sqlite: list articles iterate")
}

func (s *SQLiteStore) AgencyStats(ctx context.Context) ([]AgencyStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agency,
		        COUNT(*),
		        SUM(CASE WHEN json_extract(analysis, '$.status') = 'ANALYZED' THEN 1 ELSE 0 END),
		        MAX(published_at)
		 FROM articles GROUP BY agency ORDER BY agency`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: agency stats")
	}
	defer rows.Close()

	var stats []AgencyStat
	for rows.Next() {
		var st AgencyStat
		var last sql.NullTime
		if err := rows.Scan(&st.Agency, &st.Total, &st.Analyzed, &last); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan agency stat")
		}
		if last.Valid {
			t := last.Time.In(model.KST)
			st.LastPublishedAt = &t
		}
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: agency stats iterate")
}

// helpers

func marshalAnalysis(analysis *model.AnalysisResult) (sql.NullString, error) {
	if analysis == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(analysis)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArticle(row scannable) (*model.Article, error) {
	var a model.Article
	var content, category, analysisJSON sql.NullString

	err := row.Scan(&a.ID, &a.Agency, &a.Title, &a.Link, &a.PublishedAt, &a.CreatedAt, &content, &category, &analysisJSON)
	if err == sql.ErrNoRows {
		return nil, eris.New("article not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan article")
	}

	a.Content = content.String
	a.Category = category.String
	a.PublishedAt = a.PublishedAt.In(model.KST)
	a.CreatedAt = a.CreatedAt.In(model.KST)
	if analysisJSON.Valid {
		a.Analysis = &model.AnalysisResult{}
		if err := json.Unmarshal([]byte(analysisJSON.String), a.Analysis); err != nil {
			return nil, eris.Wrap(err, "unmarshal analysis")
		}
	}
	return &a, nil
}
