package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"climatecentre/internal/content/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

// PostgresStore persists the content tables in PostgreSQL. Schema lives
// in migrations/.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func translateExecErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireRow maps "0 rows affected" to ErrNotFound for updates and
// deletes against a single primary key.
func requireRow(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translateExecErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateArticle(ctx context.Context, article models.Article) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO climate_content (id, title, category, content, source_url, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
		article.ID.String(), article.Title, article.Category, article.Content,
		article.SourceURL, article.CreatedAt, article.LastUpdated,
	)
	return translateExecErr("create article", err)
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, article models.Article) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE climate_content
		 SET title = $2, category = $3, content = $4, source_url = NULLIF($5, ''), last_updated = $6
		 WHERE id = $1`,
		article.ID.String(), article.Title, article.Category, article.Content,
		article.SourceURL, article.LastUpdated,
	)
	return requireRow("update article", tag, err)
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, recordID id.RecordID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM climate_content WHERE id = $1`, recordID.String())
	return requireRow("delete article", tag, err)
}

func (s *PostgresStore) GetArticle(ctx context.Context, recordID id.RecordID) (models.Article, error) {
	return scanArticle(s.pool.QueryRow(ctx,
		`SELECT id, title, category, content, COALESCE(source_url, ''), created_at, last_updated
		 FROM climate_content WHERE id = $1`,
		recordID.String(),
	))
}

func (s *PostgresStore) ListArticles(ctx context.Context, category string) ([]models.Article, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, category, content, COALESCE(source_url, ''), created_at, last_updated
		 FROM climate_content
		 WHERE $1 = '' OR category = $1
		 ORDER BY created_at DESC`,
		category,
	)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, article)
	}
	return out, rows.Err()
}

func scanArticle(row pgx.Row) (models.Article, error) {
	var (
		article models.Article
		rawID   string
	)
	err := row.Scan(&rawID, &article.Title, &article.Category, &article.Content,
		&article.SourceURL, &article.CreatedAt, &article.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Article{}, sentinel.ErrNotFound
		}
		return models.Article{}, fmt.Errorf("scan article: %w", err)
	}
	article.ID, err = id.ParseRecordID(rawID)
	if err != nil {
		return models.Article{}, fmt.Errorf("parse stored article id: %w", err)
	}
	return article, nil
}

func (s *PostgresStore) CreateBlogPost(ctx context.Context, post models.BlogPost) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blog_posts (id, title, author, category, content, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		post.ID.String(), post.Title, post.Author, post.Category, post.Content,
		post.ImageURL, post.CreatedAt, post.UpdatedAt,
	)
	return translateExecErr("create blog post", err)
}

func (s *PostgresStore) UpdateBlogPost(ctx context.Context, post models.BlogPost) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE blog_posts
		 SET title = $2, author = $3, category = $4, content = $5, image_url = NULLIF($6, ''), updated_at = $7
		 WHERE id = $1`,
		post.ID.String(), post.Title, post.Author, post.Category, post.Content,
		post.ImageURL, post.UpdatedAt,
	)
	return requireRow("update blog post", tag, err)
}

func (s *PostgresStore) DeleteBlogPost(ctx context.Context, recordID id.RecordID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, recordID.String())
	return requireRow("delete blog post", tag, err)
}

func (s *PostgresStore) GetBlogPost(ctx context.Context, recordID id.RecordID) (models.BlogPost, error) {
	return scanBlogPost(s.pool.QueryRow(ctx,
		`SELECT id, title, author, category, content, COALESCE(image_url, ''), created_at, updated_at
		 FROM blog_posts WHERE id = $1`,
		recordID.String(),
	))
}

func (s *PostgresStore) ListBlogPosts(ctx context.Context) ([]models.BlogPost, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, author, category, content, COALESCE(image_url, ''), created_at, updated_at
		 FROM blog_posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list blog posts: %w", err)
	}
	defer rows.Close()

	var out []models.BlogPost
	for rows.Next() {
		post, err := scanBlogPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, post)
	}
	return out, rows.Err()
}

func scanBlogPost(row pgx.Row) (models.BlogPost, error) {
	var (
		post  models.BlogPost
		rawID string
	)
	err := row.Scan(&rawID, &post.Title, &post.Author, &post.Category, &post.Content,
		&post.ImageURL, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BlogPost{}, sentinel.ErrNotFound
		}
		return models.BlogPost{}, fmt.Errorf("scan blog post: %w", err)
	}
	post.ID, err = id.ParseRecordID(rawID)
	if err != nil {
		return models.BlogPost{}, fmt.Errorf("parse stored blog post id: %w", err)
	}
	return post, nil
}

func (s *PostgresStore) CreateGalleryItem(ctx context.Context, item models.GalleryItem) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gallery (id, title, description, image_url, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5)`,
		item.ID.String(), item.Title, item.Description, item.ImageURL, item.CreatedAt,
	)
	return translateExecErr("create gallery item", err)
}

func (s *PostgresStore) UpdateGalleryItem(ctx context.Context, item models.GalleryItem) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE gallery SET title = $2, description = NULLIF($3, ''), image_url = $4 WHERE id = $1`,
		item.ID.String(), item.Title, item.Description, item.ImageURL,
	)
	return requireRow("update gallery item", tag, err)
}

func (s *PostgresStore) DeleteGalleryItem(ctx context.Context, recordID id.RecordID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM gallery WHERE id = $1`, recordID.String())
	return requireRow("delete gallery item", tag, err)
}

func (s *PostgresStore) ListGalleryItems(ctx context.Context) ([]models.GalleryItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, COALESCE(description, ''), image_url, created_at
		 FROM gallery ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list gallery items: %w", err)
	}
	defer rows.Close()

	var out []models.GalleryItem
	for rows.Next() {
		var (
			item  models.GalleryItem
			rawID string
		)
		if err := rows.Scan(&rawID, &item.Title, &item.Description, &item.ImageURL, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gallery item: %w", err)
		}
		item.ID, err = id.ParseRecordID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse stored gallery item id: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateDataSource(ctx context.Context, source models.DataSource) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO data_sources (id, name, category, url, api_endpoint, description, last_fetched, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)`,
		source.ID.String(), source.Name, source.Category, source.URL,
		source.APIEndpoint, source.Description, source.LastFetched, source.CreatedAt,
	)
	return translateExecErr("create data source", err)
}

func (s *PostgresStore) UpdateDataSource(ctx context.Context, source models.DataSource) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE data_sources
		 SET name = $2, category = $3, url = $4, api_endpoint = NULLIF($5, ''),
		     description = NULLIF($6, '')
		 WHERE id = $1`,
		source.ID.String(), source.Name, source.Category, source.URL,
		source.APIEndpoint, source.Description,
	)
	return requireRow("update data source", tag, err)
}

func (s *PostgresStore) DeleteDataSource(ctx context.Context, recordID id.RecordID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM data_sources WHERE id = $1`, recordID.String())
	return requireRow("delete data source", tag, err)
}

func (s *PostgresStore) ListDataSources(ctx context.Context) ([]models.DataSource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, url, COALESCE(api_endpoint, ''), COALESCE(description, ''),
		        last_fetched, created_at
		 FROM data_sources ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	var out []models.DataSource
	for rows.Next() {
		var (
			source models.DataSource
			rawID  string
		)
		err := rows.Scan(&rawID, &source.Name, &source.Category, &source.URL,
			&source.APIEndpoint, &source.Description, &source.LastFetched, &source.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan data source: %w", err)
		}
		source.ID, err = id.ParseRecordID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse stored data source id: %w", err)
		}
		out = append(out, source)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutAdminUser(ctx context.Context, admin models.AdminUser) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admin_users (id, email, is_super_admin, created_at)
		 VALUES ($1, lower($2), $3, $4)
		 ON CONFLICT (id) DO UPDATE SET email = lower($2), is_super_admin = $3`,
		admin.ID.String(), admin.Email, admin.IsSuperAdmin, admin.CreatedAt,
	)
	return translateExecErr("put admin user", err)
}

func (s *PostgresStore) ListAdminUsers(ctx context.Context) ([]models.AdminUser, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, is_super_admin, created_at FROM admin_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	var out []models.AdminUser
	for rows.Next() {
		var (
			admin models.AdminUser
			rawID string
		)
		if err := rows.Scan(&rawID, &admin.Email, &admin.IsSuperAdmin, &admin.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		admin.ID, err = id.ParseUserID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse stored admin user id: %w", err)
		}
		out = append(out, admin)
	}
	return out, rows.Err()
}

// IsAdminUser mirrors the is_admin_user SQL function shipped with the
// schema. Both stay in sync with migrations/.
func (s *PostgresStore) IsAdminUser(ctx context.Context, userID id.UserID) (bool, error) {
	var isAdmin bool
	err := s.pool.QueryRow(ctx, `SELECT is_admin_user($1)`, userID.String()).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("is admin user: %w", err)
	}
	return isAdmin, nil
}
