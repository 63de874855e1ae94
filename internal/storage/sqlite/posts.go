package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zineproject/zine/internal/storage"
)

const postColumns = `p.id, p.slug, p.title, p.body, p.html, p.parser, p.author_id, u.username, p.published_at`

// CreatePost persists a new entry.
func (s *Store) CreatePost(ctx context.Context, p storage.NewPost) (storage.Post, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Post{}, fmt.Errorf("storage is not configured")
	}
	p.Slug = strings.TrimSpace(p.Slug)
	if p.Slug == "" {
		return storage.Post{}, fmt.Errorf("post slug is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return storage.Post{}, fmt.Errorf("post title is required")
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO posts (slug, title, body, html, parser, author_id, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Slug,
		p.Title,
		p.Body,
		p.HTML,
		p.Parser,
		p.AuthorID,
		toMillis(p.PublishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Post{}, storage.ErrExists
		}
		return storage.Post{}, fmt.Errorf("create post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Post{}, fmt.Errorf("create post id: %w", err)
	}
	return s.postByID(ctx, id)
}

// PostBySlug loads an entry by its slug.
func (s *Store) PostBySlug(ctx context.Context, slug string) (storage.Post, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Post{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+postColumns+`
		 FROM posts p JOIN users u ON u.id = p.author_id
		 WHERE p.slug = ?`,
		strings.TrimSpace(slug),
	)
	return scanPost(row)
}

func (s *Store) postByID(ctx context.Context, id int64) (storage.Post, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+postColumns+`
		 FROM posts p JOIN users u ON u.id = p.author_id
		 WHERE p.id = ?`,
		id,
	)
	return scanPost(row)
}

// RecentPosts lists entries newest first.
func (s *Store) RecentPosts(ctx context.Context, limit, offset int) ([]storage.Post, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+postColumns+`
		 FROM posts p JOIN users u ON u.id = p.author_id
		 ORDER BY p.published_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []storage.Post
	for rows.Next() {
		var (
			post        storage.Post
			publishedAt int64
		)
		if err := rows.Scan(
			&post.ID, &post.Slug, &post.Title, &post.Body, &post.HTML,
			&post.Parser, &post.AuthorID, &post.AuthorName, &publishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		post.PublishedAt = fromMillis(publishedAt)
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// CountPosts reports how many entries exist.
func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func scanPost(row *sql.Row) (storage.Post, error) {
	var (
		post        storage.Post
		publishedAt int64
	)
	if err := row.Scan(
		&post.ID, &post.Slug, &post.Title, &post.Body, &post.HTML,
		&post.Parser, &post.AuthorID, &post.AuthorName, &publishedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return storage.Post{}, storage.ErrNotFound
		}
		return storage.Post{}, fmt.Errorf("scan post: %w", err)
	}
	post.PublishedAt = fromMillis(publishedAt)
	return post, nil
}
