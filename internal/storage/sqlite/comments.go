package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zineproject/zine/internal/storage"
)

// CreateComment persists a reader comment.
func (s *Store) CreateComment(ctx context.Context, c storage.NewComment) (storage.Comment, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Comment{}, fmt.Errorf("storage is not configured")
	}
	if c.PostID <= 0 {
		return storage.Comment{}, fmt.Errorf("comment post id is required")
	}
	c.Author = strings.TrimSpace(c.Author)
	if c.Author == "" {
		return storage.Comment{}, fmt.Errorf("comment author is required")
	}
	if strings.TrimSpace(c.Body) == "" {
		return storage.Comment{}, fmt.Errorf("comment body is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO comments (post_id, author, body, html, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.PostID,
		c.Author,
		c.Body,
		c.HTML,
		toMillis(c.CreatedAt),
	)
	if err != nil {
		return storage.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Comment{}, fmt.Errorf("create comment id: %w", err)
	}

	return storage.Comment{
		ID:        id,
		PostID:    c.PostID,
		Author:    c.Author,
		Body:      c.Body,
		HTML:      c.HTML,
		CreatedAt: c.CreatedAt.Truncate(time.Millisecond),
	}, nil
}

// CommentsForPost lists a post's comments oldest first.
func (s *Store) CommentsForPost(ctx context.Context, postID int64) ([]storage.Comment, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, post_id, author, body, html, created_at
		 FROM comments
		 WHERE post_id = ?
		 ORDER BY created_at ASC, id ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []storage.Comment
	for rows.Next() {
		var (
			comment   storage.Comment
			createdAt int64
		)
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.Author, &comment.Body, &comment.HTML, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comment.CreatedAt = fromMillis(createdAt)
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// CountComments reports how many comments a post has.
func (s *Store) CountComments(ctx context.Context, postID int64) (int64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE post_id = ?", postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}
