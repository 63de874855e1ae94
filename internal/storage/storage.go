// Package storage defines the persistence surface of a blog instance.
// Implementations live in subpackages; the application depends only on
// these interfaces.
package storage

import (
	"context"
	"time"

	"github.com/zineproject/zine/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrExists indicates a unique field (username, slug) is already taken.
var ErrExists = errors.New(errors.CodeInvalidInput, "record already exists")

// ErrBadCredentials indicates a failed username/password check.
var ErrBadCredentials = errors.New(errors.CodeForbidden, "invalid username or password")

// User is a blog account. The password hash never leaves the store.
type User struct {
	ID        int64
	Username  string
	Email     string
	RealName  string
	IsAdmin   bool
	CreatedAt time.Time
}

// NewUser carries the fields for creating an account.
type NewUser struct {
	Username string
	Email    string
	RealName string
	Password string
	IsAdmin  bool
}

// Post is one published entry.
type Post struct {
	ID          int64
	Slug        string
	Title       string
	Body        string // raw author input
	HTML        string // rendered through the post's parser
	Parser      string
	AuthorID    int64
	AuthorName  string
	PublishedAt time.Time
}

// NewPost carries the fields for creating an entry.
type NewPost struct {
	Slug        string
	Title       string
	Body        string
	HTML        string
	Parser      string
	AuthorID    int64
	PublishedAt time.Time
}

// Comment is one reader comment on a post.
type Comment struct {
	ID        int64
	PostID    int64
	Author    string
	Body      string
	HTML      string
	CreatedAt time.Time
}

// NewComment carries the fields for creating a comment.
type NewComment struct {
	PostID    int64
	Author    string
	Body      string
	HTML      string
	CreatedAt time.Time
}

// UserStore persists blog accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u NewUser) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	// CheckCredentials verifies a username/password pair and returns the
	// matching user, or ErrBadCredentials.
	CheckCredentials(ctx context.Context, username, password string) (User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// PostStore persists blog entries.
type PostStore interface {
	CreatePost(ctx context.Context, p NewPost) (Post, error)
	PostBySlug(ctx context.Context, slug string) (Post, error)
	// RecentPosts lists published posts newest first.
	RecentPosts(ctx context.Context, limit, offset int) ([]Post, error)
	CountPosts(ctx context.Context) (int64, error)
}

// CommentStore persists reader comments.
type CommentStore interface {
	CreateComment(ctx context.Context, c NewComment) (Comment, error)
	// CommentsForPost lists a post's comments oldest first.
	CommentsForPost(ctx context.Context, postID int64) ([]Comment, error)
	CountComments(ctx context.Context, postID int64) (int64, error)
}

// Store is the full persistence surface of one instance.
type Store interface {
	UserStore
	PostStore
	CommentStore
	Close() error
}
