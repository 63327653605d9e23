package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/posts-manager/internal/domain"
)

// ErrNotFound возвращается, если запись отсутствует.
var ErrNotFound = errors.New("not found")

// Storage определяет контракт для хранилищ REST API.
type Storage interface {
	GetPosts(ctx context.Context, limit, offset int) ([]domain.Post, int, error)
	GetPostsByTag(ctx context.Context, tag string) ([]domain.Post, error)
	SearchPosts(ctx context.Context, query string) ([]domain.Post, error)
	GetTags(ctx context.Context) ([]string, error)
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (*domain.Post, error)
	DeletePost(ctx context.Context, id int) (*domain.Post, error)

	GetUsers(ctx context.Context) ([]domain.User, error)
	GetUserByID(ctx context.Context, id int) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	GetCommentsByPostID(ctx context.Context, postID int) ([]domain.Comment, error)
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	UpdateCommentBody(ctx context.Context, id int, body string) (*domain.Comment, error)
	UpdateCommentLikes(ctx context.Context, id int, likes int) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id int) (*domain.Comment, error)
}
