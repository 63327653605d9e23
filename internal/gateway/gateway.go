package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/posts-manager/internal/domain"
)

// Gateway определяет контракт удаленного REST API.
// Каждый вызов - одна попытка без повторов.
type Gateway interface {
	ListPosts(ctx context.Context, skip, limit int) (domain.PostPage, error)
	ListPostsByTag(ctx context.Context, tag string) (domain.PostPage, error)
	SearchPosts(ctx context.Context, query string) (domain.PostPage, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)

	ListUserSummaries(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int) (domain.User, error)

	CreatePost(ctx context.Context, post domain.NewPost) (domain.Post, error)
	UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error)
	DeletePost(ctx context.Context, id int) error

	ListComments(ctx context.Context, postID int) ([]domain.Comment, error)
	CreateComment(ctx context.Context, comment domain.NewComment) (domain.Comment, error)
	UpdateComment(ctx context.Context, id int, body string) (domain.Comment, error)
	DeleteComment(ctx context.Context, id int) error
	LikeComment(ctx context.Context, id int, likes int) (domain.Comment, error)
}

// ErrorKind - категория сбоя удаленного вызова.
type ErrorKind int

const (
	NetworkFailure ErrorKind = iota + 1
	HTTPStatus
	DecodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case HTTPStatus:
		return "http status"
	case DecodeFailure:
		return "decode failure"
	default:
		return "unknown"
	}
}

// GatewayError - типизированная ошибка удаленного вызова.
type GatewayError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Kind == HTTPStatus {
		return fmt.Sprintf("%s: %s %d", e.Op, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsNotFound сообщает, что сервер ответил 404.
func IsNotFound(err error) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr) && gerr.Kind == HTTPStatus && gerr.StatusCode == 404
}
