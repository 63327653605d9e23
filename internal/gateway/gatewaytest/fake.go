// Package gatewaytest - подменный gateway.Gateway для тестов.
package gatewaytest

import (
	"context"
	"errors"
	"sync"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/gateway"
)

var _ gateway.Gateway = (*Fake)(nil)

// ErrNotStubbed возвращается методом, для которого не задана функция.
var ErrNotStubbed = errors.New("gatewaytest: call not stubbed")

// Fake реализует gateway.Gateway через функции-заглушки и считает вызовы.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	ListPostsFn         func(ctx context.Context, skip, limit int) (domain.PostPage, error)
	ListPostsByTagFn    func(ctx context.Context, tag string) (domain.PostPage, error)
	SearchPostsFn       func(ctx context.Context, query string) (domain.PostPage, error)
	ListTagsFn          func(ctx context.Context) ([]domain.Tag, error)
	ListUserSummariesFn func(ctx context.Context) ([]domain.User, error)
	GetUserFn           func(ctx context.Context, id int) (domain.User, error)
	CreatePostFn        func(ctx context.Context, post domain.NewPost) (domain.Post, error)
	UpdatePostFn        func(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error)
	DeletePostFn        func(ctx context.Context, id int) error
	ListCommentsFn      func(ctx context.Context, postID int) ([]domain.Comment, error)
	CreateCommentFn     func(ctx context.Context, comment domain.NewComment) (domain.Comment, error)
	UpdateCommentFn     func(ctx context.Context, id int, body string) (domain.Comment, error)
	DeleteCommentFn     func(ctx context.Context, id int) error
	LikeCommentFn       func(ctx context.Context, id int, likes int) (domain.Comment, error)
}

// Calls возвращает число вызовов метода op.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *Fake) ListPosts(ctx context.Context, skip, limit int) (domain.PostPage, error) {
	f.record("ListPosts")
	if f.ListPostsFn == nil {
		return domain.PostPage{}, ErrNotStubbed
	}
	return f.ListPostsFn(ctx, skip, limit)
}

func (f *Fake) ListPostsByTag(ctx context.Context, tag string) (domain.PostPage, error) {
	f.record("ListPostsByTag")
	if f.ListPostsByTagFn == nil {
		return domain.PostPage{}, ErrNotStubbed
	}
	return f.ListPostsByTagFn(ctx, tag)
}

func (f *Fake) SearchPosts(ctx context.Context, query string) (domain.PostPage, error) {
	f.record("SearchPosts")
	if f.SearchPostsFn == nil {
		return domain.PostPage{}, ErrNotStubbed
	}
	return f.SearchPostsFn(ctx, query)
}

func (f *Fake) ListTags(ctx context.Context) ([]domain.Tag, error) {
	f.record("ListTags")
	if f.ListTagsFn == nil {
		return nil, ErrNotStubbed
	}
	return f.ListTagsFn(ctx)
}

func (f *Fake) ListUserSummaries(ctx context.Context) ([]domain.User, error) {
	f.record("ListUserSummaries")
	if f.ListUserSummariesFn == nil {
		return nil, ErrNotStubbed
	}
	return f.ListUserSummariesFn(ctx)
}

func (f *Fake) GetUser(ctx context.Context, id int) (domain.User, error) {
	f.record("GetUser")
	if f.GetUserFn == nil {
		return domain.User{}, ErrNotStubbed
	}
	return f.GetUserFn(ctx, id)
}

func (f *Fake) CreatePost(ctx context.Context, post domain.NewPost) (domain.Post, error) {
	f.record("CreatePost")
	if f.CreatePostFn == nil {
		return domain.Post{}, ErrNotStubbed
	}
	return f.CreatePostFn(ctx, post)
}

func (f *Fake) UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
	f.record("UpdatePost")
	if f.UpdatePostFn == nil {
		return domain.Post{}, ErrNotStubbed
	}
	return f.UpdatePostFn(ctx, id, patch)
}

func (f *Fake) DeletePost(ctx context.Context, id int) error {
	f.record("DeletePost")
	if f.DeletePostFn == nil {
		return ErrNotStubbed
	}
	return f.DeletePostFn(ctx, id)
}

func (f *Fake) ListComments(ctx context.Context, postID int) ([]domain.Comment, error) {
	f.record("ListComments")
	if f.ListCommentsFn == nil {
		return nil, ErrNotStubbed
	}
	return f.ListCommentsFn(ctx, postID)
}

func (f *Fake) CreateComment(ctx context.Context, comment domain.NewComment) (domain.Comment, error) {
	f.record("CreateComment")
	if f.CreateCommentFn == nil {
		return domain.Comment{}, ErrNotStubbed
	}
	return f.CreateCommentFn(ctx, comment)
}

func (f *Fake) UpdateComment(ctx context.Context, id int, body string) (domain.Comment, error) {
	f.record("UpdateComment")
	if f.UpdateCommentFn == nil {
		return domain.Comment{}, ErrNotStubbed
	}
	return f.UpdateCommentFn(ctx, id, body)
}

func (f *Fake) DeleteComment(ctx context.Context, id int) error {
	f.record("DeleteComment")
	if f.DeleteCommentFn == nil {
		return ErrNotStubbed
	}
	return f.DeleteCommentFn(ctx, id)
}

func (f *Fake) LikeComment(ctx context.Context, id int, likes int) (domain.Comment, error) {
	f.record("LikeComment")
	if f.LikeCommentFn == nil {
		return domain.Comment{}, ErrNotStubbed
	}
	return f.LikeCommentFn(ctx, id, likes)
}
