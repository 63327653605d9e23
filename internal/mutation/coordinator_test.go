package mutation

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/posts-manager/internal/cache"
	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/gateway"
	"github.com/UkralStul/posts-manager/internal/gateway/gatewaytest"
)

var errOffline = &gateway.GatewayError{Kind: gateway.NetworkFailure, Op: "test", Err: errors.New("offline")}

func newTestCoordinator(t *testing.T) (*Coordinator, *cache.Store, *gatewaytest.Fake) {
	t.Helper()
	store := cache.New()
	fake := &gatewaytest.Fake{}
	return New(fake, store), store, fake
}

func seedPage(store *cache.Store, key cache.Key, ids ...int) {
	posts := make([]domain.Post, len(ids))
	for i, id := range ids {
		posts[i] = domain.Post{ID: id, Title: "title", Body: "body", UserID: 1}
	}
	store.Set(key, domain.PostPage{Posts: posts, Total: len(ids)})
}

func TestCreatePost_OptimisticThenConfirmed(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	page := cache.PostsKey(0, 10)
	seedPage(store, page, 1, 2)
	seedPage(store, cache.SearchKey("hello"), 2)
	seedPage(store, cache.PostsByTagKey("tech"), 1)

	fake.CreatePostFn = func(ctx context.Context, post domain.NewPost) (domain.Post, error) {
		// до ответа сервера пост уже в голове страницы
		_, posts, _ := store.PostList(page)
		require.Len(t, posts, 3)
		assert.Equal(t, "Hello", posts[0].Title)
		assert.Less(t, posts[0].ID, 0)
		assert.Len(t, c.Pending(), 1)
		return domain.Post{ID: 101, Title: post.Title, Body: post.Body, UserID: post.UserID}, nil
	}

	created, err := c.CreatePost(context.Background(), domain.NewPost{Title: "Hello", Body: "World", UserID: 1}, page)
	require.NoError(t, err)
	assert.Equal(t, 101, created.ID)
	assert.Empty(t, c.Pending())

	e, posts, _ := store.PostList(page)
	assert.Equal(t, 101, posts[0].ID)
	assert.True(t, e.Stale)
	for _, k := range []cache.Key{cache.SearchKey("hello"), cache.PostsByTagKey("tech")} {
		e, _ := store.Get(k)
		assert.True(t, e.Stale, k.String())
	}
}

func TestCreatePost_FailureRollsBack(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	page := cache.PostsKey(0, 10)
	seedPage(store, page, 1, 2)
	fake.CreatePostFn = func(ctx context.Context, post domain.NewPost) (domain.Post, error) {
		return domain.Post{}, errOffline
	}

	_, err := c.CreatePost(context.Background(), domain.NewPost{Title: "Hello", Body: "World", UserID: 1}, page)
	require.ErrorIs(t, err, errOffline)

	e, _ := store.Get(page)
	assert.Equal(t, cache.PostList{IDs: []int{1, 2}, Total: 2}, e.Data)
	assert.False(t, e.Stale)
}

func TestValidation_NoNetworkCall(t *testing.T) {
	c, _, fake := newTestCoordinator(t)
	ctx := context.Background()
	empty := " "

	var verr *ValidationError
	_, err := c.CreatePost(ctx, domain.NewPost{Title: "", Body: "World", UserID: 1}, cache.PostsKey(0, 10))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	_, err = c.UpdatePost(ctx, 1, domain.PostPatch{Body: &empty})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "body", verr.Field)

	_, err = c.CreateComment(ctx, domain.NewComment{Body: "  ", PostID: 1, UserID: 1})
	require.ErrorAs(t, err, &verr)

	_, err = c.UpdateComment(ctx, 1, 1, "")
	require.ErrorAs(t, err, &verr)

	assert.Zero(t, fake.Calls("CreatePost"))
	assert.Zero(t, fake.Calls("UpdatePost"))
	assert.Zero(t, fake.Calls("CreateComment"))
	assert.Zero(t, fake.Calls("UpdateComment"))
}

func TestUpdatePost_FailureRestoresPrevious(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedPage(store, cache.PostsKey(0, 10), 1)
	fake.UpdatePostFn = func(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
		p, _ := store.Post(1)
		assert.Equal(t, "new title", p.Title)
		return domain.Post{}, &gateway.GatewayError{Kind: gateway.HTTPStatus, Op: "updatePost", StatusCode: http.StatusInternalServerError}
	}

	title := "new title"
	_, err := c.UpdatePost(context.Background(), 1, domain.PostPatch{Title: &title})
	require.Error(t, err)

	p, _ := store.Post(1)
	assert.Equal(t, "title", p.Title)
}

func TestDeletePost_TwiceIsHarmless(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedPage(store, cache.PostsKey(0, 10), 1, 2)
	deleted := map[int]bool{}
	fake.DeletePostFn = func(ctx context.Context, id int) error {
		if deleted[id] {
			return &gateway.GatewayError{Kind: gateway.HTTPStatus, Op: "deletePost", StatusCode: http.StatusNotFound}
		}
		deleted[id] = true
		return nil
	}

	require.NoError(t, c.DeletePost(context.Background(), 2))
	require.NoError(t, c.DeletePost(context.Background(), 2))
	assert.Equal(t, 2, fake.Calls("DeletePost"))

	e, _ := store.Get(cache.PostsKey(0, 10))
	assert.Equal(t, []int{1}, e.Data.(cache.PostList).IDs)
}

func TestDeletePost_FailureRestores(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedPage(store, cache.PostsKey(0, 10), 1, 2, 3)
	fake.DeletePostFn = func(ctx context.Context, id int) error { return errOffline }

	err := c.DeletePost(context.Background(), 2)
	require.ErrorIs(t, err, errOffline)

	e, _ := store.Get(cache.PostsKey(0, 10))
	assert.Equal(t, cache.PostList{IDs: []int{1, 2, 3}, Total: 3}, e.Data)
}

func seedComments(store *cache.Store, postID int, comments ...domain.Comment) {
	store.Set(cache.CommentsKey(postID), comments)
}

func TestLikeComment_OptimisticAndRollback(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedComments(store, 7, domain.Comment{ID: 1, PostID: 7, Likes: 3})

	fake.LikeCommentFn = func(ctx context.Context, id, likes int) (domain.Comment, error) {
		assert.Equal(t, 4, likes)
		cm, _ := store.Comment(7, 1)
		assert.Equal(t, 4, cm.Likes)
		return domain.Comment{}, errOffline
	}

	_, err := c.LikeComment(context.Background(), 7, 1)
	require.ErrorIs(t, err, errOffline)

	cm, _ := store.Comment(7, 1)
	assert.Equal(t, 3, cm.Likes)
}

func TestLikeComment_ConcurrentLikesCompose(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedComments(store, 7, domain.Comment{ID: 1, PostID: 7, Likes: 3, User: domain.CommentUser{Username: "emilys"}})

	first := make(chan struct{})
	releaseFirst := make(chan struct{})
	var sent []int
	fake.LikeCommentFn = func(ctx context.Context, id, likes int) (domain.Comment, error) {
		sent = append(sent, likes)
		if likes == 4 {
			close(first)
			<-releaseFirst
		}
		return domain.Comment{ID: id, PostID: 7, Likes: likes}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.LikeComment(context.Background(), 7, 1)
		done <- err
	}()
	<-first

	// второй клик считается от оптимистичного значения первого
	second, err := c.LikeComment(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Likes)

	close(releaseFirst)
	require.NoError(t, <-done)

	cm, _ := store.Comment(7, 1)
	assert.Equal(t, 5, cm.Likes, "late confirmation of the first like must not lower the counter")
	assert.Equal(t, "emilys", cm.User.Username)
	assert.Equal(t, []int{4, 5}, sent)
}

func TestLikeComment_NotCached(t *testing.T) {
	c, _, fake := newTestCoordinator(t)

	_, err := c.LikeComment(context.Background(), 7, 1)
	require.ErrorIs(t, err, ErrNotCached)
	assert.Zero(t, fake.Calls("LikeComment"))
}

func TestDeleteComment_RemovesWithoutRefetch(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedComments(store, 7,
		domain.Comment{ID: 54, PostID: 7, Body: "a"},
		domain.Comment{ID: 55, PostID: 7, Body: "b"},
	)
	fake.DeleteCommentFn = func(ctx context.Context, id int) error { return nil }

	require.NoError(t, c.DeleteComment(context.Background(), 7, 55))

	e, ok := store.Get(cache.CommentsKey(7))
	require.True(t, ok)
	assert.Equal(t, []domain.Comment{{ID: 54, PostID: 7, Body: "a"}}, e.Data)
	assert.Zero(t, fake.Calls("ListComments"))
}

func TestDeleteComment_FailureReinserts(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedComments(store, 7,
		domain.Comment{ID: 54, PostID: 7},
		domain.Comment{ID: 55, PostID: 7},
		domain.Comment{ID: 56, PostID: 7},
	)
	fake.DeleteCommentFn = func(ctx context.Context, id int) error { return errOffline }

	require.Error(t, c.DeleteComment(context.Background(), 7, 55))

	e, _ := store.Get(cache.CommentsKey(7))
	ids := []int{}
	for _, cm := range e.Data.([]domain.Comment) {
		ids = append(ids, cm.ID)
	}
	assert.Equal(t, []int{54, 55, 56}, ids)
}

func TestCreateAndUpdateComment(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedComments(store, 7, domain.Comment{ID: 1, PostID: 7, Body: "first", Likes: 2})
	fake.CreateCommentFn = func(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
		cs, _ := store.Get(cache.CommentsKey(7))
		assert.Len(t, cs.Data, 2)
		return domain.Comment{ID: 340, PostID: in.PostID, UserID: in.UserID, Body: in.Body}, nil
	}
	fake.UpdateCommentFn = func(ctx context.Context, id int, body string) (domain.Comment, error) {
		return domain.Comment{ID: id, PostID: 7, Body: body}, nil
	}

	created, err := c.CreateComment(context.Background(), domain.NewComment{Body: "second", PostID: 7, UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 340, created.ID)

	updated, err := c.UpdateComment(context.Background(), 7, 1, "first, edited")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Likes)

	e, _ := store.Get(cache.CommentsKey(7))
	cs := e.Data.([]domain.Comment)
	require.Len(t, cs, 2)
	assert.Equal(t, "first, edited", cs[0].Body)
	assert.Equal(t, 340, cs[1].ID)
	assert.True(t, e.Stale)
}

// blockingUpdates отпускает ответы сервера по одному в заданном порядке.
type blockingUpdates struct {
	started chan string
	release map[string]chan struct{}
}

func newBlockingUpdates(names ...string) *blockingUpdates {
	b := &blockingUpdates{started: make(chan string, len(names)), release: make(map[string]chan struct{})}
	for _, n := range names {
		b.release[n] = make(chan struct{})
	}
	return b
}

func (b *blockingUpdates) wait(name string) {
	b.started <- name
	<-b.release[name]
}

func TestUpdatePost_OverlappingFailuresRestoreOriginal(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	store.Set(cache.PostsKey(0, 10), domain.PostPage{Posts: []domain.Post{{ID: 1, Title: "orig", Body: "orig body", UserID: 1}}, Total: 1})

	b := newBlockingUpdates("title", "body")
	fake.UpdatePostFn = func(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
		if patch.Title != nil {
			b.wait("title")
		} else {
			b.wait("body")
		}
		return domain.Post{}, errOffline
	}

	title, body := "A", "B"
	titleDone := make(chan error, 1)
	go func() {
		_, err := c.UpdatePost(context.Background(), 1, domain.PostPatch{Title: &title})
		titleDone <- err
	}()
	require.Equal(t, "title", <-b.started)

	bodyDone := make(chan error, 1)
	go func() {
		_, err := c.UpdatePost(context.Background(), 1, domain.PostPatch{Body: &body})
		bodyDone <- err
	}()
	require.Equal(t, "body", <-b.started)

	p, _ := store.Post(1)
	assert.Equal(t, "A", p.Title)
	assert.Equal(t, "B", p.Body)

	close(b.release["title"])
	require.ErrorIs(t, <-titleDone, errOffline)
	p, _ = store.Post(1)
	assert.Equal(t, "orig", p.Title)
	assert.Equal(t, "B", p.Body, "rollback of the title edit must keep the body edit in flight")

	close(b.release["body"])
	require.ErrorIs(t, <-bodyDone, errOffline)
	p, _ = store.Post(1)
	assert.Equal(t, "orig", p.Title)
	assert.Equal(t, "orig body", p.Body)
}

func TestUpdatePost_SameFieldOverlap(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	store.Set(cache.PostsKey(0, 10), domain.PostPage{Posts: []domain.Post{{ID: 1, Title: "orig", Body: "body", UserID: 1}}, Total: 1})

	b := newBlockingUpdates("A", "B")
	fake.UpdatePostFn = func(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
		b.wait(*patch.Title)
		if *patch.Title == "A" {
			return domain.Post{}, errOffline
		}
		return domain.Post{ID: id, Title: *patch.Title, Body: "body", UserID: 1}, nil
	}

	first, second := "A", "B"
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.UpdatePost(context.Background(), 1, domain.PostPatch{Title: &first})
		firstDone <- err
	}()
	require.Equal(t, "A", <-b.started)
	secondDone := make(chan error, 1)
	go func() {
		_, err := c.UpdatePost(context.Background(), 1, domain.PostPatch{Title: &second})
		secondDone <- err
	}()
	require.Equal(t, "B", <-b.started)

	close(b.release["A"])
	require.Error(t, <-firstDone)
	p, _ := store.Post(1)
	assert.Equal(t, "B", p.Title, "failed older edit must not hide a newer one")

	close(b.release["B"])
	require.NoError(t, <-secondDone)
	p, _ = store.Post(1)
	assert.Equal(t, "B", p.Title)
}

func TestUpdatePost_ConfirmKeepsOtherEditInFlight(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	store.Set(cache.PostsKey(0, 10), domain.PostPage{Posts: []domain.Post{{ID: 1, Title: "orig", Body: "orig body", UserID: 1}}, Total: 1})

	b := newBlockingUpdates("title", "body")
	fake.UpdatePostFn = func(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
		if patch.Title != nil {
			b.wait("title")
			// сервер еще не видел правку текста
			return domain.Post{ID: id, Title: *patch.Title, Body: "orig body", UserID: 1}, nil
		}
		b.wait("body")
		return domain.Post{}, errOffline
	}

	title, body := "A", "B"
	titleDone := make(chan error, 1)
	go func() {
		_, err := c.UpdatePost(context.Background(), 1, domain.PostPatch{Title: &title})
		titleDone <- err
	}()
	require.Equal(t, "title", <-b.started)
	bodyDone := make(chan error, 1)
	go func() {
		_, err := c.UpdatePost(context.Background(), 1, domain.PostPatch{Body: &body})
		bodyDone <- err
	}()
	require.Equal(t, "body", <-b.started)

	close(b.release["title"])
	require.NoError(t, <-titleDone)
	p, _ := store.Post(1)
	assert.Equal(t, "A", p.Title)
	assert.Equal(t, "B", p.Body)

	close(b.release["body"])
	require.Error(t, <-bodyDone)
	p, _ = store.Post(1)
	assert.Equal(t, "A", p.Title, "confirmed title survives the later rollback")
	assert.Equal(t, "orig body", p.Body)
}

func TestUpdateComment_OverlappingFailuresRestoreOriginal(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedComments(store, 7, domain.Comment{ID: 1, PostID: 7, Body: "orig", Likes: 2})

	b := newBlockingUpdates("A", "B")
	fake.UpdateCommentFn = func(ctx context.Context, id int, body string) (domain.Comment, error) {
		b.wait(body)
		return domain.Comment{}, errOffline
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.UpdateComment(context.Background(), 7, 1, "A")
		firstDone <- err
	}()
	require.Equal(t, "A", <-b.started)
	secondDone := make(chan error, 1)
	go func() {
		_, err := c.UpdateComment(context.Background(), 7, 1, "B")
		secondDone <- err
	}()
	require.Equal(t, "B", <-b.started)

	cm, _ := store.Comment(7, 1)
	assert.Equal(t, "B", cm.Body)

	close(b.release["A"])
	require.ErrorIs(t, <-firstDone, errOffline)
	cm, _ = store.Comment(7, 1)
	assert.Equal(t, "B", cm.Body, "rollback of the older edit must keep the newer one")

	close(b.release["B"])
	require.ErrorIs(t, <-secondDone, errOffline)
	cm, _ = store.Comment(7, 1)
	assert.Equal(t, "orig", cm.Body)
	assert.Equal(t, 2, cm.Likes)
}

func TestUpdateComment_ConfirmThenLaterFailure(t *testing.T) {
	c, store, fake := newTestCoordinator(t)
	seedComments(store, 7, domain.Comment{ID: 1, PostID: 7, Body: "orig"})

	b := newBlockingUpdates("A", "B")
	fake.UpdateCommentFn = func(ctx context.Context, id int, body string) (domain.Comment, error) {
		b.wait(body)
		if body == "B" {
			return domain.Comment{}, errOffline
		}
		return domain.Comment{ID: id, PostID: 7, Body: body}, nil
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.UpdateComment(context.Background(), 7, 1, "A")
		firstDone <- err
	}()
	require.Equal(t, "A", <-b.started)
	secondDone := make(chan error, 1)
	go func() {
		_, err := c.UpdateComment(context.Background(), 7, 1, "B")
		secondDone <- err
	}()
	require.Equal(t, "B", <-b.started)

	close(b.release["A"])
	require.NoError(t, <-firstDone)
	cm, _ := store.Comment(7, 1)
	assert.Equal(t, "B", cm.Body)

	close(b.release["B"])
	require.Error(t, <-secondDone)
	cm, _ = store.Comment(7, 1)
	assert.Equal(t, "A", cm.Body)
}
