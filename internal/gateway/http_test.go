package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/mockapi"
	"github.com/UkralStul/posts-manager/internal/storage/inmemory"
)

func newTestGateway(t *testing.T) *HTTPGateway {
	store := inmemory.New()
	require.NoError(t, mockapi.Seed(context.Background(), store))
	srv := httptest.NewServer(mockapi.NewRouter(store, nil))
	t.Cleanup(srv.Close)

	gw, err := NewHTTP(srv.URL, srv.Client(), nil)
	require.NoError(t, err)
	return gw
}

func TestHTTPGateway_Reads(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	page, err := gw.ListPosts(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Posts, 2)

	byTag, err := gw.ListPostsByTag(ctx, "mystery")
	require.NoError(t, err)
	assert.Equal(t, 2, byTag.Total)

	found, err := gw.SearchPosts(ctx, "candy bar")
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, 4, found.Posts[0].ID)

	tags, err := gw.ListTags(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tags)

	users, err := gw.ListUserSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "michaelw", users[1].Username)

	user, err := gw.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user.Address)
	assert.Equal(t, "Phoenix", user.Address.City)

	comments, err := gw.ListComments(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestHTTPGateway_Mutations(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	created, err := gw.CreatePost(ctx, domain.NewPost{Title: "Hello", Body: "World", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, created.ID)

	title := "Hello again"
	updated, err := gw.UpdatePost(ctx, created.ID, domain.PostPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, "World", updated.Body)

	require.NoError(t, gw.DeletePost(ctx, created.ID))
	err = gw.DeletePost(ctx, created.ID)
	assert.True(t, IsNotFound(err))

	comment, err := gw.CreateComment(ctx, domain.NewComment{Body: "hi", PostID: 2, UserID: 3})
	require.NoError(t, err)

	edited, err := gw.UpdateComment(ctx, comment.ID, "hi there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", edited.Body)

	liked, err := gw.LikeComment(ctx, comment.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)

	require.NoError(t, gw.DeleteComment(ctx, comment.ID))
}

func TestHTTPGateway_ErrorKinds(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		gw := newTestGateway(t)
		_, err := gw.GetUser(context.Background(), 404)

		var gerr *GatewayError
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, HTTPStatus, gerr.Kind)
		assert.Equal(t, http.StatusNotFound, gerr.StatusCode)
		assert.Equal(t, "getUser", gerr.Op)
	})

	t.Run("decode failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()
		gw, err := NewHTTP(srv.URL, srv.Client(), nil)
		require.NoError(t, err)

		_, err = gw.ListTags(context.Background())
		var gerr *GatewayError
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, DecodeFailure, gerr.Kind)
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		gw, err := NewHTTP(url, nil, nil)
		require.NoError(t, err)

		_, err = gw.ListPosts(context.Background(), 0, 10)
		var gerr *GatewayError
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, NetworkFailure, gerr.Kind)
	})
}
