package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/storage/inmemory"
)

func newTestRouter(t *testing.T) http.Handler {
	store := inmemory.New()
	require.NoError(t, Seed(context.Background(), store))
	return NewRouter(store, nil)
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListPosts_Paged(t *testing.T) {
	h := newTestRouter(t)

	rec := serve(t, h, http.MethodGet, "/api/posts?limit=2&skip=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page domain.PostPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, 2, page.Posts[0].ID)
}

func TestListPostsByTagAndTags(t *testing.T) {
	h := newTestRouter(t)

	rec := serve(t, h, http.MethodGet, "/api/posts/tag/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.PostPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 2, page.Total)

	rec = serve(t, h, http.MethodGet, "/api/posts/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tags []domain.Tag
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tags))
	require.NotEmpty(t, tags)
	assert.Equal(t, "/api/posts/tag/"+tags[0].Slug, tags[0].URL)
}

func TestUsers_SelectSummary(t *testing.T) {
	h := newTestRouter(t)

	rec := serve(t, h, http.MethodGet, "/api/users?limit=0&select=username,image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.UserPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Users, 3)
	assert.Equal(t, "emilys", page.Users[0].Username)
	assert.Empty(t, page.Users[0].Email)
	assert.Nil(t, page.Users[0].Company)
}

func TestComments_Lifecycle(t *testing.T) {
	h := newTestRouter(t)

	rec := serve(t, h, http.MethodPost, "/api/comments/add", `{"body":"nice","postId":2,"userId":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Comment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "emilys", created.User.Username)

	rec = serve(t, h, http.MethodPatch, "/api/comments/"+strconv.Itoa(created.ID), `{"likes":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodDelete, "/api/comments/"+strconv.Itoa(created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodDelete, "/api/comments/"+strconv.Itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadRequests(t *testing.T) {
	h := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPut, "/api/posts/abc", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPost, "/api/posts/add", `{`).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/api/users/99", "").Code)
}
