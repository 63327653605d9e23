package projection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/posts-manager/internal/cache"
	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/query"
)

func post(id int, title string, likes int, userID int) domain.Post {
	return domain.Post{ID: id, Title: title, UserID: userID, Reactions: &domain.Reactions{Likes: likes}}
}

func ids(posts []domain.Post) []int {
	out := make([]int, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestProject_PagedWithAuthors(t *testing.T) {
	store := cache.New()
	store.Set(cache.PostsKey(0, 10), domain.PostPage{
		Posts: []domain.Post{post(1, "b", 5, 1), post(2, "a", 1, 2), post(3, "c", 9, 3)},
		Total: 251,
	})
	store.Set(cache.UserSummariesKey(), []domain.User{{ID: 1, Username: "emilys"}, {ID: 2, Username: "michaelw"}})

	v := Project(store, query.DefaultState())
	assert.Equal(t, []int{1, 2, 3}, ids(v.Posts))
	assert.Equal(t, 251, v.Total)
	assert.False(t, v.Loading)
	assert.Equal(t, "paged", v.Mode)

	require.NotNil(t, v.Posts[0].Author)
	assert.Equal(t, "emilys", v.Posts[0].Author.Username)
	assert.Nil(t, v.Posts[2].Author)

	assert.False(t, v.HasPrev)
	assert.True(t, v.HasNext)
	assert.Equal(t, 10, v.NextSkip)
}

func TestProject_Sorting(t *testing.T) {
	store := cache.New()
	store.Set(cache.PostsKey(0, 10), domain.PostPage{
		Posts: []domain.Post{post(2, "Banana", 5, 1), post(1, "apple", 1, 1), post(3, "cherry", 9, 1)},
		Total: 3,
	})

	tests := []struct {
		by, order string
		want      []int
	}{
		{"", "asc", []int{2, 1, 3}},
		{"none", "desc", []int{2, 1, 3}},
		{"id", "asc", []int{1, 2, 3}},
		{"id", "desc", []int{3, 2, 1}},
		{"title", "asc", []int{1, 2, 3}},
		{"reactions", "desc", []int{3, 2, 1}},
	}
	for _, tt := range tests {
		st := query.DefaultState()
		st.SortBy, st.SortOrder = tt.by, tt.order
		assert.Equal(t, tt.want, ids(Project(store, st).Posts), tt.by+" "+tt.order)
	}
}

func TestProject_SearchIsSlicedClientSide(t *testing.T) {
	store := cache.New()
	var posts []domain.Post
	for id := 1; id <= 25; id++ {
		posts = append(posts, post(id, "his", id, 1))
	}
	store.Set(cache.SearchKey("his"), domain.PostPage{Posts: posts, Total: 25})

	st := query.State{Search: "his", Skip: 20, Limit: 10, SortBy: "id", SortOrder: "desc"}
	v := Project(store, st)
	assert.Equal(t, "search", v.Mode)
	assert.Equal(t, []int{5, 4, 3, 2, 1}, ids(v.Posts))
	assert.Equal(t, 25, v.Total)
	assert.True(t, v.HasPrev)
	assert.False(t, v.HasNext)
	assert.Equal(t, 10, v.PrevSkip)

	st.Skip = 40
	assert.Empty(t, Project(store, st).Posts)
}

func TestProject_LoadingAndError(t *testing.T) {
	store := cache.New()
	v := Project(store, query.DefaultState())
	assert.True(t, v.Loading)
	assert.Empty(t, v.Posts)

	comments := Comments(store, 1)
	assert.True(t, comments.Loading)
	assert.NotNil(t, comments.Comments)
}

func TestProject_ErrorKeepsPreviousData(t *testing.T) {
	store := cache.New()
	key := cache.PostsByTagKey("love")
	store.Set(key, domain.PostPage{Posts: []domain.Post{post(1, "x", 0, 1)}, Total: 1})
	store.Invalidate(cache.PostLists())
	_, err := store.Ensure(context.Background(), key, func(_ context.Context) (any, error) { return nil, errors.New("boom") })
	require.Error(t, err)

	v := Project(store, query.State{Tag: "love", Limit: 10, SortOrder: "asc"})
	assert.Equal(t, []int{1}, ids(v.Posts))
	assert.Equal(t, "boom", v.Err)
	assert.False(t, v.Loading)
}

func TestComments(t *testing.T) {
	store := cache.New()
	store.Set(cache.CommentsKey(7), []domain.Comment{{ID: 1, PostID: 7, Body: "hi"}})

	v := Comments(store, 7)
	assert.False(t, v.Loading)
	require.Len(t, v.Comments, 1)
	assert.Equal(t, "hi", v.Comments[0].Body)
}
