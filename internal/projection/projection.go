// Package projection строит отображаемые данные из кэша и состояния запроса.
// Функции пакета не делают сетевых вызовов.
package projection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/UkralStul/posts-manager/internal/cache"
	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/query"
)

// View - список постов для отображения.
type View struct {
	State   query.State   `json:"state"`
	Mode    string        `json:"mode"`
	Posts   []domain.Post `json:"posts"`
	Total   int           `json:"total"`
	Loading bool          `json:"loading"`
	Stale   bool          `json:"stale"`
	Err     string        `json:"error,omitempty"`

	HasPrev  bool `json:"hasPrev"`
	HasNext  bool `json:"hasNext"`
	PrevSkip int  `json:"prevSkip"`
	NextSkip int  `json:"nextSkip"`
}

// Project возвращает посты для состояния st.
// Поиск и фильтр по тегу режутся по skip/limit после сортировки,
// постраничный список сортируется в пределах страницы.
func Project(store *cache.Store, st query.State) View {
	mode := st.Mode()
	e, posts, _ := store.PostList(mode.Key())

	v := View{
		State:   st,
		Mode:    mode.Kind.String(),
		Loading: e.Status == cache.Loading || (e.Status == cache.Idle && !e.HasData()),
		Stale:   e.Stale,
	}
	if e.Err != nil {
		v.Err = e.Err.Error()
	}
	if list, ok := e.Data.(cache.PostList); ok {
		v.Total = list.Total
	}

	posts = withAuthors(store, posts)
	sortPosts(posts, st.SortBy, st.SortOrder)
	if mode.ClientPaged() {
		posts = window(posts, st.Skip, st.Limit)
	}
	v.Posts = posts

	v.HasPrev = st.Skip > 0
	v.HasNext = st.Skip+st.Limit < v.Total
	v.PrevSkip = max(0, st.Skip-st.Limit)
	v.NextSkip = st.Skip + st.Limit
	return v
}

// withAuthors подставляет автора из краткого списка пользователей.
// Без списка посты возвращаются как есть.
func withAuthors(store *cache.Store, posts []domain.Post) []domain.Post {
	e, ok := store.Get(cache.UserSummariesKey())
	if !ok {
		return posts
	}
	users, _ := e.Data.([]domain.User)
	if len(users) == 0 {
		return posts
	}
	byID := make(map[int]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range posts {
		if u, found := byID[posts[i].UserID]; found {
			posts[i].Author = &u
		}
	}
	return posts
}

func sortPosts(posts []domain.Post, by, order string) {
	var less func(a, b domain.Post) int
	switch by {
	case "id":
		less = func(a, b domain.Post) int { return cmp.Compare(a.ID, b.ID) }
	case "title":
		less = func(a, b domain.Post) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	case "reactions":
		less = func(a, b domain.Post) int { return cmp.Compare(a.Likes(), b.Likes()) }
	default:
		return
	}
	if order == "desc" {
		asc := less
		less = func(a, b domain.Post) int { return asc(b, a) }
	}
	slices.SortStableFunc(posts, less)
}

func window(posts []domain.Post, skip, limit int) []domain.Post {
	if skip >= len(posts) {
		return []domain.Post{}
	}
	end := len(posts)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return posts[skip:end]
}

// CommentsView - комментарии поста.
type CommentsView struct {
	PostID   int              `json:"postId"`
	Comments []domain.Comment `json:"comments"`
	Loading  bool             `json:"loading"`
	Err      string           `json:"error,omitempty"`
}

// Comments возвращает закэшированные комментарии поста.
func Comments(store *cache.Store, postID int) CommentsView {
	e, _ := store.Get(cache.CommentsKey(postID))
	v := CommentsView{
		PostID:  postID,
		Loading: e.Status == cache.Loading || (e.Status == cache.Idle && !e.HasData()),
	}
	v.Comments, _ = e.Data.([]domain.Comment)
	if v.Comments == nil {
		v.Comments = []domain.Comment{}
	}
	if e.Err != nil {
		v.Err = e.Err.Error()
	}
	return v
}
