// Package mockapi - REST API постов, комментариев и пользователей поверх storage.Storage.
// Используется для локальной разработки и интеграционных тестов шлюза.
package mockapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/storage"
)

const defaultLimit = 30

// API связывает маршруты с хранилищем.
type API struct {
	store storage.Storage
	log   *slog.Logger
}

// NewRouter создает chi-роутер со всеми эндпоинтами.
func NewRouter(store storage.Storage, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.Default()
	}
	a := &API{store: store, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", a.listPosts)
			r.Get("/search", a.searchPosts)
			r.Get("/tags", a.listTags)
			r.Get("/tag/{tag}", a.listPostsByTag)
			r.Post("/add", a.createPost)
			r.Put("/{id}", a.updatePost)
			r.Delete("/{id}", a.deletePost)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", a.listUsers)
			r.Get("/{id}", a.getUser)
		})
		r.Route("/comments", func(r chi.Router) {
			r.Get("/post/{postID}", a.listComments)
			r.Post("/add", a.createComment)
			r.Put("/{id}", a.updateComment)
			r.Patch("/{id}", a.likeComment)
			r.Delete("/{id}", a.deleteComment)
		})
	})
	return r
}

// === Posts ===

func (a *API) listPosts(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", defaultLimit)
	skip := intParam(r, "skip", 0)
	posts, total, err := a.store.GetPosts(r.Context(), limit, skip)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, domain.PostPage{Posts: posts, Total: total, Skip: skip, Limit: len(posts)})
}

func (a *API) searchPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.store.SearchPosts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, domain.PostPage{Posts: posts, Total: len(posts), Limit: len(posts)})
}

func (a *API) listPostsByTag(w http.ResponseWriter, r *http.Request) {
	posts, err := a.store.GetPostsByTag(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, domain.PostPage{Posts: posts, Total: len(posts), Limit: len(posts)})
}

func (a *API) listTags(w http.ResponseWriter, r *http.Request) {
	slugs, err := a.store.GetTags(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tags := make([]domain.Tag, 0, len(slugs))
	for _, slug := range slugs {
		tags = append(tags, domain.Tag{Slug: slug, Name: slug, URL: "/api/posts/tag/" + slug})
	}
	a.respond(w, http.StatusOK, tags)
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	var input domain.NewPost
	if !a.decode(w, r, &input) {
		return
	}
	post, err := a.store.CreatePost(r.Context(), &domain.Post{
		Title:  input.Title,
		Body:   input.Body,
		UserID: input.UserID,
		Tags:   input.Tags,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, post)
}

func (a *API) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	var patch domain.PostPatch
	if !a.decode(w, r, &patch) {
		return
	}
	post, err := a.store.UpdatePost(r.Context(), id, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, post)
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	post, err := a.store.DeletePost(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, struct {
		*domain.Post
		IsDeleted bool `json:"isDeleted"`
	}{Post: post, IsDeleted: true})
}

// === Users ===

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.GetUsers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if sel := r.URL.Query().Get("select"); sel != "" {
		users = selectUserFields(users, strings.Split(sel, ","))
	}
	limit := intParam(r, "limit", defaultLimit)
	total := len(users)
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	a.respond(w, http.StatusOK, domain.UserPage{Users: users, Total: total, Limit: len(users)})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := a.store.GetUserByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, user)
}

// selectUserFields оставляет только id и запрошенные краткие поля.
func selectUserFields(users []domain.User, fields []string) []domain.User {
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = domain.User{ID: u.ID}
		for _, f := range fields {
			switch strings.TrimSpace(f) {
			case "username":
				out[i].Username = u.Username
			case "image":
				out[i].Image = u.Image
			case "firstName":
				out[i].FirstName = u.FirstName
			case "lastName":
				out[i].LastName = u.LastName
			}
		}
	}
	return out
}

// === Comments ===

func (a *API) listComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := a.pathID(w, r, "postID")
	if !ok {
		return
	}
	comments, err := a.store.GetCommentsByPostID(r.Context(), postID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, domain.CommentPage{Comments: comments, Total: len(comments), Limit: len(comments)})
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	var input domain.NewComment
	if !a.decode(w, r, &input) {
		return
	}
	comment, err := a.store.CreateComment(r.Context(), &domain.Comment{
		Body:   input.Body,
		PostID: input.PostID,
		UserID: input.UserID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, comment)
}

func (a *API) updateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	var input struct {
		Body string `json:"body"`
	}
	if !a.decode(w, r, &input) {
		return
	}
	comment, err := a.store.UpdateCommentBody(r.Context(), id, input.Body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, comment)
}

func (a *API) likeComment(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	var input struct {
		Likes int `json:"likes"`
	}
	if !a.decode(w, r, &input) {
		return
	}
	comment, err := a.store.UpdateCommentLikes(r.Context(), id, input.Likes)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, comment)
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	comment, err := a.store.DeleteComment(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, struct {
		*domain.Comment
		IsDeleted bool `json:"isDeleted"`
	}{Comment: comment, IsDeleted: true})
}

// === Helpers ===

func (a *API) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("failed to encode response", "err", err)
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, storage.ErrNotFound) {
		status = http.StatusNotFound
	}
	a.log.Warn("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	a.respond(w, status, map[string]string{"message": err.Error()})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.respond(w, http.StatusBadRequest, map[string]string{"message": "invalid json body"})
		return false
	}
	return true
}

func (a *API) pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		a.respond(w, http.StatusBadRequest, map[string]string{"message": "invalid " + name})
		return 0, false
	}
	return id, true
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
