package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/UkralStul/posts-manager/internal/domain"
)

// HTTPGateway реализует Gateway поверх net/http.
type HTTPGateway struct {
	base   *url.URL
	client *http.Client
	log    *slog.Logger
}

// NewHTTP создает клиент для API с базовым адресом baseURL (например, "http://localhost:8081").
func NewHTTP(baseURL string, client *http.Client, log *slog.Logger) (*HTTPGateway, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse api url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPGateway{base: u, client: client, log: log}, nil
}

// === Posts ===

func (g *HTTPGateway) ListPosts(ctx context.Context, skip, limit int) (domain.PostPage, error) {
	var page domain.PostPage
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	err := g.do(ctx, "listPosts", http.MethodGet, g.endpoint(q, "api", "posts"), nil, &page)
	return page, err
}

func (g *HTTPGateway) ListPostsByTag(ctx context.Context, tag string) (domain.PostPage, error) {
	var page domain.PostPage
	err := g.do(ctx, "listPostsByTag", http.MethodGet, g.endpoint(nil, "api", "posts", "tag", tag), nil, &page)
	return page, err
}

func (g *HTTPGateway) SearchPosts(ctx context.Context, query string) (domain.PostPage, error) {
	var page domain.PostPage
	q := url.Values{}
	q.Set("q", query)
	err := g.do(ctx, "searchPosts", http.MethodGet, g.endpoint(q, "api", "posts", "search"), nil, &page)
	return page, err
}

func (g *HTTPGateway) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := g.do(ctx, "listTags", http.MethodGet, g.endpoint(nil, "api", "posts", "tags"), nil, &tags)
	return tags, err
}

func (g *HTTPGateway) CreatePost(ctx context.Context, post domain.NewPost) (domain.Post, error) {
	var created domain.Post
	err := g.do(ctx, "createPost", http.MethodPost, g.endpoint(nil, "api", "posts", "add"), post, &created)
	return created, err
}

func (g *HTTPGateway) UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
	var updated domain.Post
	err := g.do(ctx, "updatePost", http.MethodPut, g.endpoint(nil, "api", "posts", strconv.Itoa(id)), patch, &updated)
	return updated, err
}

func (g *HTTPGateway) DeletePost(ctx context.Context, id int) error {
	return g.do(ctx, "deletePost", http.MethodDelete, g.endpoint(nil, "api", "posts", strconv.Itoa(id)), nil, nil)
}

// === Users ===

func (g *HTTPGateway) ListUserSummaries(ctx context.Context) ([]domain.User, error) {
	var page domain.UserPage
	q := url.Values{}
	q.Set("limit", "0")
	q.Set("select", "username,image")
	if err := g.do(ctx, "listUserSummaries", http.MethodGet, g.endpoint(q, "api", "users"), nil, &page); err != nil {
		return nil, err
	}
	return page.Users, nil
}

func (g *HTTPGateway) GetUser(ctx context.Context, id int) (domain.User, error) {
	var user domain.User
	err := g.do(ctx, "getUser", http.MethodGet, g.endpoint(nil, "api", "users", strconv.Itoa(id)), nil, &user)
	return user, err
}

// === Comments ===

func (g *HTTPGateway) ListComments(ctx context.Context, postID int) ([]domain.Comment, error) {
	var page domain.CommentPage
	if err := g.do(ctx, "listComments", http.MethodGet, g.endpoint(nil, "api", "comments", "post", strconv.Itoa(postID)), nil, &page); err != nil {
		return nil, err
	}
	return page.Comments, nil
}

func (g *HTTPGateway) CreateComment(ctx context.Context, comment domain.NewComment) (domain.Comment, error) {
	var created domain.Comment
	err := g.do(ctx, "createComment", http.MethodPost, g.endpoint(nil, "api", "comments", "add"), comment, &created)
	return created, err
}

func (g *HTTPGateway) UpdateComment(ctx context.Context, id int, body string) (domain.Comment, error) {
	var updated domain.Comment
	payload := struct {
		Body string `json:"body"`
	}{Body: body}
	err := g.do(ctx, "updateComment", http.MethodPut, g.endpoint(nil, "api", "comments", strconv.Itoa(id)), payload, &updated)
	return updated, err
}

func (g *HTTPGateway) DeleteComment(ctx context.Context, id int) error {
	return g.do(ctx, "deleteComment", http.MethodDelete, g.endpoint(nil, "api", "comments", strconv.Itoa(id)), nil, nil)
}

func (g *HTTPGateway) LikeComment(ctx context.Context, id int, likes int) (domain.Comment, error) {
	var updated domain.Comment
	payload := struct {
		Likes int `json:"likes"`
	}{Likes: likes}
	err := g.do(ctx, "likeComment", http.MethodPatch, g.endpoint(nil, "api", "comments", strconv.Itoa(id)), payload, &updated)
	return updated, err
}

// endpoint собирает адрес; сегменты пути экранируются.
func (g *HTTPGateway) endpoint(q url.Values, segments ...string) string {
	u := g.base.JoinPath(segments...)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do выполняет ровно одну попытку запроса и декодирует JSON-ответ в out (если out != nil).
func (g *HTTPGateway) do(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &GatewayError{Kind: DecodeFailure, Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &GatewayError{Kind: NetworkFailure, Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Debug("request failed", "op", op, "url", target, "err", err)
		return &GatewayError{Kind: NetworkFailure, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		g.log.Debug("unexpected status", "op", op, "url", target, "status", resp.StatusCode)
		return &GatewayError{Kind: HTTPStatus, Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GatewayError{Kind: DecodeFailure, Op: op, Err: err}
	}
	return nil
}
