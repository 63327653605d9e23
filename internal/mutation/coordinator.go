package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/UkralStul/posts-manager/internal/cache"
	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/gateway"
)

// ErrNotCached - комментарий отсутствует в кэше, лайк не с чего считать.
var ErrNotCached = errors.New("comment is not cached")

// Coordinator применяет мутации оптимистично, подтверждает их через шлюз
// и откатывает при ошибке.
type Coordinator struct {
	gw     gateway.Gateway
	store  *cache.Store
	log    *slog.Logger
	notify func()

	mu      sync.Mutex
	pending map[uuid.UUID]*Pending
	bodies  map[commentRef]*bodyEdits
	tempID  atomic.Int64
}

// Option настраивает Coordinator.
type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.log = l } }

// WithNotify задает функцию, вызываемую после каждого изменения кэша.
func WithNotify(fn func()) Option { return func(c *Coordinator) { c.notify = fn } }

// New создает координатор мутаций.
func New(gw gateway.Gateway, store *cache.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		gw:      gw,
		store:   store,
		log:     slog.Default(),
		notify:  func() {},
		pending: make(map[uuid.UUID]*Pending),
		bodies:  make(map[commentRef]*bodyEdits),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pending возвращает мутации, ожидающие ответа сервера.
func (c *Coordinator) Pending() []Pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Pending, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, *p)
	}
	return out
}

// === Posts ===

// CreatePost добавляет пост в голову списка into до ответа сервера.
func (c *Coordinator) CreatePost(ctx context.Context, draft domain.NewPost, into cache.Key) (domain.Post, error) {
	if err := validatePost(draft.Title, draft.Body, draft.UserID); err != nil {
		return domain.Post{}, err
	}

	optimistic := domain.Post{
		ID:        c.nextTempID(),
		Title:     draft.Title,
		Body:      draft.Body,
		UserID:    draft.UserID,
		Tags:      draft.Tags,
		Reactions: &domain.Reactions{},
	}
	p := c.begin(KindCreatePost, optimistic, nil)
	c.store.InsertPost(optimistic, into)
	c.notify()

	created, err := c.gw.CreatePost(ctx, draft)
	if err != nil {
		c.store.RemovePost(optimistic.ID)
		return domain.Post{}, c.fail(p, err)
	}

	c.store.ReplacePostID(optimistic.ID, created)
	c.store.Invalidate(cache.PostLists())
	c.confirm(p, created)
	return created, nil
}

// UpdatePost применяет изменения к закэшированному посту до ответа сервера.
func (c *Coordinator) UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
	if id <= 0 {
		return domain.Post{}, &ValidationError{Field: "id", Message: "post is not confirmed by the server yet"}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.Post{}, &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	if patch.Body != nil && strings.TrimSpace(*patch.Body) == "" {
		return domain.Post{}, &ValidationError{Field: "body", Message: "cannot be empty"}
	}

	// откат снимает только это изменение: параллельные правки того же поста сохраняются
	edit, cached := c.store.BeginPostEdit(id, patch)
	var p *Pending
	if cached {
		p = c.begin(KindUpdatePost, edit.After, edit.Before)
		c.notify()
	} else {
		p = c.begin(KindUpdatePost, nil, nil)
	}

	updated, err := c.gw.UpdatePost(ctx, id, patch)
	if err != nil {
		c.store.EndPostEdit(edit, nil)
		return domain.Post{}, c.fail(p, err)
	}

	c.store.EndPostEdit(edit, &updated)
	c.store.Invalidate(cache.PostLists())
	c.confirm(p, updated)
	return updated, nil
}

// DeletePost убирает пост из всех списков до ответа сервера.
// Повторное удаление уже удаленного поста не считается ошибкой.
func (c *Coordinator) DeletePost(ctx context.Context, id int) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Message: "post is not confirmed by the server yet"}
	}

	removal := c.store.RemovePost(id)
	p := c.begin(KindDeletePost, nil, removal)
	if removal.Found {
		c.notify()
	}

	if err := c.gw.DeletePost(ctx, id); err != nil {
		if gateway.IsNotFound(err) {
			c.log.Info("post already deleted", "id", id)
			c.store.Invalidate(cache.PostLists())
			c.confirm(p, nil)
			return nil
		}
		c.store.RestorePost(removal)
		return c.fail(p, err)
	}

	c.store.Invalidate(cache.PostLists())
	c.confirm(p, nil)
	return nil
}

// === Comments ===

// CreateComment добавляет комментарий в конец закэшированного списка поста.
func (c *Coordinator) CreateComment(ctx context.Context, draft domain.NewComment) (domain.Comment, error) {
	if err := validateComment(draft.Body); err != nil {
		return domain.Comment{}, err
	}
	if draft.PostID <= 0 {
		return domain.Comment{}, &ValidationError{Field: "postId", Message: "must be a confirmed post"}
	}
	if draft.UserID <= 0 {
		return domain.Comment{}, &ValidationError{Field: "userId", Message: "must be positive"}
	}

	optimistic := domain.Comment{
		ID:     c.nextTempID(),
		Body:   draft.Body,
		PostID: draft.PostID,
		UserID: draft.UserID,
		User:   domain.CommentUser{ID: draft.UserID},
	}
	p := c.begin(KindCreateComment, optimistic, nil)
	if c.store.UpdateComments(draft.PostID, func(cs []domain.Comment) []domain.Comment {
		return append(cs, optimistic)
	}) {
		c.notify()
	}

	created, err := c.gw.CreateComment(ctx, draft)
	if err != nil {
		c.store.UpdateComments(draft.PostID, func(cs []domain.Comment) []domain.Comment {
			return removeComment(cs, optimistic.ID)
		})
		return domain.Comment{}, c.fail(p, err)
	}

	c.store.UpdateComments(draft.PostID, func(cs []domain.Comment) []domain.Comment {
		return replaceComment(cs, optimistic.ID, func(domain.Comment) domain.Comment { return created })
	})
	c.store.Invalidate(cache.Comments(draft.PostID))
	c.confirm(p, created)
	return created, nil
}

// UpdateComment меняет текст комментария до ответа сервера.
func (c *Coordinator) UpdateComment(ctx context.Context, postID, id int, body string) (domain.Comment, error) {
	if err := validateComment(body); err != nil {
		return domain.Comment{}, err
	}
	if id <= 0 {
		return domain.Comment{}, &ValidationError{Field: "id", Message: "comment is not confirmed by the server yet"}
	}

	prev, _ := c.store.Comment(postID, id)
	p := c.begin(KindUpdateComment, body, prev.Body)
	ref := commentRef{postID: postID, id: id}
	if c.beginBody(ref, p.ID, body) {
		c.notify()
	}

	updated, err := c.gw.UpdateComment(ctx, id, body)
	if err != nil {
		c.endBody(ref, p.ID, nil)
		return domain.Comment{}, c.fail(p, err)
	}

	c.store.UpdateComments(postID, func(cs []domain.Comment) []domain.Comment {
		return replaceComment(cs, id, func(cur domain.Comment) domain.Comment {
			// лайки и текст правок в пути остаются локальными
			updated.Likes = cur.Likes
			out := updated
			out.Body = cur.Body
			return out
		})
	})
	c.endBody(ref, p.ID, &updated.Body)
	c.store.Invalidate(cache.Comments(postID))
	c.confirm(p, updated)
	return updated, nil
}

// DeleteComment удаляет комментарий из закэшированного списка без перезагрузки.
func (c *Coordinator) DeleteComment(ctx context.Context, postID, id int) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Message: "comment is not confirmed by the server yet"}
	}

	var (
		removed domain.Comment
		index   = -1
	)
	c.store.UpdateComments(postID, func(cs []domain.Comment) []domain.Comment {
		for i, cm := range cs {
			if cm.ID == id {
				removed, index = cm, i
				return slices.Delete(cs, i, i+1)
			}
		}
		return cs
	})
	p := c.begin(KindDeleteComment, nil, removed)
	if index >= 0 {
		c.notify()
	}

	if err := c.gw.DeleteComment(ctx, id); err != nil {
		if gateway.IsNotFound(err) {
			c.log.Info("comment already deleted", "id", id, "postId", postID)
			c.confirm(p, nil)
			return nil
		}
		if index >= 0 {
			c.store.UpdateComments(postID, func(cs []domain.Comment) []domain.Comment {
				if index > len(cs) {
					index = len(cs)
				}
				return slices.Insert(cs, index, removed)
			})
		}
		return c.fail(p, err)
	}

	c.store.Invalidate(cache.Comments(postID))
	c.confirm(p, nil)
	return nil
}

// LikeComment увеличивает счетчик на единицу от текущего закэшированного значения.
// Параллельные лайки складываются последовательно; откат вычитает единицу.
func (c *Coordinator) LikeComment(ctx context.Context, postID, id int) (domain.Comment, error) {
	var (
		next  int
		found bool
	)
	c.store.UpdateComments(postID, func(cs []domain.Comment) []domain.Comment {
		return replaceComment(cs, id, func(cur domain.Comment) domain.Comment {
			found = true
			cur.Likes++
			next = cur.Likes
			return cur
		})
	})
	if !found {
		return domain.Comment{}, fmt.Errorf("like comment %d: %w", id, ErrNotCached)
	}
	p := c.begin(KindLikeComment, next, next-1)
	c.notify()

	confirmed, err := c.gw.LikeComment(ctx, id, next)
	if err != nil {
		c.store.UpdateComments(postID, func(cs []domain.Comment) []domain.Comment {
			return replaceComment(cs, id, func(cur domain.Comment) domain.Comment {
				if cur.Likes > 0 {
					cur.Likes--
				}
				return cur
			})
		})
		return domain.Comment{}, c.fail(p, err)
	}

	var current domain.Comment
	c.store.UpdateComments(postID, func(cs []domain.Comment) []domain.Comment {
		return replaceComment(cs, id, func(cur domain.Comment) domain.Comment {
			confirmed.Likes = cur.Likes
			if confirmed.User.Username == "" {
				confirmed.User = cur.User
			}
			current = confirmed
			return confirmed
		})
	})
	c.store.Invalidate(cache.Comments(postID))
	c.confirm(p, current)
	return current, nil
}

// === Helpers ===

func (c *Coordinator) nextTempID() int {
	return int(-c.tempID.Add(1))
}

func (c *Coordinator) begin(kind Kind, optimistic, snapshot any) *Pending {
	p := &Pending{ID: uuid.New(), Kind: kind, Status: StatusPending, Optimistic: optimistic, Snapshot: snapshot}
	c.mu.Lock()
	c.pending[p.ID] = p
	c.mu.Unlock()
	return p
}

func (c *Coordinator) confirm(p *Pending, confirmed any) {
	c.mu.Lock()
	p.Status = StatusConfirmed
	p.Optimistic = confirmed
	delete(c.pending, p.ID)
	c.mu.Unlock()
	c.log.Debug("mutation confirmed", "kind", p.Kind, "mutation", p.ID)
	c.notify()
}

func (c *Coordinator) fail(p *Pending, err error) error {
	c.mu.Lock()
	p.Status = StatusFailed
	p.Err = err
	delete(c.pending, p.ID)
	c.mu.Unlock()
	c.log.Warn("mutation rolled back", "kind", p.Kind, "mutation", p.ID, "err", err)
	c.notify()
	return fmt.Errorf("%s: %w", p.Kind, err)
}

func validatePost(title, body string, userID int) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Field: "body", Message: "cannot be empty"}
	}
	if userID <= 0 {
		return &ValidationError{Field: "userId", Message: "must be positive"}
	}
	return nil
}

func validateComment(body string) error {
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Field: "body", Message: "cannot be empty"}
	}
	return nil
}

func removeComment(cs []domain.Comment, id int) []domain.Comment {
	return slices.DeleteFunc(cs, func(c domain.Comment) bool { return c.ID == id })
}

func replaceComment(cs []domain.Comment, id int, fn func(domain.Comment) domain.Comment) []domain.Comment {
	for i := range cs {
		if cs[i].ID == id {
			cs[i] = fn(cs[i])
		}
	}
	return cs
}
