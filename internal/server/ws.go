package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/gateway"
	"github.com/UkralStul/posts-manager/internal/mutation"
	"github.com/UkralStul/posts-manager/internal/projection"
	"github.com/UkralStul/posts-manager/internal/query"
	"github.com/UkralStul/posts-manager/internal/session"
)

// Типы исходящих сообщений.
const (
	msgView     = "view"
	msgURL      = "url"
	msgComments = "comments"
	msgPost     = "post"
	msgUser     = "user"
	msgTags     = "tags"
	msgResult   = "result"
	msgError    = "error"
)

// inbound - команда клиента.
type inbound struct {
	Ref      string             `json:"ref,omitempty"`
	Op       string             `json:"op"`
	Location string             `json:"location,omitempty"`
	Value    string             `json:"value,omitempty"`
	N        int                `json:"n,omitempty"`
	PostID   int                `json:"postId,omitempty"`
	ID       int                `json:"id,omitempty"`
	Body     string             `json:"body,omitempty"`
	Post     *domain.NewPost    `json:"post,omitempty"`
	Patch    *domain.PostPatch  `json:"patch,omitempty"`
	Comment  *domain.NewComment `json:"comment,omitempty"`
}

// outbound - сообщение клиенту.
type outbound struct {
	Type     string                   `json:"type"`
	Ref      string                   `json:"ref,omitempty"`
	Op       string                   `json:"op,omitempty"`
	Query    string                   `json:"query,omitempty"`
	View     *projection.View         `json:"view,omitempty"`
	Comments *projection.CommentsView `json:"comments,omitempty"`
	Post     *session.PostDetail      `json:"post,omitempty"`
	User     *domain.User             `json:"user,omitempty"`
	Tags     []domain.Tag             `json:"tags,omitempty"`
	Data     any                      `json:"data,omitempty"`
	Kind     string                   `json:"kind,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// conn сериализует запись: gorilla/websocket допускает одного писателя.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(m outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(m)
}

// serveSession держит сессию на время подключения. Начальное состояние
// берется из строки запроса подключения.
func (s *Server) serveSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade", "err", err)
		return
	}
	defer ws.Close()
	c := &conn{ws: ws}

	sess, err := session.New(s.gw, s.cfg)
	if err != nil {
		s.log.Error("failed to create session", "err", err)
		return
	}
	defer sess.Close()
	log := s.log.With("session", sess.ID.String())
	log.Info("session opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := sess.Subscribe(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			if err := c.send(render(sess, ev)); err != nil {
				log.Debug("failed to push event", "err", err)
			}
		}
	}()

	// состояние принимается в порядке команд, загрузки идут параллельно:
	// медленная загрузка не задерживает следующую команду, ее ответ устаревает
	resolve := func(ref, op string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.reply(ctx, c, ref, op, nil, fn(ctx))
		}()
	}
	resolve("", "navigate", sess.StageLocation("?"+r.URL.RawQuery))

	for {
		var msg inbound
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read failed", "err", err)
			}
			break
		}
		if fn, ok, err := stage(sess, msg); ok {
			if err != nil {
				s.reply(ctx, c, msg.Ref, msg.Op, nil, err)
				continue
			}
			resolve(msg.Ref, msg.Op, fn)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := s.apply(ctx, sess, c, msg)
			s.reply(ctx, c, msg.Ref, msg.Op, data, err)
		}()
	}

	cancel()
	wg.Wait()
	log.Info("session closed")
}

// stage принимает команду изменения состояния. ok=false - команда другого вида.
func stage(sess *session.Session, msg inbound) (resolve func(context.Context) error, ok bool, err error) {
	var change query.Change
	switch msg.Op {
	case "navigate":
		return sess.StageLocation(msg.Location), true, nil
	case "setSearch":
		change = query.ChangeSearch(msg.Value)
	case "setTag":
		change = query.ChangeTag(msg.Value)
	case "setSortBy":
		change = query.ChangeSortBy(msg.Value)
	case "setSortOrder":
		change = query.ChangeSortOrder(msg.Value)
	case "setLimit":
		change = query.ChangeLimit(msg.N)
	case "setSkip":
		change = query.ChangeSkip(msg.N)
	default:
		return nil, false, nil
	}
	resolve, err = sess.Stage(change)
	return resolve, true, err
}

// reply отправляет result или error с тем же ref.
func (s *Server) reply(ctx context.Context, c *conn, ref, op string, data any, err error) {
	if err != nil {
		if ctx.Err() == nil {
			_ = c.send(errorMessage(ref, op, err))
		}
		return
	}
	if ref != "" {
		_ = c.send(outbound{Type: msgResult, Ref: ref, Op: op, Data: data})
	}
}

func (s *Server) apply(ctx context.Context, sess *session.Session, c *conn, msg inbound) (any, error) {
	switch msg.Op {
	case "refresh":
		return nil, sess.Refresh(ctx)

	case "tags":
		tags, err := sess.Tags(ctx)
		if err != nil {
			return nil, err
		}
		return nil, c.send(outbound{Type: msgTags, Ref: msg.Ref, Tags: tags})
	case "openPost":
		d, err := sess.OpenPost(ctx, msg.PostID)
		if err != nil {
			return nil, err
		}
		return nil, c.send(outbound{Type: msgPost, Ref: msg.Ref, Post: &d})
	case "openUser":
		u, err := sess.User(ctx, msg.ID)
		if err != nil {
			return nil, err
		}
		return nil, c.send(outbound{Type: msgUser, Ref: msg.Ref, User: &u})

	case "createPost":
		if msg.Post == nil {
			return nil, errMissing("post")
		}
		return sess.CreatePost(ctx, *msg.Post)
	case "updatePost":
		if msg.Patch == nil {
			return nil, errMissing("patch")
		}
		return sess.UpdatePost(ctx, msg.ID, *msg.Patch)
	case "deletePost":
		return nil, sess.DeletePost(ctx, msg.ID)
	case "createComment":
		if msg.Comment == nil {
			return nil, errMissing("comment")
		}
		return sess.CreateComment(ctx, *msg.Comment)
	case "updateComment":
		return sess.UpdateComment(ctx, msg.PostID, msg.ID, msg.Body)
	case "deleteComment":
		return nil, sess.DeleteComment(ctx, msg.PostID, msg.ID)
	case "likeComment":
		return sess.LikeComment(ctx, msg.PostID, msg.ID)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", errBadMessage, msg.Op)
	}
}

func render(sess *session.Session, ev session.Event) outbound {
	switch ev.Type {
	case session.EventURL:
		return outbound{Type: msgURL, Query: ev.Query}
	case session.EventComments:
		cv := sess.Comments(ev.PostID)
		return outbound{Type: msgComments, Comments: &cv}
	default:
		v := sess.View()
		return outbound{Type: msgView, View: &v}
	}
}

var errBadMessage = errors.New("bad message")

func errMissing(field string) error {
	return fmt.Errorf("%w: %s is required", errBadMessage, field)
}

func errorMessage(ref, op string, err error) outbound {
	kind, _ := classify(err)
	return outbound{Type: msgError, Ref: ref, Op: op, Kind: kind, Error: err.Error()}
}

// classify относит ошибку к категории для клиента.
func classify(err error) (string, int) {
	var verr *mutation.ValidationError
	var gerr *gateway.GatewayError
	switch {
	case errors.As(err, &verr):
		return "validation", http.StatusUnprocessableEntity
	case errors.Is(err, query.ErrInvalidState), errors.Is(err, errBadMessage):
		return "invalid", http.StatusBadRequest
	case errors.Is(err, mutation.ErrNotCached):
		return "notCached", http.StatusConflict
	case errors.As(err, &gerr):
		if gerr.Kind == gateway.HTTPStatus && gerr.StatusCode == http.StatusNotFound {
			return gerr.Kind.String(), http.StatusNotFound
		}
		return gerr.Kind.String(), http.StatusBadGateway
	default:
		return "internal", http.StatusInternalServerError
	}
}
