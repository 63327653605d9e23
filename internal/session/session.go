// Package session связывает кэш, контроллер запроса, мутации и загрузчики
// в один объект с явным временем жизни.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/UkralStul/posts-manager/internal/cache"
	"github.com/UkralStul/posts-manager/internal/dataloader"
	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/gateway"
	"github.com/UkralStul/posts-manager/internal/mutation"
	"github.com/UkralStul/posts-manager/internal/projection"
	"github.com/UkralStul/posts-manager/internal/query"
)

// Session - состояние одного окна: создается при открытии, закрывается при уходе.
type Session struct {
	ID uuid.UUID

	gw    gateway.Gateway
	store *cache.Store
	ctrl  *query.Controller
	muts  *mutation.Coordinator
	users *dataloader.Loaders
	obs   *observer
	log   *slog.Logger
}

// Config - параметры сессии.
type Config struct {
	UserCacheSize int
	Logger        *slog.Logger
}

// New создает сессию поверх шлюза. Данные не загружаются до первого Navigate.
func New(gw gateway.Gateway, cfg Config) (*Session, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	id := uuid.New()
	log = log.With("session", id.String())

	users, err := dataloader.New(gw, cfg.UserCacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create loaders: %w", err)
	}

	s := &Session{
		ID:    id,
		gw:    gw,
		store: cache.New(cache.WithLogger(log)),
		users: users,
		obs:   newObserver(),
		log:   log,
	}
	nav := query.NavigatorFunc(func(q string) {
		s.obs.publish(Event{Type: EventURL, Query: q})
	})
	s.ctrl = query.NewController(gw, s.store, nav,
		query.WithLogger(log),
		query.WithOnResolve(func(query.Resolution) { s.obs.publish(Event{Type: EventView}) }),
	)
	s.muts = mutation.New(gw, s.store,
		mutation.WithLogger(log),
		mutation.WithNotify(func() { s.obs.publish(Event{Type: EventView}) }),
	)
	return s, nil
}

// Close сбрасывает кэш и закрывает каналы подписчиков.
func (s *Session) Close() {
	s.store.Close()
	s.obs.close()
	s.log.Debug("session closed")
}

// Subscribe возвращает канал событий сессии.
func (s *Session) Subscribe(ctx context.Context) <-chan Event {
	return s.obs.subscribe(ctx)
}

// === Reads ===

// State возвращает текущее состояние запроса.
func (s *Session) State() query.State { return s.ctrl.State() }

// URL возвращает строку запроса для текущего состояния.
func (s *Session) URL() string { return query.Encode(s.ctrl.State()).Encode() }

// View возвращает отображаемый список. Пока новое состояние грузится,
// показывается последнее разрешенное с флагом Loading.
func (s *Session) View() projection.View {
	if res, ok := s.ctrl.Displayed(); ok && s.ctrl.Loading() {
		v := projection.Project(s.store, res.State)
		v.Loading = true
		return v
	}
	return projection.Project(s.store, s.ctrl.State())
}

// Pending возвращает неподтвержденные мутации.
func (s *Session) Pending() []mutation.Pending { return s.muts.Pending() }

// Navigate обрабатывает входящую навигацию.
func (s *Session) Navigate(ctx context.Context, location string) error {
	return quiet(s.ctrl.Navigate(ctx, location))
}

// Stage принимает изменение состояния и записывает URL сразу. Загрузка
// выполняется возвращенной функцией; ответ, устаревший к ее концу, отбрасывается без ошибки.
func (s *Session) Stage(change query.Change) (func(context.Context) error, error) {
	st, err := s.ctrl.Stage(change)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error { return quiet(st.Resolve(ctx)) }, nil
}

// StageLocation принимает состояние из входящей навигации; загрузка - как у Stage.
func (s *Session) StageLocation(location string) func(context.Context) error {
	st := s.ctrl.StageLocation(location)
	return func(ctx context.Context) error { return quiet(st.Resolve(ctx)) }
}

// Refresh заново разрешает текущее состояние.
func (s *Session) Refresh(ctx context.Context) error {
	return quiet(s.ctrl.Refresh(ctx))
}

func (s *Session) SetSearch(ctx context.Context, v string) error {
	return quiet(s.ctrl.SetSearch(ctx, v))
}

func (s *Session) SetTag(ctx context.Context, v string) error {
	return quiet(s.ctrl.SetTag(ctx, v))
}

func (s *Session) SetSortBy(ctx context.Context, v string) error {
	return quiet(s.ctrl.SetSortBy(ctx, v))
}

func (s *Session) SetSortOrder(ctx context.Context, v string) error {
	return quiet(s.ctrl.SetSortOrder(ctx, v))
}

func (s *Session) SetLimit(ctx context.Context, v int) error {
	return quiet(s.ctrl.SetLimit(ctx, v))
}

func (s *Session) SetSkip(ctx context.Context, v int) error {
	return quiet(s.ctrl.SetSkip(ctx, v))
}

// Tags возвращает словарь тегов; загружается один раз за сессию.
func (s *Session) Tags(ctx context.Context) ([]domain.Tag, error) {
	e, err := s.store.Ensure(ctx, cache.TagsKey(), query.Loader(s.gw, cache.TagsKey()))
	if err != nil && !e.HasData() {
		return nil, err
	}
	tags, _ := e.Data.([]domain.Tag)
	return tags, nil
}

// PostDetail - открытый пост с комментариями. Заголовок и текст
// размечены по текущей строке поиска.
type PostDetail struct {
	Post     domain.Post             `json:"post"`
	Title    []projection.Segment    `json:"title"`
	Body     []projection.Segment    `json:"body"`
	Comments projection.CommentsView `json:"comments"`
}

// OpenPost загружает комментарии поста (не чаще одного раза, пока они не устарели).
func (s *Session) OpenPost(ctx context.Context, postID int) (PostDetail, error) {
	key := cache.CommentsKey(postID)
	_, err := s.store.Ensure(ctx, key, query.Loader(s.gw, key))
	post, _ := s.store.Post(postID)
	search := s.ctrl.State().Search
	d := PostDetail{
		Post:     post,
		Title:    projection.Highlight(post.Title, search),
		Body:     projection.Highlight(post.Body, search),
		Comments: projection.Comments(s.store, postID),
	}
	s.obs.publish(Event{Type: EventComments, PostID: postID})
	return d, err
}

// Comments возвращает закэшированные комментарии поста без загрузки.
func (s *Session) Comments(postID int) projection.CommentsView {
	return projection.Comments(s.store, postID)
}

// User возвращает детали пользователя для карточки автора.
func (s *Session) User(ctx context.Context, id int) (domain.User, error) {
	return s.users.User(ctx, id)
}

// === Mutations ===

// CreatePost добавляет пост в голову текущего списка.
func (s *Session) CreatePost(ctx context.Context, draft domain.NewPost) (domain.Post, error) {
	into := s.ctrl.State().Mode().Key()
	p, err := s.muts.CreatePost(ctx, draft, into)
	if err != nil {
		return p, err
	}
	s.refetch(ctx)
	return p, nil
}

func (s *Session) UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (domain.Post, error) {
	p, err := s.muts.UpdatePost(ctx, id, patch)
	if err != nil {
		return p, err
	}
	s.refetch(ctx)
	return p, nil
}

func (s *Session) DeletePost(ctx context.Context, id int) error {
	if err := s.muts.DeletePost(ctx, id); err != nil {
		return err
	}
	s.refetch(ctx)
	return nil
}

func (s *Session) CreateComment(ctx context.Context, draft domain.NewComment) (domain.Comment, error) {
	c, err := s.muts.CreateComment(ctx, draft)
	s.obs.publish(Event{Type: EventComments, PostID: draft.PostID})
	return c, err
}

func (s *Session) UpdateComment(ctx context.Context, postID, id int, body string) (domain.Comment, error) {
	c, err := s.muts.UpdateComment(ctx, postID, id, body)
	s.obs.publish(Event{Type: EventComments, PostID: postID})
	return c, err
}

func (s *Session) DeleteComment(ctx context.Context, postID, id int) error {
	err := s.muts.DeleteComment(ctx, postID, id)
	s.obs.publish(Event{Type: EventComments, PostID: postID})
	return err
}

func (s *Session) LikeComment(ctx context.Context, postID, id int) (domain.Comment, error) {
	c, err := s.muts.LikeComment(ctx, postID, id)
	s.obs.publish(Event{Type: EventComments, PostID: postID})
	return c, err
}

// refetch перезагружает устаревший после мутации список.
// Ошибка загрузки остается в записи кэша и видна в View.
func (s *Session) refetch(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("refetch after mutation failed", "err", err)
	}
}

// quiet скрывает отброшенные устаревшие ответы от вызывающего.
func quiet(err error) error {
	if errors.Is(err, query.ErrStaleResponse) {
		return nil
	}
	return err
}
