package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/UkralStul/posts-manager/internal/cache"
	"github.com/UkralStul/posts-manager/internal/gateway"
)

// ErrStaleResponse - ответ пришел для состояния, которое уже сменилось; он отброшен.
// Это внутренний сигнал, а не ошибка для пользователя.
var ErrStaleResponse = errors.New("stale response discarded")

// ErrInvalidState - setter получил значение вне допустимого диапазона.
var ErrInvalidState = errors.New("invalid query state")

// Navigator получает строку запроса после каждого изменения состояния через setter.
// Push не должен вызывать методы Controller.
type Navigator interface {
	Push(query string)
}

// NavigatorFunc адаптирует функцию к Navigator.
type NavigatorFunc func(query string)

func (f NavigatorFunc) Push(query string) { f(query) }

// Resolution - последнее полностью разрешенное состояние.
type Resolution struct {
	State State
	Mode  Mode
	Seq   uint64
	Err   error
}

// Controller владеет состоянием запроса и синхронизирует его с URL.
// Запись в URL - чистая функция состояния; чтение URL происходит только в Navigate.
type Controller struct {
	gw        gateway.Gateway
	store     *cache.Store
	nav       Navigator
	log       *slog.Logger
	onResolve func(Resolution)

	mu          sync.Mutex
	state       State
	seq         uint64
	resolved    Resolution
	hasResolved bool
}

// Option настраивает Controller.
type Option func(*Controller)

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

// WithOnResolve задает функцию, вызываемую после каждого принятого разрешения.
func WithOnResolve(fn func(Resolution)) Option { return func(c *Controller) { c.onResolve = fn } }

// NewController создает контроллер с состоянием по умолчанию.
func NewController(gw gateway.Gateway, store *cache.Store, nav Navigator, opts ...Option) *Controller {
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	c := &Controller{
		gw:        gw,
		store:     store,
		nav:       nav,
		log:       slog.Default(),
		onResolve: func(Resolution) {},
		state:     DefaultState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State возвращает текущее (возможно, еще не разрешенное) состояние.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Displayed возвращает последнее полностью разрешенное состояние.
func (c *Controller) Displayed() (Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved, c.hasResolved
}

// Loading сообщает, что текущее состояние еще не разрешено.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.hasResolved || c.resolved.Seq != c.seq
}

// === Changes ===

// Change - изменение состояния запроса. Ошибка отклоняет изменение целиком.
type Change func(*State) error

// ChangeSearch меняет строку поиска и сбрасывает skip.
func ChangeSearch(search string) Change {
	return func(s *State) error {
		s.Search = search
		s.Skip = 0
		return nil
	}
}

// ChangeTag меняет фильтр по тегу и сбрасывает skip.
func ChangeTag(tag string) Change {
	return func(s *State) error {
		s.Tag = tag
		s.Skip = 0
		return nil
	}
}

// ChangeSortBy меняет ключ сортировки и сбрасывает skip.
func ChangeSortBy(sortBy string) Change {
	return func(s *State) error {
		if !slices.Contains(SortKeys, sortBy) {
			return fmt.Errorf("%w: unknown sortBy %q", ErrInvalidState, sortBy)
		}
		s.SortBy = sortBy
		s.Skip = 0
		return nil
	}
}

// ChangeSortOrder меняет направление сортировки и сбрасывает skip.
func ChangeSortOrder(order string) Change {
	return func(s *State) error {
		if order != "asc" && order != "desc" {
			return fmt.Errorf("%w: sortOrder must be asc or desc, got %q", ErrInvalidState, order)
		}
		s.SortOrder = order
		s.Skip = 0
		return nil
	}
}

// ChangeLimit меняет размер страницы и сбрасывает skip.
func ChangeLimit(limit int) Change {
	return func(s *State) error {
		if !slices.Contains(LimitMenu, limit) {
			return fmt.Errorf("%w: limit must be one of %v, got %d", ErrInvalidState, LimitMenu, limit)
		}
		s.Limit = limit
		s.Skip = 0
		return nil
	}
}

// ChangeSkip переходит к окну, начинающемуся с skip.
func ChangeSkip(skip int) Change {
	return func(s *State) error {
		if skip < 0 {
			return fmt.Errorf("%w: skip must be non-negative, got %d", ErrInvalidState, skip)
		}
		s.Skip = skip
		return nil
	}
}

// Staged - принятое состояние, данные для которого еще не загружены.
type Staged struct {
	c       *Controller
	seq     uint64
	state   State
	changed bool
}

// State возвращает принятое состояние.
func (st Staged) State() State { return st.state }

// Resolve загружает данные принятого состояния. Если состояние не менялось,
// ничего не делает. ErrStaleResponse - состояние сменилось за время загрузки.
func (st Staged) Resolve(ctx context.Context) error {
	if !st.changed {
		return nil
	}
	return st.c.resolve(ctx, st.seq, st.state)
}

// Stage применяет изменение и записывает URL, не дожидаясь загрузки.
// Вызовы Stage упорядочены: каждый следующий видит результат предыдущего.
func (c *Controller) Stage(change Change) (Staged, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state
	if err := change(&next); err != nil {
		return Staged{}, err
	}
	if next == c.state {
		return Staged{c: c, seq: c.seq, state: next}, nil
	}
	c.state = next
	c.seq++
	// под замком, чтобы порядок записей в URL совпадал с порядком состояний
	c.nav.Push(Encode(next).Encode())
	return Staged{c: c, seq: c.seq, state: next, changed: true}, nil
}

// StageLocation принимает состояние из входящей навигации (назад/вперед,
// вставленная ссылка). Это единственный путь URL -> состояние; URL при этом не записывается.
func (c *Controller) StageLocation(location string) Staged {
	next, err := ParseLocation(location, c.log)
	if err != nil {
		c.log.Warn("malformed location, using defaults", "location", location, "err", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = next
	c.seq++
	return Staged{c: c, seq: c.seq, state: next, changed: true}
}

// === Setters ===

func (c *Controller) SetSearch(ctx context.Context, search string) error {
	return c.update(ctx, ChangeSearch(search))
}

func (c *Controller) SetTag(ctx context.Context, tag string) error {
	return c.update(ctx, ChangeTag(tag))
}

func (c *Controller) SetSortBy(ctx context.Context, sortBy string) error {
	return c.update(ctx, ChangeSortBy(sortBy))
}

func (c *Controller) SetSortOrder(ctx context.Context, order string) error {
	return c.update(ctx, ChangeSortOrder(order))
}

func (c *Controller) SetLimit(ctx context.Context, limit int) error {
	return c.update(ctx, ChangeLimit(limit))
}

func (c *Controller) SetSkip(ctx context.Context, skip int) error {
	return c.update(ctx, ChangeSkip(skip))
}

// Navigate принимает состояние из location и разрешает его.
func (c *Controller) Navigate(ctx context.Context, location string) error {
	return c.StageLocation(location).Resolve(ctx)
}

// Refresh повторно разрешает текущее состояние (например, после инвалидации).
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	st := c.state
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	return c.resolve(ctx, seq, st)
}

func (c *Controller) update(ctx context.Context, change Change) error {
	st, err := c.Stage(change)
	if err != nil {
		return err
	}
	return st.Resolve(ctx)
}

// resolve загружает данные режима и принимает результат, только если
// состояние не сменилось за время загрузки.
func (c *Controller) resolve(ctx context.Context, seq uint64, st State) error {
	mode := st.Mode()
	key := mode.Key()

	_, err := c.store.Ensure(ctx, key, Loader(c.gw, key))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, uerr := c.store.Ensure(ctx, cache.UserSummariesKey(), Loader(c.gw, cache.UserSummariesKey())); uerr != nil {
		c.log.Warn("user summaries unavailable, authors will be missing", "err", uerr)
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.log.Debug("discarding stale response", "key", key.String(), "seq", seq)
		return ErrStaleResponse
	}
	res := Resolution{State: st, Mode: mode, Seq: seq, Err: err}
	c.resolved = res
	c.hasResolved = true
	c.mu.Unlock()

	c.onResolve(res)
	return err
}
