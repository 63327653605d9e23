package cache

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/UkralStul/posts-manager/internal/domain"
)

// ErrClosed возвращается после Close.
var ErrClosed = errors.New("cache store is closed")

// Status - состояние записи кэша.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// PostList - нормализованный результат списочного запроса:
// сами посты лежат в таблице Store, здесь только порядок ID и total.
type PostList struct {
	IDs   []int
	Total int
}

// Entry - запись кэша. Data - один из типов:
// PostList, []domain.Comment, []domain.Tag, []domain.User.
type Entry struct {
	Key       Key
	Data      any
	FetchedAt time.Time
	Status    Status
	Stale     bool
	Err       error

	gen uint64
}

// HasData сообщает, что в записи есть данные (возможно, устаревшие).
func (e Entry) HasData() bool { return e.Data != nil }

// Loader загружает данные одного ключа. Результат domain.PostPage
// нормализуется в PostList.
type Loader func(ctx context.Context) (any, error)

// call - загрузка, выполняющаяся сейчас; все ожидающие делят ее результат.
type call struct {
	done  chan struct{}
	entry Entry
	err   error
}

// Store - кэш с ключами, группами инвалидации и дедупликацией загрузок.
// Посты хранятся нормализованно: одна копия поста на ID.
type Store struct {
	mu       sync.RWMutex
	entries  map[Key]*Entry
	inflight map[Key]*call
	posts    map[int]domain.Post
	edits    map[int]*postOverlay
	editSeq  uint64
	closed   bool

	now func() time.Time
	log *slog.Logger
}

// Option настраивает Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New создает пустой кэш сессии.
func New(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[Key]*Entry),
		inflight: make(map[Key]*call),
		posts:    make(map[int]domain.Post),
		edits:    make(map[int]*postOverlay),
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get возвращает текущую запись, не запуская загрузку.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{Key: key, Status: Idle}, false
	}
	return e.clone(), true
}

// Ensure возвращает свежую Ready-запись или загружает ее.
// Одновременные вызовы для одного ключа разделяют одну загрузку.
// Загрузка не прерывается отменой ctx: отменяется только ожидание.
func (s *Store) Ensure(ctx context.Context, key Key, loader Loader) (Entry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Entry{Key: key}, ErrClosed
	}
	if e, ok := s.entries[key]; ok && e.Status == Ready && !e.Stale {
		out := e.clone()
		s.mu.Unlock()
		return out, nil
	}
	if c, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		return s.wait(ctx, key, c)
	}

	c := &call{done: make(chan struct{})}
	s.inflight[key] = c
	e := s.entryLocked(key)
	e.Status = Loading
	gen := e.gen
	s.mu.Unlock()

	s.log.Debug("cache fetch started", "key", key.String())
	go s.run(context.WithoutCancel(ctx), key, gen, loader, c)
	return s.wait(ctx, key, c)
}

func (s *Store) wait(ctx context.Context, key Key, c *call) (Entry, error) {
	select {
	case <-c.done:
		return c.entry, c.err
	case <-ctx.Done():
		return Entry{Key: key, Status: Loading}, ctx.Err()
	}
}

func (s *Store) run(ctx context.Context, key Key, gen uint64, loader Loader, c *call) {
	data, err := loader(ctx)

	s.mu.Lock()
	current := s.inflight[key] == c
	if current {
		delete(s.inflight, key)
	}
	superseded := !current && s.inflight[key] != nil
	e, ok := s.entries[key]
	switch {
	case s.closed || !ok:
		// сессия закрыта: результат отдаем только ожидающим
		c.entry = Entry{Key: key, Data: data, Status: Ready}
	case superseded:
		// ключ инвалидирован во время загрузки, и уже идет новая
		c.entry = Entry{Key: key, Data: s.normalizeLocked(data), Status: Ready, Stale: true}
	case err != nil:
		e.Status = Error
		e.Err = err
		c.entry = e.clone()
	default:
		e.Data = s.normalizeLocked(data)
		e.Status = Ready
		e.Err = nil
		e.FetchedAt = s.now()
		e.Stale = e.gen != gen
		c.entry = e.clone()
	}
	c.err = err
	s.mu.Unlock()
	close(c.done)

	if err != nil {
		s.log.Warn("cache fetch failed", "key", key.String(), "err", err)
	} else {
		s.log.Debug("cache fetch finished", "key", key.String())
	}
}

// normalizeLocked раскладывает страницу постов в таблицу и PostList.
func (s *Store) normalizeLocked(data any) any {
	page, ok := data.(domain.PostPage)
	if !ok {
		return data
	}
	ids := make([]int, 0, len(page.Posts))
	for _, p := range page.Posts {
		s.putPostLocked(p)
		ids = append(ids, p.ID)
	}
	return PostList{IDs: ids, Total: page.Total}
}

// Invalidate помечает подходящие ключи устаревшими; следующий Ensure загрузит их заново.
// Данные остаются доступными до завершения новой загрузки.
func (s *Store) Invalidate(match Matcher) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, e := range s.entries {
		if !match(key) {
			continue
		}
		e.Stale = true
		e.gen++
		delete(s.inflight, key)
		n++
	}
	if n > 0 {
		s.log.Debug("cache invalidated", "entries", n)
	}
	return n
}

// Set записывает готовые данные по ключу.
func (s *Store) Set(key Key, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(key)
	e.Data = s.normalizeLocked(data)
	e.Status = Ready
	e.Stale = false
	e.Err = nil
	e.FetchedAt = s.now()
}

// Close очищает кэш; дальнейшие Ensure возвращают ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.entries = make(map[Key]*Entry)
	s.inflight = make(map[Key]*call)
	s.posts = make(map[int]domain.Post)
	s.edits = make(map[int]*postOverlay)
}

func (s *Store) entryLocked(key Key) *Entry {
	e, ok := s.entries[key]
	if !ok {
		e = &Entry{Key: key, Status: Idle}
		s.entries[key] = e
	}
	return e
}

func (e *Entry) clone() Entry {
	out := *e
	switch d := e.Data.(type) {
	case PostList:
		out.Data = PostList{IDs: slices.Clone(d.IDs), Total: d.Total}
	case []domain.Comment:
		out.Data = slices.Clone(d)
	}
	return out
}
