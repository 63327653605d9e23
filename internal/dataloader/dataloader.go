// Package dataloader склеивает запросы деталей пользователя.
// Результаты живут в собственном LRU и не попадают в кэш сессии.
package dataloader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/graph-gophers/dataloader"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/gateway"
)

// DefaultCacheSize - число пользователей, которых помнит загрузчик.
const DefaultCacheSize = 128

// Loaders содержит дата-лоадеры сессии.
type Loaders struct {
	UserByID *dataloader.Loader
	cache    *lruCache
}

// New создает лоадеры поверх шлюза. size <= 0 заменяется DefaultCacheSize.
func New(gw gateway.Gateway, size int, log *slog.Logger) (*Loaders, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if log == nil {
		log = slog.Default()
	}
	c, err := newLRUCache(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create user cache: %w", err)
	}

	// Батч-функция: у API нет пакетного эндпоинта, поэтому ключи
	// батча запрашиваются параллельно, по одному запросу на ID.
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		var wg sync.WaitGroup
		for i, key := range keys {
			wg.Add(1)
			go func(i int, key dataloader.Key) {
				defer wg.Done()
				id, err := strconv.Atoi(key.String())
				if err != nil {
					results[i] = &dataloader.Result{Error: fmt.Errorf("invalid user key %q: %w", key.String(), err)}
					return
				}
				user, err := gw.GetUser(ctx, id)
				if err != nil {
					results[i] = &dataloader.Result{Error: err}
					return
				}
				results[i] = &dataloader.Result{Data: user}
			}(i, key)
		}
		wg.Wait()
		log.Debug("user batch loaded", "keys", len(keys))
		return results
	}

	return &Loaders{
		UserByID: dataloader.NewBatchedLoader(batchFn,
			dataloader.WithCache(c),
			dataloader.WithWait(time.Millisecond*1),
		),
		cache: c,
	}, nil
}

// User возвращает детали пользователя. Ошибка не запоминается:
// следующий вызов повторит запрос.
func (l *Loaders) User(ctx context.Context, id int) (domain.User, error) {
	key := userKey(id)
	data, err := l.UserByID.Load(ctx, key)()
	if err != nil {
		l.UserByID.Clear(ctx, key)
		return domain.User{}, err
	}
	user, ok := data.(domain.User)
	if !ok {
		return domain.User{}, fmt.Errorf("unexpected user loader result %T", data)
	}
	return user, nil
}

// Forget удаляет пользователя из кэша загрузчика.
func (l *Loaders) Forget(ctx context.Context, id int) {
	l.UserByID.Clear(ctx, userKey(id))
}

// Cached возвращает число запомненных пользователей.
func (l *Loaders) Cached() int {
	return l.cache.lru.Len()
}

func userKey(id int) dataloader.Key {
	return dataloader.StringKey(strconv.Itoa(id))
}

// lruCache реализует dataloader.Cache поверх golang-lru.
type lruCache struct {
	lru *lru.Cache[string, dataloader.Thunk]
}

var _ dataloader.Cache = (*lruCache)(nil)

func newLRUCache(size int) (*lruCache, error) {
	c, err := lru.New[string, dataloader.Thunk](size)
	if err != nil {
		return nil, err
	}
	return &lruCache{lru: c}, nil
}

func (c *lruCache) Get(_ context.Context, key dataloader.Key) (dataloader.Thunk, bool) {
	return c.lru.Get(key.String())
}

func (c *lruCache) Set(_ context.Context, key dataloader.Key, value dataloader.Thunk) {
	c.lru.Add(key.String(), value)
}

func (c *lruCache) Delete(_ context.Context, key dataloader.Key) bool {
	return c.lru.Remove(key.String())
}

func (c *lruCache) Clear() {
	c.lru.Purge()
}
