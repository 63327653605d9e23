package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/UkralStul/posts-manager/internal/cache"
)

const (
	DefaultLimit     = 10
	DefaultSortOrder = "asc"
	// AllTags - значение фильтра тегов, означающее отсутствие фильтра.
	AllTags = "all"
)

// LimitMenu - допустимые размеры страницы.
var LimitMenu = []int{10, 20, 30}

// SortKeys - допустимые ключи сортировки; "" и "none" не меняют порядок.
var SortKeys = []string{"", "none", "id", "title", "reactions"}

// State - единственный источник того, что загружается и отображается.
type State struct {
	Skip      int
	Limit     int
	Search    string
	Tag       string
	SortBy    string
	SortOrder string
}

// DefaultState возвращает состояние без фильтров.
func DefaultState() State {
	return State{Limit: DefaultLimit, SortOrder: DefaultSortOrder}
}

// Validate проверяет инварианты состояния.
func (s State) Validate() error {
	if s.Skip < 0 {
		return fmt.Errorf("skip must be non-negative, got %d", s.Skip)
	}
	if !slices.Contains(LimitMenu, s.Limit) {
		return fmt.Errorf("limit must be one of %v, got %d", LimitMenu, s.Limit)
	}
	if !slices.Contains(SortKeys, s.SortBy) {
		return fmt.Errorf("unknown sortBy %q", s.SortBy)
	}
	if s.SortOrder != "asc" && s.SortOrder != "desc" {
		return fmt.Errorf("sortOrder must be asc or desc, got %q", s.SortOrder)
	}
	return nil
}

// ModeKind - стратегия загрузки для состояния.
type ModeKind int

const (
	ModePaged ModeKind = iota
	ModeByTag
	ModeSearch
)

func (k ModeKind) String() string {
	switch k {
	case ModeSearch:
		return "search"
	case ModeByTag:
		return "byTag"
	default:
		return "paged"
	}
}

// Mode - разрешенный режим загрузки.
type Mode struct {
	Kind  ModeKind
	Query string
	Tag   string
	Skip  int
	Limit int
}

// Mode разрешает режим по приоритету: поиск, затем тег, затем постраничный список.
func (s State) Mode() Mode {
	if strings.TrimSpace(s.Search) != "" {
		return Mode{Kind: ModeSearch, Query: s.Search}
	}
	if s.Tag != "" && s.Tag != AllTags {
		return Mode{Kind: ModeByTag, Tag: s.Tag}
	}
	return Mode{Kind: ModePaged, Skip: s.Skip, Limit: s.Limit}
}

// Key возвращает ключ кэша режима.
func (m Mode) Key() cache.Key {
	switch m.Kind {
	case ModeSearch:
		return cache.SearchKey(m.Query)
	case ModeByTag:
		return cache.PostsByTagKey(m.Tag)
	default:
		return cache.PostsKey(m.Skip, m.Limit)
	}
}

// ClientPaged сообщает, что окно skip/limit режется на клиенте:
// поиск и фильтр по тегу возвращают весь набор сразу.
func (m Mode) ClientPaged() bool {
	return m.Kind != ModePaged
}
