package cache

import (
	"fmt"
	"strconv"
)

// Kind - тип ресурса в составе ключа кэша.
type Kind string

const (
	KindPosts         Kind = "posts"
	KindPostsByTag    Kind = "postsByTag"
	KindSearch        Kind = "search"
	KindComments      Kind = "comments"
	KindTags          Kind = "tags"
	KindUserSummaries Kind = "userSummaries"
)

// Key - составной идентификатор одного загружаемого ресурса.
// Значимы только поля, относящиеся к Kind; ключ сравним и годится для map.
type Key struct {
	Kind   Kind
	Skip   int
	Limit  int
	Tag    string
	Query  string
	PostID int
}

func PostsKey(skip, limit int) Key { return Key{Kind: KindPosts, Skip: skip, Limit: limit} }
func PostsByTagKey(tag string) Key { return Key{Kind: KindPostsByTag, Tag: tag} }
func SearchKey(query string) Key   { return Key{Kind: KindSearch, Query: query} }
func CommentsKey(postID int) Key   { return Key{Kind: KindComments, PostID: postID} }
func TagsKey() Key                 { return Key{Kind: KindTags} }
func UserSummariesKey() Key        { return Key{Kind: KindUserSummaries} }

// IsPostList сообщает, что ключ адресует список постов.
func (k Key) IsPostList() bool {
	switch k.Kind {
	case KindPosts, KindPostsByTag, KindSearch:
		return true
	}
	return false
}

func (k Key) String() string {
	switch k.Kind {
	case KindPosts:
		return fmt.Sprintf("posts(%d,%d)", k.Skip, k.Limit)
	case KindPostsByTag:
		return "postsByTag(" + strconv.Quote(k.Tag) + ")"
	case KindSearch:
		return "search(" + strconv.Quote(k.Query) + ")"
	case KindComments:
		return "comments(" + strconv.Itoa(k.PostID) + ")"
	default:
		return string(k.Kind)
	}
}

// Matcher выбирает ключи для инвалидации.
type Matcher func(Key) bool

// PostLists - группа инвалидации после любой мутации поста.
func PostLists() Matcher {
	return func(k Key) bool { return k.IsPostList() }
}

// Comments - группа инвалидации после мутации комментария поста postID.
func Comments(postID int) Matcher {
	return func(k Key) bool { return k.Kind == KindComments && k.PostID == postID }
}

// Exact выбирает ровно один ключ.
func Exact(key Key) Matcher {
	return func(k Key) bool { return k == key }
}
