package cache

import (
	"slices"

	"github.com/UkralStul/posts-manager/internal/domain"
)

// === Posts table ===

// Post возвращает пост из нормализованной таблицы.
func (s *Store) Post(id int) (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	return p, ok
}

// PostList возвращает запись списка вместе с постами в порядке списка.
// Отсутствующие в таблице ID пропускаются.
func (s *Store) PostList(key Key) (Entry, []domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{Key: key, Status: Idle}, nil, false
	}
	out := e.clone()
	list, isList := out.Data.(PostList)
	if !isList {
		return out, nil, true
	}
	posts := make([]domain.Post, 0, len(list.IDs))
	for _, id := range list.IDs {
		if p, found := s.posts[id]; found {
			posts = append(posts, p)
		}
	}
	return out, posts, true
}

// PutPost записывает версию сервера в таблицу; списки не меняются.
// Неподтвержденные изменения поста остаются поверх нее.
func (s *Store) PutPost(post domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putPostLocked(post)
}

// InsertPost добавляет пост в таблицу и в голову списка into (если он закэширован).
func (s *Store) InsertPost(post domain.Post, into Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts[post.ID] = post
	e, ok := s.entries[into]
	if !ok {
		return false
	}
	list, isList := e.Data.(PostList)
	if !isList {
		return false
	}
	e.Data = PostList{IDs: append([]int{post.ID}, list.IDs...), Total: list.Total + 1}
	return true
}

// ReplacePostID переносит пост с временного ID на подтвержденный во всех списках.
func (s *Store) ReplacePostID(oldID int, post domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.posts, oldID)
	s.posts[post.ID] = post
	for _, e := range s.entries {
		list, ok := e.Data.(PostList)
		if !ok {
			continue
		}
		if i := slices.Index(list.IDs, oldID); i >= 0 {
			ids := slices.Clone(list.IDs)
			ids[i] = post.ID
			e.Data = PostList{IDs: ids, Total: list.Total}
		}
	}
}

// PostRemoval - снимок удаленного поста для отката.
type PostRemoval struct {
	Post      domain.Post
	Found     bool
	Positions map[Key]int
}

// RemovePost удаляет пост из таблицы и из всех списков, запоминая позиции.
func (s *Store) RemovePost(id int) PostRemoval {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, found := s.posts[id]
	r := PostRemoval{Post: post, Found: found, Positions: make(map[Key]int)}
	delete(s.posts, id)
	for key, e := range s.entries {
		list, ok := e.Data.(PostList)
		if !ok {
			continue
		}
		i := slices.Index(list.IDs, id)
		if i < 0 {
			continue
		}
		r.Positions[key] = i
		total := list.Total - 1
		if total < 0 {
			total = 0
		}
		e.Data = PostList{IDs: slices.Delete(slices.Clone(list.IDs), i, i+1), Total: total}
	}
	return r
}

// RestorePost возвращает пост, удаленный RemovePost, на прежние позиции.
func (s *Store) RestorePost(r PostRemoval) {
	if !r.Found {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts[r.Post.ID] = r.Post
	for key, pos := range r.Positions {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		list, isList := e.Data.(PostList)
		if !isList || slices.Contains(list.IDs, r.Post.ID) {
			continue
		}
		if pos > len(list.IDs) {
			pos = len(list.IDs)
		}
		e.Data = PostList{IDs: slices.Insert(slices.Clone(list.IDs), pos, r.Post.ID), Total: list.Total + 1}
	}
}

// === Comments ===

// UpdateComments применяет fn к закэшированному списку комментариев поста.
// Возвращает false, если список еще не загружался.
func (s *Store) UpdateComments(postID int, fn func([]domain.Comment) []domain.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[CommentsKey(postID)]
	if !ok {
		return false
	}
	comments, isList := e.Data.([]domain.Comment)
	if !isList {
		return false
	}
	e.Data = fn(slices.Clone(comments))
	return true
}

// Comment ищет комментарий в закэшированном списке поста.
func (s *Store) Comment(postID, id int) (domain.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[CommentsKey(postID)]
	if !ok {
		return domain.Comment{}, false
	}
	comments, _ := e.Data.([]domain.Comment)
	for _, c := range comments {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Comment{}, false
}
