package cache

import (
	"slices"

	"github.com/UkralStul/posts-manager/internal/domain"
)

// PostEdit - неподтвержденное изменение поста, наложенное поверх версии сервера.
type PostEdit struct {
	ID     int
	Before domain.Post
	After  domain.Post

	token uint64
}

type pendingPatch struct {
	token uint64
	patch domain.PostPatch
}

// postOverlay хранит последнюю версию сервера и изменения, которые еще в пути.
type postOverlay struct {
	base    domain.Post
	patches []pendingPatch
}

func (o *postOverlay) view() domain.Post {
	post := o.base
	for _, p := range o.patches {
		post = p.patch.Apply(post)
	}
	return post
}

// BeginPostEdit накладывает patch на закэшированный пост.
// Возвращает false, если поста нет в таблице.
func (s *Store) BeginPostEdit(id int, patch domain.PostPatch) (PostEdit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.posts[id]
	if !ok {
		return PostEdit{ID: id}, false
	}
	o, ok := s.edits[id]
	if !ok {
		o = &postOverlay{base: before}
		s.edits[id] = o
	}
	s.editSeq++
	o.patches = append(o.patches, pendingPatch{token: s.editSeq, patch: patch})
	after := o.view()
	s.posts[id] = after
	return PostEdit{ID: id, Before: before, After: after, token: s.editSeq}, true
}

// EndPostEdit снимает изменение. confirmed - ответ сервера или nil при ошибке;
// он становится новой базой, остальные изменения в пути накладываются поверх.
func (s *Store) EndPostEdit(edit PostEdit, confirmed *domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.edits[edit.ID]
	if !ok {
		if confirmed != nil {
			s.posts[edit.ID] = *confirmed
		}
		return
	}
	o.patches = slices.DeleteFunc(o.patches, func(p pendingPatch) bool { return p.token == edit.token })
	if confirmed != nil {
		o.base = *confirmed
	}
	// пост могли удалить, пока изменение было в пути
	if _, present := s.posts[edit.ID]; present {
		s.posts[edit.ID] = o.view()
	}
	if len(o.patches) == 0 {
		delete(s.edits, edit.ID)
	}
}

// putPostLocked записывает версию сервера, сохраняя изменения в пути.
func (s *Store) putPostLocked(post domain.Post) {
	if o, ok := s.edits[post.ID]; ok {
		o.base = post
		s.posts[post.ID] = o.view()
		return
	}
	s.posts[post.ID] = post
}
