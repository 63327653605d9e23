package mutation

import (
	"slices"

	"github.com/google/uuid"

	"github.com/UkralStul/posts-manager/internal/domain"
)

type commentRef struct {
	postID int
	id     int
}

type pendingBody struct {
	token uuid.UUID
	body  string
}

// bodyEdits - подтвержденный текст комментария и правки, которые еще в пути.
// Показывается последняя правка в пути, без них - подтвержденный текст.
type bodyEdits struct {
	base    string
	pending []pendingBody
}

func (e *bodyEdits) view() string {
	if n := len(e.pending); n > 0 {
		return e.pending[n-1].body
	}
	return e.base
}

// beginBody показывает body в кэше. Возвращает false, если комментария нет в кэше.
func (c *Coordinator) beginBody(ref commentRef, token uuid.UUID, body string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.store.Comment(ref.postID, ref.id)
	if !ok {
		return false
	}
	e, ok := c.bodies[ref]
	if !ok {
		e = &bodyEdits{base: cur.Body}
		c.bodies[ref] = e
	}
	e.pending = append(e.pending, pendingBody{token: token, body: body})
	c.setBody(ref, e.view())
	return true
}

// endBody снимает правку token. confirmed - текст из ответа сервера или nil при ошибке.
func (c *Coordinator) endBody(ref commentRef, token uuid.UUID, confirmed *string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.bodies[ref]
	if !ok {
		return
	}
	e.pending = slices.DeleteFunc(e.pending, func(p pendingBody) bool { return p.token == token })
	if confirmed != nil {
		e.base = *confirmed
	}
	c.setBody(ref, e.view())
	if len(e.pending) == 0 {
		delete(c.bodies, ref)
	}
}

func (c *Coordinator) setBody(ref commentRef, body string) {
	c.store.UpdateComments(ref.postID, func(cs []domain.Comment) []domain.Comment {
		return replaceComment(cs, ref.id, func(cur domain.Comment) domain.Comment {
			cur.Body = body
			return cur
		})
	})
}
