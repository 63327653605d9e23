package mutation

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind - тип мутации.
type Kind string

const (
	KindCreatePost    Kind = "createPost"
	KindUpdatePost    Kind = "updatePost"
	KindDeletePost    Kind = "deletePost"
	KindCreateComment Kind = "createComment"
	KindUpdateComment Kind = "updateComment"
	KindDeleteComment Kind = "deleteComment"
	KindLikeComment   Kind = "likeComment"
)

// Status - стадия мутации.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Pending - оптимистичное изменение, ожидающее ответа сервера.
// Snapshot - состояние до изменения, по нему выполняется откат.
type Pending struct {
	ID         uuid.UUID
	Kind       Kind
	Status     Status
	Optimistic any
	Snapshot   any
	Err        error
}

// ValidationError - некорректный локальный ввод; сеть не вызывалась.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
