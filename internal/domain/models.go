package domain

// Reactions - счетчики реакций поста.
type Reactions struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// Post представляет пост в системе.
// Author заполняется на клиенте по UserID и не является авторитетным.
type Post struct {
	ID        int        `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string     `json:"title" gorm:"type:varchar(255);not null"`
	Body      string     `json:"body" gorm:"type:text;not null"`
	UserID    int        `json:"userId" gorm:"not null;index"`
	Tags      []string   `json:"tags,omitempty" gorm:"serializer:json"`
	Reactions *Reactions `json:"reactions,omitempty" gorm:"serializer:json"`
	Author    *User      `json:"author,omitempty" gorm:"-"`
}

// Likes возвращает количество лайков или 0, если реакций нет.
func (p Post) Likes() int {
	if p.Reactions == nil {
		return 0
	}
	return p.Reactions.Likes
}

// CommentUser - краткая информация об авторе комментария.
type CommentUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID     int         `json:"id" gorm:"primaryKey;autoIncrement"`
	Body   string      `json:"body" gorm:"type:varchar(2000);not null"`
	PostID int         `json:"postId" gorm:"not null;index"`
	UserID int         `json:"userId" gorm:"not null"`
	User   CommentUser `json:"user" gorm:"serializer:json"`
	Likes  int         `json:"likes" gorm:"not null;default:0"`
}

type Address struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
}

type Company struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// User - пользователь. Система его только читает.
type User struct {
	ID        int      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string   `json:"username" gorm:"type:varchar(255);not null;uniqueIndex"`
	Image     string   `json:"image"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Age       int      `json:"age,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Address   *Address `json:"address,omitempty" gorm:"serializer:json"`
	Company   *Company `json:"company,omitempty" gorm:"serializer:json"`
}

// Tag - элемент словаря тегов.
type Tag struct {
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// PostPage - ответ списочных эндпоинтов постов.
type PostPage struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

// CommentPage - ответ эндпоинта комментариев поста.
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// UserPage - ответ эндпоинта пользователей.
type UserPage struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

// NewPost - черновик создаваемого поста.
type NewPost struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	UserID int      `json:"userId"`
	Tags   []string `json:"tags,omitempty"`
}

// PostPatch - изменяемые поля поста. Nil - поле не меняется.
type PostPatch struct {
	Title *string  `json:"title,omitempty"`
	Body  *string  `json:"body,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Apply возвращает копию поста с примененными изменениями.
func (p PostPatch) Apply(post Post) Post {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Body != nil {
		post.Body = *p.Body
	}
	if p.Tags != nil {
		post.Tags = append([]string(nil), p.Tags...)
	}
	return post
}

// NewComment - черновик создаваемого комментария.
type NewComment struct {
	Body   string `json:"body"`
	PostID int    `json:"postId"`
	UserID int    `json:"userId"`
}
