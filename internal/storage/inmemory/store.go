package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/storage"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu             sync.RWMutex
	posts          map[int]*domain.Post
	users          map[int]*domain.User
	comments       map[int]*domain.Comment
	commentsByPost map[int][]int // map[postID][]commentID в порядке создания
	nextPostID     int
	nextUserID     int
	nextCommentID  int
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:          make(map[int]*domain.Post),
		users:          make(map[int]*domain.User),
		comments:       make(map[int]*domain.Comment),
		commentsByPost: make(map[int][]int),
	}
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(post.Title) == "" {
		return nil, errors.New("post title cannot be empty")
	}
	s.nextPostID++
	stored := *post
	stored.ID = s.nextPostID
	stored.Author = nil
	if stored.Reactions == nil {
		stored.Reactions = &domain.Reactions{}
	}
	s.posts[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]domain.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedPosts(func(*domain.Post) bool { return true })
	total := len(all)
	if offset >= total {
		return []domain.Post{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *Store) GetPostsByTag(ctx context.Context, tag string) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedPosts(func(p *domain.Post) bool {
		for _, t := range p.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) SearchPosts(ctx context.Context, query string) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	return s.sortedPosts(func(p *domain.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Body), q)
	}), nil
}

func (s *Store) GetTags(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.posts {
		for _, t := range p.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *Store) UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	updated := patch.Apply(*post)
	s.posts[id] = &updated
	out := updated
	return &out, nil
}

func (s *Store) DeletePost(ctx context.Context, id int) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	delete(s.posts, id)
	for _, cID := range s.commentsByPost[id] {
		delete(s.comments, cID)
	}
	delete(s.commentsByPost, id)
	out := *post
	return &out, nil
}

// sortedPosts - вспомогательная функция: копии постов по возрастанию ID.
func (s *Store) sortedPosts(keep func(*domain.Post) bool) []domain.Post {
	out := make([]domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(user.Username) == "" {
		return nil, errors.New("username cannot be empty")
	}
	s.nextUserID++
	stored := *user
	stored.ID = s.nextUserID
	s.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *Store) GetUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d: %w", id, storage.ErrNotFound)
	}
	out := *user
	return &out, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста
	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
	}

	// Проверка длины комментария
	if len(comment.Body) > 2000 {
		return nil, errors.New("comment body is too long")
	}
	if strings.TrimSpace(comment.Body) == "" {
		return nil, errors.New("comment body cannot be empty")
	}

	s.nextCommentID++
	stored := *comment
	stored.ID = s.nextCommentID
	if u, ok := s.users[stored.UserID]; ok {
		stored.User = domain.CommentUser{ID: u.ID, Username: u.Username, FullName: strings.TrimSpace(u.FirstName + " " + u.LastName)}
	}
	s.comments[stored.ID] = &stored
	s.commentsByPost[stored.PostID] = append(s.commentsByPost[stored.PostID], stored.ID)

	out := stored
	return &out, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID int) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByPost[postID]
	out := make([]domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Store) UpdateCommentBody(ctx context.Context, id int, body string) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("comment body cannot be empty")
	}
	return s.updateComment(id, func(c *domain.Comment) { c.Body = body })
}

func (s *Store) UpdateCommentLikes(ctx context.Context, id int, likes int) (*domain.Comment, error) {
	if likes < 0 {
		return nil, errors.New("likes cannot be negative")
	}
	return s.updateComment(id, func(c *domain.Comment) { c.Likes = likes })
}

func (s *Store) updateComment(id int, apply func(*domain.Comment)) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment with id %d: %w", id, storage.ErrNotFound)
	}
	apply(comment)
	out := *comment
	return &out, nil
}

func (s *Store) DeleteComment(ctx context.Context, id int) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment with id %d: %w", id, storage.ErrNotFound)
	}
	delete(s.comments, id)
	ids := s.commentsByPost[comment.PostID]
	for i, cID := range ids {
		if cID == id {
			s.commentsByPost[comment.PostID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	out := *comment
	return &out, nil
}
