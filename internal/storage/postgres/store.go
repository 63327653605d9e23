package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.Comment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// notFound переводит gorm.ErrRecordNotFound в storage.ErrNotFound.
func notFound(err error, what string, id int) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s with id %d: %w", what, id, storage.ErrNotFound)
	}
	return err
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if strings.TrimSpace(post.Title) == "" {
		return nil, errors.New("post title cannot be empty")
	}
	stored := *post
	stored.ID = 0
	stored.Author = nil
	if stored.Reactions == nil {
		stored.Reactions = &domain.Reactions{}
	}
	if err := s.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]domain.Post, int, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []domain.Post
	query := s.db.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, int(total), nil
}

func (s *Store) GetPostsByTag(ctx context.Context, tag string) ([]domain.Post, error) {
	contains, err := json.Marshal([]string{tag})
	if err != nil {
		return nil, err
	}
	var posts []domain.Post
	// tags хранится как JSON-массив, проверяем вхождение через jsonb-containment
	err = s.db.WithContext(ctx).
		Where("tags::jsonb @> ?::jsonb", string(contains)).
		Order("id ASC").
		Find(&posts).Error
	return posts, err
}

func (s *Store) SearchPosts(ctx context.Context, query string) ([]domain.Post, error) {
	var posts []domain.Post
	pattern := "%" + escapeLike(query) + "%"
	err := s.db.WithContext(ctx).
		Where("title ILIKE ? OR body ILIKE ?", pattern, pattern).
		Order("id ASC").
		Find(&posts).Error
	return posts, err
}

func (s *Store) GetTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := s.db.WithContext(ctx).
		Raw("SELECT DISTINCT jsonb_array_elements_text(tags::jsonb) AS tag FROM posts WHERE tags IS NOT NULL").
		Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *Store) UpdatePost(ctx context.Context, id int, patch domain.PostPatch) (*domain.Post, error) {
	var post domain.Post
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			return notFound(err, "post", id)
		}
		post = patch.Apply(post)
		return tx.Save(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) DeletePost(ctx context.Context, id int) (*domain.Post, error) {
	var post domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			return notFound(err, "post", id)
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Post{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if strings.TrimSpace(user.Username) == "" {
		return nil, errors.New("username cannot be empty")
	}
	stored := *user
	stored.ID = 0
	if err := s.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) GetUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Валидация
	if len(comment.Body) > 2000 {
		return nil, errors.New("comment body is too long")
	}
	if strings.TrimSpace(comment.Body) == "" {
		return nil, errors.New("comment body cannot be empty")
	}

	stored := *comment
	stored.ID = 0
	// Проверяем существование поста и автора в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
		}
		var author domain.User
		if err := tx.First(&author, "id = ?", comment.UserID).Error; err == nil {
			stored.User = domain.CommentUser{ID: author.ID, Username: author.Username, FullName: strings.TrimSpace(author.FirstName + " " + author.LastName)}
		}
		return tx.Create(&stored).Error
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID int) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (s *Store) UpdateCommentBody(ctx context.Context, id int, body string) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("comment body cannot be empty")
	}
	return s.updateComment(ctx, id, map[string]any{"body": body})
}

func (s *Store) UpdateCommentLikes(ctx context.Context, id int, likes int) (*domain.Comment, error) {
	if likes < 0 {
		return nil, errors.New("likes cannot be negative")
	}
	return s.updateComment(ctx, id, map[string]any{"likes": likes})
}

func (s *Store) updateComment(ctx context.Context, id int, fields map[string]any) (*domain.Comment, error) {
	var comment domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, "id = ?", id).Error; err != nil {
			return notFound(err, "comment", id)
		}
		return tx.Model(&comment).Updates(fields).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, id int) (*domain.Comment, error) {
	var comment domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, "id = ?", id).Error; err != nil {
			return notFound(err, "comment", id)
		}
		return tx.Delete(&domain.Comment{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// escapeLike экранирует спецсимволы LIKE, чтобы поиск был буквальным.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
