package mockapi

import (
	"context"
	"fmt"

	"github.com/UkralStul/posts-manager/internal/domain"
	"github.com/UkralStul/posts-manager/internal/storage"
)

// Seed заполняет хранилище демонстрационными данными.
func Seed(ctx context.Context, s storage.Storage) error {
	users := []domain.User{
		{Username: "emilys", FirstName: "Emily", LastName: "Johnson", Age: 28, Email: "emily.johnson@x.dummyjson.com",
			Image: "https://dummyjson.com/icon/emilys/128", Address: &domain.Address{Address: "626 Main Street", City: "Phoenix", State: "Mississippi"},
			Company: &domain.Company{Name: "Dooley, Kozey and Cronin", Title: "Sales Manager"}},
		{Username: "michaelw", FirstName: "Michael", LastName: "Williams", Age: 35, Email: "michael.williams@x.dummyjson.com",
			Image: "https://dummyjson.com/icon/michaelw/128", Address: &domain.Address{Address: "385 Fifth Street", City: "Houston", State: "Alabama"},
			Company: &domain.Company{Name: "Spinka - Dickinson", Title: "Support Specialist"}},
		{Username: "sophiab", FirstName: "Sophia", LastName: "Brown", Age: 42, Email: "sophia.brown@x.dummyjson.com",
			Image: "https://dummyjson.com/icon/sophiab/128"},
	}
	for i := range users {
		if _, err := s.CreateUser(ctx, &users[i]); err != nil {
			return fmt.Errorf("seed: failed to create user %s: %w", users[i].Username, err)
		}
	}

	posts := []domain.Post{
		{Title: "His mother had always taught him", Body: "His mother had always taught him not to ever think of himself as better than others.",
			UserID: 1, Tags: []string{"history", "american", "crime"}, Reactions: &domain.Reactions{Likes: 192, Dislikes: 25}},
		{Title: "He was an expert but not in a discipline", Body: "He was an expert but not in a discipline that anyone could fully appreciate.",
			UserID: 2, Tags: []string{"french", "fiction", "english"}, Reactions: &domain.Reactions{Likes: 859, Dislikes: 32}},
		{Title: "Dave watched as the forest burned up on the hill", Body: "Dave watched as the forest burned up on the hill, only a few miles from her house.",
			UserID: 3, Tags: []string{"magical", "history", "french"}, Reactions: &domain.Reactions{Likes: 1448, Dislikes: 39}},
		{Title: "All he wanted was a candy bar", Body: "All he wanted was a candy bar. It didn't seem like a difficult request to comprehend.",
			UserID: 1, Tags: []string{"mystery", "english", "american"}, Reactions: &domain.Reactions{Likes: 359, Dislikes: 18}},
		{Title: "Hopes and dreams were dashed that day", Body: "Hopes and dreams were dashed that day. It should have been expected.",
			UserID: 2, Tags: []string{"crime", "mystery", "love"}, Reactions: &domain.Reactions{Likes: 119, Dislikes: 30}},
	}
	for i := range posts {
		if _, err := s.CreatePost(ctx, &posts[i]); err != nil {
			return fmt.Errorf("seed: failed to create post %q: %w", posts[i].Title, err)
		}
	}

	comments := []domain.Comment{
		{PostID: 1, UserID: 2, Body: "This is some awesome thinking!", Likes: 3},
		{PostID: 1, UserID: 3, Body: "What terrific math skills you're showing!", Likes: 1},
		{PostID: 3, UserID: 1, Body: "You are an amazing writer!"},
	}
	for i := range comments {
		if _, err := s.CreateComment(ctx, &comments[i]); err != nil {
			return fmt.Errorf("seed: failed to create comment on post %d: %w", comments[i].PostID, err)
		}
	}
	return nil
}
