// Package seed loads the starter catalogue into an empty store.
package seed

import (
	"context"

	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"go.uber.org/zap"
)

const FreeCategory = "Free"

func freeBooks() []models.Book {
	return []models.Book{
		{Name: "Learn JavaScript Basics", Price: 0, Category: FreeCategory,
			Image: "https://m.media-amazon.com/images/I/51HbNW6RPhL.jpg",
			Title: "Master JavaScript fundamentals with practical examples"},
		{Name: "Python for Beginners", Price: 0, Category: FreeCategory,
			Image: "https://m.media-amazon.com/images/I/71PpYvxwB+L._AC_UF1000,1000_QL80_.jpg",
			Title: "Start your programming journey with Python"},
		{Name: "Web Development Guide", Price: 0, Category: FreeCategory,
			Image: "https://m.media-amazon.com/images/I/61-F+by9+fL._AC_UF1000,1000_QL80_.jpg",
			Title: "Complete guide to modern web development"},
		{Name: "Data Structures 101", Price: 0, Category: FreeCategory,
			Image: "https://m.media-amazon.com/images/I/61P3-ofH0ML._AC_UF1000,1000_QL80_.jpg",
			Title: "Essential data structures concepts explained"},
		{Name: "Introduction to AI", Price: 0, Category: FreeCategory,
			Image: "https://m.media-amazon.com/images/I/71RLz+cYHdL._AC_UF1000,1000_QL80_.jpg",
			Title: "Basic concepts of Artificial Intelligence"},
	}
}

func paidBooks() []models.Book {
	return []models.Book{
		{Name: "To Kill a Mockingbird", Price: 15.99, Category: "Fiction",
			Image: "https://example.com/image1.jpg", Title: "A classic novel by Harper Lee"},
		{Name: "The Great Gatsby", Price: 12.99, Category: "Fiction",
			Image: "https://example.com/image2.jpg", Title: "A novel by F. Scott Fitzgerald"},
		{Name: "1984", Price: 10.99, Category: "Dystopian",
			Image: "https://example.com/image3.jpg", Title: "A classic dystopian novel by George Orwell"},
		{Name: "The Catcher in the Rye", Price: 9.99, Category: "Fiction",
			Image: "https://example.com/image4.jpg", Title: "A classic coming-of-age novel by J.D. Salinger"},
		{Name: "The Hitchhiker's Guide to the Galaxy", Price: 14.99, Category: "Science Fiction",
			Image: "https://example.com/image5.jpg", Title: "A comedic science fiction series by Douglas Adams"},
	}
}

// Books inserts the paid catalogue into an empty collection and the free
// books when none exist. Running it again is a no-op.
func Books(ctx context.Context, books repository.BookRepository, log *zap.Logger) error {
	total, err := books.Count(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		if err := insert(ctx, books, paidBooks()); err != nil {
			return err
		}
		log.Info("paid books seeded")
	}

	free, err := books.CountByCategory(ctx, FreeCategory)
	if err != nil {
		return err
	}
	if free > 0 {
		log.Debug("free books already present", zap.Int64("count", free))
		return nil
	}
	if err := insert(ctx, books, freeBooks()); err != nil {
		return err
	}
	log.Info("free books seeded")
	return nil
}

func insert(ctx context.Context, repo repository.BookRepository, list []models.Book) error {
	for i := range list {
		list[i].Reviews = []models.Review{}
	}
	return repo.InsertMany(ctx, list)
}
