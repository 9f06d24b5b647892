package reviews

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"bookgrading/pkg/models"
)

type Input struct {
	Rating  int
	Comment string
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create stores a review for bookID. The caller checks that the book exists;
// a missing book surfaces as a foreign key violation from the store.
func (s *Service) Create(ctx context.Context, bookID uint, in Input) (*models.Review, error) {
	review := &models.Review{
		Rating:  in.Rating,
		Comment: in.Comment,
		BookID:  bookID,
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review for book %d: %w", bookID, err)
	}
	return review, nil
}

func (s *Service) ListForBook(ctx context.Context, bookID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).Where("book_id = ?", bookID).Order("id ASC").Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for book %d: %w", bookID, err)
	}
	return reviews, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Review{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}
