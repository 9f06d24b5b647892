// Package catalog implements the book catalog: CRUD over books and the
// reconciliation of each book's genre set.
//
// Every method runs on a session bound to the caller's context. Writes run in
// a single transaction each, so a book is never left linked to part of the
// genre set a caller asked for.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookgrading/pkg/models"
)

// BookInput carries the validated scalar fields of a book plus the genres to
// attach on create.
type BookInput struct {
	Title         string
	Author        string
	Description   string
	YearPublished int
	Pages         int
	Genres        []models.GenreName
}

type BookUpdate struct {
	Title         string
	Author        string
	Description   string
	YearPublished int
	Pages         int
	Genres        GenreUpdate
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.id ASC") }).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("reviews.id ASC") })
}

// List returns every book, or only those tagged with genre when it is non-nil.
func (s *Service) List(ctx context.Context, genre *models.GenreName) ([]models.Book, error) {
	db := s.db.WithContext(ctx)
	query := withRelations(db).Order("books.id ASC")
	if genre != nil {
		tagged := db.Table("book_genres").
			Select("book_genres.book_id").
			Joins("JOIN genres ON genres.id = book_genres.genre_id").
			Where("genres.name = ?", *genre)
		query = query.Where("books.id IN (?)", tagged)
	}

	var books []models.Book
	if err := query.Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Get returns the book with the given id, or nil if there is none.
func (s *Service) Get(ctx context.Context, id uint) (*models.Book, error) {
	return getBook(s.db.WithContext(ctx), id)
}

func getBook(db *gorm.DB, id uint) (*models.Book, error) {
	var book models.Book
	err := withRelations(db).First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return &book, nil
}

func (s *Service) Create(ctx context.Context, in BookInput) (*models.Book, error) {
	book := models.Book{
		Title:         in.Title,
		Author:        in.Author,
		Description:   in.Description,
		YearPublished: in.YearPublished,
		Pages:         in.Pages,
		Reviews:       []models.Review{},
		Genres:        []models.Genre{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres, err := ensureGenres(tx, in.Genres)
		if err != nil {
			return err
		}
		if genres != nil {
			book.Genres = genres
		}
		// genre rows already exist, only the join rows are written
		return tx.Omit("Genres.*").Create(&book).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return &book, nil
}

// Update overwrites the book's scalar fields and applies the genre update.
// The boolean is false, with a nil book, when no book has that id.
func (s *Service) Update(ctx context.Context, id uint, in BookUpdate) (*models.Book, bool, error) {
	var updated *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		err := lockForUpdate(tx).First(&book, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		err = tx.Model(&book).Omit(clause.Associations).Updates(map[string]interface{}{
			"title":          in.Title,
			"author":         in.Author,
			"description":    in.Description,
			"year_published": in.YearPublished,
			"pages":          in.Pages,
		}).Error
		if err != nil {
			return err
		}

		if err := applyGenres(tx, &book, in.Genres); err != nil {
			return err
		}

		updated, err = getBook(tx, id)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to update book %d: %w", id, err)
	}
	return updated, updated != nil, nil
}

// lockForUpdate adds SELECT ... FOR UPDATE on drivers with row locks. SQLite
// serialises writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func applyGenres(tx *gorm.DB, book *models.Book, update GenreUpdate) error {
	switch update.action {
	case genresClear:
		return tx.Model(book).Association("Genres").Clear()
	case genresReplace:
		genres, err := ensureGenres(tx, update.names)
		if err != nil {
			return err
		}
		return tx.Model(book).Association("Genres").Replace(genres)
	default:
		return nil
	}
}

// Delete removes the book together with its reviews and genre links. It
// reports false when no book has that id.
func (s *Service) Delete(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM book_genres WHERE book_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete book %d: %w", id, err)
	}
	return deleted, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Book{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}
