package models

import (
	"time"
)

type GenreName string

const (
	GenreFiction        GenreName = "Fiction"
	GenreScienceFiction GenreName = "Science Fiction"
	GenreFantasy        GenreName = "Fantasy"
	GenreMystery        GenreName = "Mystery"
	GenreBiography      GenreName = "Biography"
	GenreHistory        GenreName = "History"
	GenreRomance        GenreName = "Romance"
)

var Genres = []GenreName{
	GenreFiction,
	GenreScienceFiction,
	GenreFantasy,
	GenreMystery,
	GenreBiography,
	GenreHistory,
	GenreRomance,
}

func (g GenreName) Valid() bool {
	for _, name := range Genres {
		if g == name {
			return true
		}
	}
	return false
}

type Book struct {
	ID            uint     `gorm:"primaryKey"`
	Title         string   `gorm:"size:150;not null;index"`
	Author        string   `gorm:"size:100;not null"`
	Description   string   `gorm:"type:text;not null"`
	YearPublished int      `gorm:"not null"`
	Pages         int      `gorm:"not null;check:pages >= 0"`
	Reviews       []Review `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Genres        []Genre  `gorm:"many2many:book_genres;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Genre struct {
	ID        uint      `gorm:"primaryKey"`
	Name      GenreName `gorm:"size:50;not null;uniqueIndex"`
	CreatedAt time.Time
}

type Review struct {
	ID        uint   `gorm:"primaryKey"`
	Rating    int    `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string `gorm:"type:text;not null"`
	BookID    uint   `gorm:"not null;index"`
	CreatedAt time.Time
}

// GenreNames returns the names of the book's genres in attachment order.
func (b *Book) GenreNames() []GenreName {
	names := make([]GenreName, len(b.Genres))
	for i, g := range b.Genres {
		names[i] = g.Name
	}
	return names
}

// All returns every table the service owns, in migration order.
func All() []interface{} {
	return []interface{}{&Genre{}, &Book{}, &Review{}}
}
