package api

import (
	"github.com/samber/lo"

	"bookgrading/pkg/catalog"
	"bookgrading/pkg/models"
	"bookgrading/pkg/reviews"
)

// bookRequest is the body of POST and PUT /books. Fields are pointers so
// required only rejects absent or null values and "" reaches the length
// checks. Genres being nil lets PUT tell a missing or null list (keep) from an
// empty one (clear).
type bookRequest struct {
	Title         *string             `json:"title" binding:"required,min=1,max=150"`
	Author        *string             `json:"author" binding:"required,min=1,max=100"`
	Description   *string             `json:"description" binding:"required,min=10,max=2000"`
	YearPublished *int                `json:"year_published" binding:"required,gte=1800,notfuture"`
	Pages         *int                `json:"pages" binding:"required,gte=0"`
	Genres        *[]models.GenreName `json:"genres" binding:"omitempty,dive,genre"`
}

func (r bookRequest) input() catalog.BookInput {
	in := catalog.BookInput{
		Title:         *r.Title,
		Author:        *r.Author,
		Description:   *r.Description,
		YearPublished: *r.YearPublished,
		Pages:         *r.Pages,
	}
	if r.Genres != nil {
		in.Genres = *r.Genres
	}
	return in
}

func (r bookRequest) update() catalog.BookUpdate {
	genres := catalog.KeepGenres()
	if r.Genres != nil {
		genres = catalog.ReplaceGenres(*r.Genres...)
	}
	return catalog.BookUpdate{
		Title:         *r.Title,
		Author:        *r.Author,
		Description:   *r.Description,
		YearPublished: *r.YearPublished,
		Pages:         *r.Pages,
		Genres:        genres,
	}
}

type reviewRequest struct {
	Rating  *int    `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment" binding:"required,min=5,max=500"`
}

func (r reviewRequest) input() reviews.Input {
	return reviews.Input{Rating: *r.Rating, Comment: *r.Comment}
}

type genreResponse struct {
	Name models.GenreName `json:"name"`
}

type reviewResponse struct {
	ID      uint   `json:"id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type bookResponse struct {
	ID            uint             `json:"id"`
	Title         string           `json:"title"`
	Author        string           `json:"author"`
	Description   string           `json:"description"`
	YearPublished int              `json:"year_published"`
	Pages         int              `json:"pages"`
	Genres        []genreResponse  `json:"genres"`
	Reviews       []reviewResponse `json:"reviews"`
}

func newReviewResponse(r models.Review) reviewResponse {
	return reviewResponse{ID: r.ID, Rating: r.Rating, Comment: r.Comment}
}

func newBookResponse(b models.Book) bookResponse {
	return bookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		Description:   b.Description,
		YearPublished: b.YearPublished,
		Pages:         b.Pages,
		Genres: lo.Map(b.Genres, func(g models.Genre, _ int) genreResponse {
			return genreResponse{Name: g.Name}
		}),
		Reviews: lo.Map(b.Reviews, func(r models.Review, _ int) reviewResponse {
			return newReviewResponse(r)
		}),
	}
}
