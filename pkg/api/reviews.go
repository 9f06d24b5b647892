package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"bookgrading/pkg/catalog"
	"bookgrading/pkg/models"
	"bookgrading/pkg/reviews"
)

type ReviewsController struct {
	books   *catalog.Service
	reviews *reviews.Service
}

func NewReviewsController(books *catalog.Service, reviews *reviews.Service) *ReviewsController {
	return &ReviewsController{books: books, reviews: reviews}
}

func (ctl *ReviewsController) Create(c *gin.Context) {
	id, ok := bookID(c, "book_id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBindError(c, err)
		return
	}

	book, err := ctl.books.Get(c.Request.Context(), id)
	if err != nil {
		internalError(c, err)
		return
	}
	if book == nil {
		bookNotFound(c)
		return
	}

	review, err := ctl.reviews.Create(c.Request.Context(), id, req.input())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReviewResponse(*review))
}

func (ctl *ReviewsController) ListForBook(c *gin.Context) {
	id, ok := bookID(c, "id")
	if !ok {
		return
	}

	book, err := ctl.books.Get(c.Request.Context(), id)
	if err != nil {
		internalError(c, err)
		return
	}
	if book == nil {
		bookNotFound(c)
		return
	}

	list, err := ctl.reviews.ListForBook(c.Request.Context(), id)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(list, func(r models.Review, _ int) reviewResponse {
		return newReviewResponse(r)
	}))
}
