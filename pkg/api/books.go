package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"bookgrading/pkg/catalog"
	"bookgrading/pkg/models"
)

type BooksController struct {
	books *catalog.Service
}

func NewBooksController(books *catalog.Service) *BooksController {
	return &BooksController{books: books}
}

func (ctl *BooksController) List(c *gin.Context) {
	var filter *models.GenreName
	if raw, ok := c.GetQuery("genre"); ok {
		genre := models.GenreName(raw)
		if !genre.Valid() {
			abortValidation(c, "enum", "genre", "Input should be "+genreChoices())
			return
		}
		filter = &genre
	}

	books, err := ctl.books.List(c.Request.Context(), filter)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(books, func(b models.Book, _ int) bookResponse {
		return newBookResponse(b)
	}))
}

func (ctl *BooksController) Get(c *gin.Context) {
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
	c.JSON(http.StatusOK, newBookResponse(*book))
}

func (ctl *BooksController) Create(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBindError(c, err)
		return
	}

	book, err := ctl.books.Create(c.Request.Context(), req.input())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookResponse(*book))
}

func (ctl *BooksController) Update(c *gin.Context) {
	id, ok := bookID(c, "id")
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBindError(c, err)
		return
	}

	book, found, err := ctl.books.Update(c.Request.Context(), id, req.update())
	if err != nil {
		internalError(c, err)
		return
	}
	if !found {
		bookNotFound(c)
		return
	}
	c.JSON(http.StatusOK, newBookResponse(*book))
}

func (ctl *BooksController) Delete(c *gin.Context) {
	id, ok := bookID(c, "id")
	if !ok {
		return
	}

	deleted, err := ctl.books.Delete(c.Request.Context(), id)
	if err != nil {
		internalError(c, err)
		return
	}
	if !deleted {
		bookNotFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Book deleted"})
}

func bookNotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Book not found"})
}

func internalError(c *gin.Context, err error) {
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
}
