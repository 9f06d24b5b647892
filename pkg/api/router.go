// Package api exposes the book catalog, reviews and live stats over HTTP.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"bookgrading/pkg/catalog"
	"bookgrading/pkg/reviews"
	"bookgrading/pkg/stats"
)

type Options struct {
	// AllowedOrigins is matched by both CORS and the websocket origin check.
	// A single "*" allows any origin.
	AllowedOrigins []string
	StatsInterval  time.Duration
}

func NewRouter(db *gorm.DB, opts Options) *gin.Engine {
	registerValidators()

	books := catalog.NewService(db)
	bookReviews := reviews.NewService(db)
	broadcaster := stats.NewBroadcaster(books, bookReviews, opts.StatsInterval)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	}

	booksCtl := NewBooksController(books)
	reviewsCtl := NewReviewsController(books, bookReviews)

	router.GET("/books", booksCtl.List)
	router.POST("/books", booksCtl.Create)
	router.GET("/books/:id", booksCtl.Get)
	router.PUT("/books/:id", booksCtl.Update)
	router.DELETE("/books/:id", booksCtl.Delete)
	router.GET("/books/:id/reviews", reviewsCtl.ListForBook)
	router.POST("/reviews/:book_id", reviewsCtl.Create)

	router.GET("/ws", stats.Handler(broadcaster, originAllowed(opts.AllowedOrigins)))
	router.GET("/manage/health", healthCheck(db))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if lo.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	return cfg
}

func originAllowed(origins []string) func(string) bool {
	if lo.Contains(origins, "*") {
		return func(string) bool { return true }
	}
	return func(origin string) bool {
		return lo.Contains(origins, origin)
	}
}
