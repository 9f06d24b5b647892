package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bookgrading/pkg/database"
	"bookgrading/pkg/models"
	"bookgrading/pkg/reviews"
)

const description = "A test description with enough length."

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(context.Background(), "sqlite://", database.Options{Attempts: 1, LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newBook(title string, genres ...models.GenreName) BookInput {
	return BookInput{
		Title:         title,
		Author:        "Test Author",
		Description:   description,
		YearPublished: 2020,
		Pages:         100,
		Genres:        genres,
	}
}

func updateOf(in BookInput, genres GenreUpdate) BookUpdate {
	return BookUpdate{
		Title:         in.Title,
		Author:        in.Author,
		Description:   in.Description,
		YearPublished: in.YearPublished,
		Pages:         in.Pages,
		Genres:        genres,
	}
}

func TestCreateBook(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	book, err := svc.Create(ctx, newBook("Test Book", models.GenreFiction))
	require.NoError(t, err)

	assert.NotZero(t, book.ID)
	assert.Equal(t, "Test Book", book.Title)
	require.Len(t, book.Genres, 1)
	assert.Equal(t, models.GenreFiction, book.Genres[0].Name)
	assert.NotZero(t, book.Genres[0].ID)
}

func TestCreateThenGet_CopiesScalars(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	in := BookInput{
		Title:         "Solaris",
		Author:        "Stanisław Lem",
		Description:   "A planet-sized ocean resists every attempt at contact.",
		YearPublished: 1961,
		Pages:         0,
	}
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	found, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	assert.Equal(t, in.Title, found.Title)
	assert.Equal(t, in.Author, found.Author)
	assert.Equal(t, in.Description, found.Description)
	assert.Equal(t, in.YearPublished, found.YearPublished)
	assert.Equal(t, in.Pages, found.Pages)
	assert.Empty(t, found.Genres)
	assert.Empty(t, found.Reviews)
}

func TestGetBook_Missing(t *testing.T) {
	svc := NewService(setupTestDB(t))

	book, err := svc.Get(context.Background(), 999)

	require.NoError(t, err)
	assert.Nil(t, book)
}

// Concurrent creators are not exercised here: the sqlite pool holds a single
// connection, so writers never interleave. Convergence under a race rests on
// the unique index on genres.name and the ON CONFLICT DO NOTHING insert in
// ensureGenres.
func TestCreateBook_ReusesGenreRows(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	first, err := svc.Create(ctx, newBook("First", models.GenreFiction))
	require.NoError(t, err)
	second, err := svc.Create(ctx, newBook("Second", models.GenreFiction, models.GenreMystery))
	require.NoError(t, err)

	assert.Equal(t, first.Genres[0].ID, second.Genres[0].ID)

	var count int64
	require.NoError(t, db.Model(&models.Genre{}).Where("name = ?", models.GenreFiction).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateBook_CollapsesRepeatedGenres(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	book, err := svc.Create(ctx, newBook("Twice", models.GenreFantasy, models.GenreFantasy))
	require.NoError(t, err)

	assert.Equal(t, []models.GenreName{models.GenreFantasy}, book.GenreNames())
}

func TestListBooks_AllAndFilter(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	_, err := svc.Create(ctx, newBook("SciFi Book", models.GenreScienceFiction))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newBook("Romance Book", models.GenreRomance))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newBook("Untagged"))
	require.NoError(t, err)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scifi := models.GenreScienceFiction
	filtered, err := svc.List(ctx, &scifi)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "SciFi Book", filtered[0].Title)
	assert.Equal(t, []models.GenreName{models.GenreScienceFiction}, filtered[0].GenreNames())

	history := models.GenreHistory
	none, err := svc.List(ctx, &history)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListBooks_FilterKeepsOtherGenres(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	_, err := svc.Create(ctx, newBook("Mixed", models.GenreHistory, models.GenreBiography))
	require.NoError(t, err)

	history := models.GenreHistory
	books, err := svc.List(ctx, &history)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.ElementsMatch(t, []models.GenreName{models.GenreHistory, models.GenreBiography}, books[0].GenreNames())
}

func TestUpdateBook_Fields(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	created, err := svc.Create(ctx, newBook("Old Title"))
	require.NoError(t, err)

	in := newBook("New Title")
	in.Pages = 150
	updated, found, err := svc.Update(ctx, created.ID, updateOf(in, KeepGenres()))
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, 150, updated.Pages)
	assert.Equal(t, "Test Author", updated.Author)
}

func TestUpdateBook_GenreReconciliation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	in := newBook("BBB", models.GenreFiction)
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	step1, _, err := svc.Update(ctx, created.ID, updateOf(in, ReplaceGenres(models.GenreFiction)))
	require.NoError(t, err)
	assert.Equal(t, []models.GenreName{models.GenreFiction}, step1.GenreNames())

	step2, _, err := svc.Update(ctx, created.ID, updateOf(in, ReplaceGenres(models.GenreFantasy)))
	require.NoError(t, err)
	assert.Equal(t, []models.GenreName{models.GenreFantasy}, step2.GenreNames())

	step3, _, err := svc.Update(ctx, created.ID, updateOf(in, ClearGenres()))
	require.NoError(t, err)
	assert.Empty(t, step3.Genres)
}

func TestUpdateBook_KeepLeavesGenres(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	in := newBook("Keeper", models.GenreMystery, models.GenreHistory)
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	in.Title = "Keeper, Revised"
	updated, _, err := svc.Update(ctx, created.ID, updateOf(in, GenreUpdate{}))
	require.NoError(t, err)

	assert.Equal(t, "Keeper, Revised", updated.Title)
	assert.ElementsMatch(t, []models.GenreName{models.GenreMystery, models.GenreHistory}, updated.GenreNames())
}

func TestUpdateBook_ReplaceIsNotMerge(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	in := newBook("Swap", models.GenreFiction, models.GenreRomance)
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	updated, _, err := svc.Update(ctx, created.ID, updateOf(in, ReplaceGenres(models.GenreRomance, models.GenreHistory)))
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.GenreName{models.GenreRomance, models.GenreHistory}, updated.GenreNames())

	// detached genres stay in the table
	fiction := models.GenreFiction
	books, err := svc.List(ctx, &fiction)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestUpdateBook_Missing(t *testing.T) {
	svc := NewService(setupTestDB(t))

	book, found, err := svc.Update(context.Background(), 42, updateOf(newBook("Ghost"), ClearGenres()))

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, book)
}

func TestDeleteBook(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	created, err := svc.Create(ctx, newBook("Delete Me", models.GenreFiction))
	require.NoError(t, err)

	ok, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	ok, err = svc.Delete(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteBook_CascadesReviews(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)
	reviewSvc := reviews.NewService(db)

	doomed, err := svc.Create(ctx, newBook("Doomed", models.GenreFiction))
	require.NoError(t, err)
	kept, err := svc.Create(ctx, newBook("Kept", models.GenreFiction))
	require.NoError(t, err)

	for _, id := range []uint{doomed.ID, doomed.ID, kept.ID} {
		_, err := reviewSvc.Create(ctx, id, reviews.Input{Rating: 4, Comment: "Good read"})
		require.NoError(t, err)
	}

	ok, err := svc.Delete(ctx, doomed.ID)
	require.NoError(t, err)
	require.True(t, ok)

	orphans, err := reviewSvc.ListForBook(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	total, err := reviewSvc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	var links int64
	require.NoError(t, db.Table("book_genres").Where("book_id = ?", doomed.ID).Count(&links).Error)
	assert.Zero(t, links)

	// the shared genre row survives
	remaining, err := svc.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.GenreName{models.GenreFiction}, remaining.GenreNames())
}

func TestCountBooks_InterleavedWrites(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	a, err := svc.Create(ctx, newBook("A"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newBook("B"))
	require.NoError(t, err)
	_, err = svc.Delete(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, newBook("C"))
	require.NoError(t, err)
	_, err = svc.Delete(ctx, a.ID)
	require.NoError(t, err)

	n, err = svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestGenreUpdate_Constructors(t *testing.T) {
	assert.Equal(t, "keep", GenreUpdate{}.String())
	assert.Equal(t, KeepGenres(), GenreUpdate{})
	assert.Equal(t, ClearGenres(), ReplaceGenres())
	assert.Equal(t, "replace[Fantasy]", ReplaceGenres(models.GenreFantasy).String())
}
