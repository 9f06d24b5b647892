package catalog

import (
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookgrading/pkg/models"
)

type genreAction int

const (
	genresKeep genreAction = iota
	genresClear
	genresReplace
)

// GenreUpdate says what an update does to a book's genre set. The zero value
// leaves the set untouched.
type GenreUpdate struct {
	action genreAction
	names  []models.GenreName
}

func KeepGenres() GenreUpdate {
	return GenreUpdate{action: genresKeep}
}

func ClearGenres() GenreUpdate {
	return GenreUpdate{action: genresClear}
}

// ReplaceGenres makes the book's genre set exactly names. An empty list is
// the same as ClearGenres.
func ReplaceGenres(names ...models.GenreName) GenreUpdate {
	if len(names) == 0 {
		return ClearGenres()
	}
	return GenreUpdate{action: genresReplace, names: names}
}

func (u GenreUpdate) String() string {
	switch u.action {
	case genresClear:
		return "clear"
	case genresReplace:
		return fmt.Sprintf("replace%v", u.names)
	default:
		return "keep"
	}
}

// ensureGenres resolves names to genre rows, inserting the missing ones.
// The insert is ON CONFLICT DO NOTHING against the unique name index, so two
// writers racing on a new name both end up with the same row.
func ensureGenres(tx *gorm.DB, names []models.GenreName) ([]models.Genre, error) {
	names = lo.Uniq(names)
	if len(names) == 0 {
		return nil, nil
	}

	rows := lo.Map(names, func(name models.GenreName, _ int) models.Genre {
		return models.Genre{Name: name}
	})
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert genres: %w", err)
	}

	// ids from a partially conflicting insert are unreliable, read them back
	var stored []models.Genre
	if err := tx.Where("name IN ?", names).Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}
	byName := lo.KeyBy(stored, func(g models.Genre) models.GenreName { return g.Name })

	genres := make([]models.Genre, 0, len(names))
	for _, name := range names {
		g, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("genre %q missing after upsert", name)
		}
		genres = append(genres, g)
	}
	return genres, nil
}
