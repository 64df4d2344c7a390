package postgres

import (
	"context"
	"errors"

	"github.com/openshelf/openshelf/internal/genre"
	"gorm.io/gorm"
)

type GenreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) genre.RepositoryAPI {
	return &GenreRepository{db: db}
}

func (r *GenreRepository) GetAll(ctx context.Context) ([]*genre.Genre, error) {
	var genres []*genre.Genre
	err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error
	return genres, err
}

func (r *GenreRepository) GetByID(ctx context.Context, id int64) (*genre.Genre, error) {
	var g genre.Genre
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, genre.ErrGenreNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GenreRepository) GetByName(ctx context.Context, name string) (*genre.Genre, error) {
	var g genre.Genre
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, genre.ErrGenreNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GenreRepository) Create(ctx context.Context, g *genre.Genre) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GenreRepository) Update(ctx context.Context, g *genre.Genre) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *GenreRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&genre.Genre{}).Error
}
