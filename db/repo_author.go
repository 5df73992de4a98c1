package db

import (
	"context"

	"github.com/google/uuid"

	"library-lending/models"
)

// Authors。建书时的 findOrCreateAuthor（repo_book.go）仍然复用，
// 这里是独立的作者管理。

func (r *Repo) ListAuthors(ctx context.Context) ([]models.Author, error) {
	var authors []models.Author
	err := r.DB.WithContext(ctx).Preload("Books").Order("name").Find(&authors).Error
	return authors, err
}

func (r *Repo) FindAuthorByID(ctx context.Context, id string) (*models.Author, error) {
	var a models.Author
	if err := r.DB.WithContext(ctx).Preload("Books").First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindAuthorByName(ctx context.Context, name string) (*models.Author, error) {
	var a models.Author
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) CreateAuthor(ctx context.Context, name, bio string) (*models.Author, error) {
	a := models.Author{ID: uuid.NewString(), Name: name, Bio: bio}
	if err := r.DB.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// 只改标量字段，避免 Save 连带写 many2many 关联
func (r *Repo) UpdateAuthor(ctx context.Context, a *models.Author) error {
	return r.DB.WithContext(ctx).Model(&models.Author{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{"name": a.Name, "bio": a.Bio}).Error
}

// DeleteAuthor removes the author row. Callers must have verified the
// author has no books left; the join table has no rows for such authors.
func (r *Repo) DeleteAuthor(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Delete(&models.Author{ID: id}).Error
}
