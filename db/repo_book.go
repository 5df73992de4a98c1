package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-lending/models"
)

// Books

type CreateBookInput struct {
	Title           string
	ISBN            string
	PublicationYear int
	AverageRating   *float64
	ImageURL        string
	CopiesCount     int
	AuthorNames     []string
}

// CreateBook inserts the book, resolves or creates its authors, and
// stamps out the physical copies with generated inventory tags, all in
// one transaction.
func (r *Repo) CreateBook(ctx context.Context, in CreateBookInput) (*models.Book, error) {
	var book *models.Book
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authors := make([]models.Author, 0, len(in.AuthorNames))
		for _, name := range in.AuthorNames {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			a, err := findOrCreateAuthor(tx, name)
			if err != nil {
				return err
			}
			authors = append(authors, *a)
		}

		b := &models.Book{
			ID:              uuid.NewString(),
			Title:           in.Title,
			ISBN:            in.ISBN,
			PublicationYear: in.PublicationYear,
			AverageRating:   in.AverageRating,
			ImageURL:        in.ImageURL,
			CopiesCount:     in.CopiesCount,
			Authors:         authors,
		}
		if err := tx.Create(b).Error; err != nil {
			return err
		}

		for i := 1; i <= in.CopiesCount; i++ {
			cp := models.Copy{
				ID:           uuid.NewString(),
				BookID:       b.ID,
				InventoryTag: InventoryTag(b.ID, i),
				Condition:    models.ConditionNew,
				Status:       models.CopyAvailable,
			}
			if err := tx.Create(&cp).Error; err != nil {
				return err
			}
			b.Copies = append(b.Copies, cp)
		}
		book = b
		return nil
	})
	return book, err
}

// InventoryTag derives a copy's shelf tag from the book id and the copy
// ordinal, e.g. "9f8a7b6c-003".
func InventoryTag(bookID string, copyNumber int) string {
	prefix := bookID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s-%03d", prefix, copyNumber)
}

func findOrCreateAuthor(tx *gorm.DB, name string) (*models.Author, error) {
	var a models.Author
	err := tx.Where("name = ?", name).First(&a).Error
	if err == nil {
		return &a, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	a = models.Author{ID: uuid.NewString(), Name: name}
	if err := tx.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindBookByID(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).
		Preload("Authors").Preload("Copies").
		First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) FindBookByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).Where("isbn = ?", isbn).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

type ListBooksResult struct {
	Books []models.Book `json:"books"`
	Total int64         `json:"total"`
}

// 列表（分页 + 关键词，关键词匹配书名/ISBN/作者名）
func (r *Repo) ListBooks(ctx context.Context, q string, page, size int) (ListBooksResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}

	tx := r.DB.WithContext(ctx).Model(&models.Book{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.
			Joins("LEFT JOIN lib_book_authors ba ON ba.book_id = lib_books.id").
			Joins("LEFT JOIN lib_authors a ON a.id = ba.author_id").
			Where("LOWER(lib_books.title) LIKE ? OR LOWER(lib_books.isbn) LIKE ? OR LOWER(a.name) LIKE ?",
				like, like, like).
			Distinct("lib_books.*")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListBooksResult{}, err
	}

	var books []models.Book
	if err := tx.
		Preload("Authors").Preload("Copies").
		Order("lib_books.created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&books).Error; err != nil {
		return ListBooksResult{}, err
	}
	return ListBooksResult{Books: books, Total: total}, nil
}

type UpdateBookInput struct {
	Title           *string
	ISBN            *string
	PublicationYear *int
	AverageRating   *float64
	ImageURL        *string
	AuthorNames     []string
}

// UpdateBook applies the provided fields. Callers must have verified
// the book has no borrowed copies first.
func (r *Repo) UpdateBook(ctx context.Context, id string, in UpdateBookInput) (*models.Book, error) {
	var book *models.Book
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Book
		if err := tx.Preload("Authors").First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		if in.Title != nil {
			b.Title = *in.Title
		}
		if in.ISBN != nil {
			b.ISBN = *in.ISBN
		}
		if in.PublicationYear != nil {
			b.PublicationYear = *in.PublicationYear
		}
		if in.AverageRating != nil {
			b.AverageRating = in.AverageRating
		}
		if in.ImageURL != nil {
			b.ImageURL = *in.ImageURL
		}
		if err := tx.Save(&b).Error; err != nil {
			return err
		}

		if len(in.AuthorNames) > 0 {
			authors := make([]models.Author, 0, len(in.AuthorNames))
			for _, name := range in.AuthorNames {
				a, err := findOrCreateAuthor(tx, strings.TrimSpace(name))
				if err != nil {
					return err
				}
				authors = append(authors, *a)
			}
			if err := tx.Model(&b).Association("Authors").Replace(authors); err != nil {
				return err
			}
			b.Authors = authors
		}
		book = &b
		return nil
	})
	return book, err
}

func (r *Repo) CountBorrowedCopies(ctx context.Context, bookID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Copy{}).
		Where("book_id = ? AND status = ?", bookID, models.CopyBorrowed).
		Count(&n).Error
	return n, err
}
