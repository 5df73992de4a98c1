package db

import (
	"context"
	_ "embed"
	"errors"
	"log"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"library-lending/models"
)

//go:embed seed_books.json
var seedBooksJSON []byte

type seedBook struct {
	Title           string   `json:"title"`
	ISBN            string   `json:"isbn"`
	PublicationYear int      `json:"publicationYear"`
	AverageRating   *float64 `json:"averageRating"`
	ImageURL        string   `json:"imageUrl"`
	Copies          int      `json:"copies"`
	Authors         []string `json:"authors"`
}

// Seed creates the three roles, a bootstrap admin and the starter
// catalog. Every step is idempotent, so running it on a populated
// database is a no-op.
func (r *Repo) Seed(ctx context.Context, adminEmail, adminPassword string) error {
	if err := r.seedRoles(ctx); err != nil {
		return err
	}
	if err := r.seedAdmin(ctx, adminEmail, adminPassword); err != nil {
		return err
	}
	return r.seedCatalog(ctx)
}

func (r *Repo) seedRoles(ctx context.Context) error {
	roles := []models.Role{
		{Name: models.RoleAdmin, CanBorrow: true, CanManage: true, IsAdmin: true},
		{Name: models.RoleLibrarian, CanBorrow: false, CanManage: true, IsAdmin: false},
		{Name: models.RoleMember, CanBorrow: true, CanManage: false, IsAdmin: false},
	}
	for _, role := range roles {
		_, err := r.FindRoleByName(ctx, role.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		role.ID = uuid.NewString()
		if err := r.DB.WithContext(ctx).Create(&role).Error; err != nil {
			return err
		}
		log.Printf("seed: created role %s", role.Name)
	}
	return nil
}

func (r *Repo) seedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := r.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	adminRole, err := r.FindRoleByName(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		ID:           uuid.NewString(),
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       adminRole.ID,
	}
	if err := r.CreateUser(ctx, &admin); err != nil {
		return err
	}
	log.Printf("seed: created admin user %s", email)
	return nil
}

func (r *Repo) seedCatalog(ctx context.Context) error {
	var books []seedBook
	if err := jsoniter.ConfigFastest.Unmarshal(seedBooksJSON, &books); err != nil {
		return err
	}
	for _, sb := range books {
		if _, err := r.FindBookByISBN(ctx, sb.ISBN); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err := r.CreateBook(ctx, CreateBookInput{
			Title:           sb.Title,
			ISBN:            sb.ISBN,
			PublicationYear: sb.PublicationYear,
			AverageRating:   sb.AverageRating,
			ImageURL:        sb.ImageURL,
			CopiesCount:     sb.Copies,
			AuthorNames:     sb.Authors,
		}); err != nil {
			return err
		}
		log.Printf("seed: created book %q (%d copies)", sb.Title, sb.Copies)
	}
	return nil
}
