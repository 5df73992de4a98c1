package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library-lending/app"
	"library-lending/db"
)

type BookController struct{ *Srv }

func NewBookController(s *Srv) *BookController { return &BookController{Srv: s} }

// GET /api/books?q=&page=&size=
func (bc *BookController) ListBooks(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	res, err := bc.Repo.ListBooks(c.Request.Context(), q, page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"books": res.Books,
	})
}

// GET /api/books/:id
func (bc *BookController) GetBook(c *gin.Context) {
	book, err := bc.Repo.FindBookByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "book not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"book": book})
}

// POST /api/books
func (bc *BookController) CreateBook(c *gin.Context) {
	var in struct {
		Title           string   `json:"title" binding:"required"`
		ISBN            string   `json:"isbn" binding:"required,isbn"`
		PublicationYear int      `json:"publicationYear" binding:"required"`
		AverageRating   *float64 `json:"averageRating" binding:"omitempty,gte=0,lte=5"`
		ImageURL        string   `json:"imageUrl"`
		CopiesCount     int      `json:"copiesCount" binding:"required,gte=1"`
		Authors         []string `json:"authors" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	if _, err := bc.Repo.FindBookByISBN(c.Request.Context(), in.ISBN); err == nil {
		c.JSON(http.StatusConflict, app.H{"error": "a book with this ISBN already exists"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	book, err := bc.Repo.CreateBook(c.Request.Context(), db.CreateBookInput{
		Title:           in.Title,
		ISBN:            in.ISBN,
		PublicationYear: in.PublicationYear,
		AverageRating:   in.AverageRating,
		ImageURL:        in.ImageURL,
		CopiesCount:     in.CopiesCount,
		AuthorNames:     in.Authors,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, app.H{"book": book})
}

// PUT /api/books/:id — 借出中的书不允许改
func (bc *BookController) UpdateBook(c *gin.Context) {
	id := c.Param("id")
	var in struct {
		Title           *string  `json:"title"`
		ISBN            *string  `json:"isbn" binding:"omitempty,isbn"`
		PublicationYear *int     `json:"publicationYear"`
		AverageRating   *float64 `json:"averageRating" binding:"omitempty,gte=0,lte=5"`
		ImageURL        *string  `json:"imageUrl"`
		Authors         []string `json:"authors"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	if _, err := bc.Repo.FindBookByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "book not found"})
		return
	}
	borrowed, err := bc.Repo.CountBorrowedCopies(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if borrowed > 0 {
		c.JSON(http.StatusConflict, app.H{"error": "cannot update a book that is currently borrowed"})
		return
	}
	if in.ISBN != nil {
		if other, err := bc.Repo.FindBookByISBN(c.Request.Context(), *in.ISBN); err == nil && other.ID != id {
			c.JSON(http.StatusConflict, app.H{"error": "a book with this ISBN already exists"})
			return
		}
	}

	book, err := bc.Repo.UpdateBook(c.Request.Context(), id, db.UpdateBookInput{
		Title:           in.Title,
		ISBN:            in.ISBN,
		PublicationYear: in.PublicationYear,
		AverageRating:   in.AverageRating,
		ImageURL:        in.ImageURL,
		AuthorNames:     in.Authors,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"book": book})
}

// DELETE /api/books/:id — 有未还副本时拒绝
func (bc *BookController) DeleteBook(c *gin.Context) {
	if err := bc.Engine.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
