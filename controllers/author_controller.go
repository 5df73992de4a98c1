package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library-lending/app"
)

type AuthorController struct{ *Srv }

func NewAuthorController(s *Srv) *AuthorController { return &AuthorController{Srv: s} }

// GET /api/authors
func (ac *AuthorController) ListAuthors(c *gin.Context) {
	authors, err := ac.Repo.ListAuthors(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"authors": authors})
}

// GET /api/authors/:id
func (ac *AuthorController) GetAuthor(c *gin.Context) {
	a, err := ac.Repo.FindAuthorByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "author not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"author": a})
}

// POST /api/authors
func (ac *AuthorController) CreateAuthor(c *gin.Context) {
	var in struct {
		Name string `json:"name" binding:"required"`
		Bio  string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "name is required"})
		return
	}

	if _, err := ac.Repo.FindAuthorByName(c.Request.Context(), name); err == nil {
		c.JSON(http.StatusConflict, app.H{"error": "author already exists"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	a, err := ac.Repo.CreateAuthor(c.Request.Context(), name, in.Bio)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, app.H{"author": a})
}

// PUT /api/authors/:id
func (ac *AuthorController) UpdateAuthor(c *gin.Context) {
	var in struct {
		Name *string `json:"name"`
		Bio  *string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	a, err := ac.Repo.FindAuthorByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "author not found"})
		return
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != "" && name != a.Name {
			if other, err := ac.Repo.FindAuthorByName(c.Request.Context(), name); err == nil && other.ID != a.ID {
				c.JSON(http.StatusConflict, app.H{"error": "author already exists"})
				return
			}
			a.Name = name
		}
	}
	if in.Bio != nil {
		a.Bio = *in.Bio
	}

	if err := ac.Repo.UpdateAuthor(c.Request.Context(), a); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"author": a})
}

// DELETE /api/authors/:id — 名下还有书的作者不允许删
func (ac *AuthorController) DeleteAuthor(c *gin.Context) {
	a, err := ac.Repo.FindAuthorByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "author not found"})
		return
	}
	if len(a.Books) > 0 {
		c.JSON(http.StatusConflict, app.H{"error": "cannot delete an author with books in the catalog"})
		return
	}
	if err := ac.Repo.DeleteAuthor(c.Request.Context(), a.ID); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
