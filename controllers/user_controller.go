package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"library-lending/app"
	"library-lending/models"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Repo.ListUsers(c.Request.Context(), q, page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// POST /api/users （管理员创建任意角色的用户）
func (uc *UserController) CreateUser(c *gin.Context) {
	var in struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		RoleID   string `json:"roleId" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	role, err := uc.Repo.FindRoleByID(c.Request.Context(), in.RoleID)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "role not found"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        strings.ToLower(in.Email),
		PasswordHash: string(hash),
		RoleID:       role.ID,
	}
	if err := uc.Repo.CreateUser(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	u.Role = *role
	c.JSON(http.StatusCreated, app.H{"user": u})
}

// PUT /api/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	id := c.Param("id")
	var in struct {
		Name     *string `json:"name"`
		Email    *string `json:"email" binding:"omitempty,email"`
		Password *string `json:"password" binding:"omitempty,min=8"`
		RoleID   *string `json:"roleId" binding:"omitempty,uuid"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
		return
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = strings.ToLower(*in.Email)
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
			return
		}
		u.PasswordHash = string(hash)
	}
	if in.RoleID != nil {
		role, err := uc.Repo.FindRoleByID(c.Request.Context(), *in.RoleID)
		if err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": "role not found"})
			return
		}
		u.RoleID = role.ID
		u.Role = *role
	}
	if err := uc.Repo.UpdateUser(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	// 不允许删除自己，避免锁死
	if v, ok := c.Get("userID"); ok {
		if uid, _ := v.(string); uid == id {
			c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
			return
		}
	}

	if err := uc.Engine.DeleteBorrower(c.Request.Context(), id); err != nil {
		writeLendingError(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	_ = uc.Sessions.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/users/:id/borrowings
func (uc *UserController) BorrowingHistory(c *gin.Context) {
	id := c.Param("id")
	rows, err := uc.Repo.ListLoansByUser(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowings": rows})
}

// GET /api/roles
func (uc *UserController) ListRoles(c *gin.Context) {
	roles, err := uc.Repo.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"roles": roles})
}
