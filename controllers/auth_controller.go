package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"library-lending/app"
	"library-lending/models"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var in struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(in.Email)

	if _, err := ac.Repo.FindUserByEmail(c.Request.Context(), email); err == nil {
		c.JSON(http.StatusConflict, app.H{"error": "email already registered"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	// 自助注册一律 Member，管理员另走用户管理接口
	role, err := ac.Repo.FindRoleByName(c.Request.Context(), models.RoleMember)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "member role missing"})
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
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       role.ID,
	}
	if err := ac.Repo.CreateUser(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	u.Role = *role
	c.JSON(http.StatusCreated, app.H{"user": u})
}

// POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u, err := ac.Repo.FindUserByEmail(c.Request.Context(), strings.ToLower(in.Email))
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid credentials"})
		return
	}

	token, err := ac.issueToken(c, u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	_ = ac.Repo.TouchUserLogin(c.Request.Context(), u.ID)

	c.JSON(http.StatusOK, app.H{
		"token": token,
		"user":  u,
	})
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if v, ok := c.Get("sessionID"); ok {
		if sid, _ := v.(string); sid != "" {
			_ = ac.Sessions.Delete(c.Request.Context(), sid)
		}
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     app.AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(ac.Cfg.WebOrigin, "https://"),
	})
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	v, _ := c.Get("userID")
	uid, _ := v.(string)
	u, err := ac.Repo.FindUserByID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// 登录成功：签 token + 写 Redis 会话 + 设 Cookie
func (ac *AuthController) issueToken(c *gin.Context, u *models.User) (string, error) {
	now := time.Now()
	jti := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ac.Cfg.SessionTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(ac.Cfg.JWTSecret))
	if err != nil {
		return "", err
	}
	if err := ac.Sessions.Create(c.Request.Context(), jti, u); err != nil {
		return "", err
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     app.AuthCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(ac.Cfg.WebOrigin, "https://"),
		MaxAge:   int(ac.Cfg.SessionTTL / time.Second),
	})
	return token, nil
}
