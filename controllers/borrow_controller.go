package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-lending/app"
)

type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

// POST /api/borrowings
// Members check out for themselves; staff with canManage may pass a
// userId to check out on a member's behalf. The engine re-validates the
// borrowing privilege either way.
func (bc *BorrowController) Checkout(c *gin.Context) {
	var in struct {
		UserID  string     `json:"userId" binding:"omitempty,uuid"`
		CopyID  string     `json:"copyId" binding:"required,uuid"`
		DueDate *time.Time `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	v, ok := c.Get("userID")
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	borrowerID, _ := v.(string)
	if in.UserID != "" && in.UserID != borrowerID {
		if !app.Capability(c, "canManage") {
			c.JSON(http.StatusForbidden, app.H{"error": "cannot borrow for another user"})
			return
		}
		borrowerID = in.UserID
	}

	loan, err := bc.Engine.Checkout(c.Request.Context(), borrowerID, in.CopyID, in.DueDate)
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"borrowingRecord": loan})
}

// POST /api/borrowings/:id/return
func (bc *BorrowController) Return(c *gin.Context) {
	receipt, err := bc.Engine.Return(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"borrowingRecord": receipt.Loan,
		"isLate":          receipt.IsLate,
		"daysOverdue":     receipt.DaysOverdue,
	})
}

// GET /api/borrowings/active
func (bc *BorrowController) ListActive(c *gin.Context) {
	rows, err := bc.Repo.ListActiveLoans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowings": rows})
}
