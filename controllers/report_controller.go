package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-lending/app"
)

type ReportController struct{ *Srv }

func NewReportController(s *Srv) *ReportController { return &ReportController{Srv: s} }

// GET /api/reports/overdue?asOf=2024-02-01T00:00:00Z
func (rc *ReportController) Overdue(c *gin.Context) {
	var asOf time.Time
	if raw := c.Query("asOf"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": "asOf must be RFC3339"})
			return
		}
		asOf = t
	}

	entries, err := rc.Reporter.ListOverdue(c.Request.Context(), asOf)
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"overdue": entries})
}

// GET /api/reports/statistics?startDate=&endDate=
func (rc *ReportController) Statistics(c *gin.Context) {
	from, err := parseDateParam(c.Query("startDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "startDate must be RFC3339 or YYYY-MM-DD"})
		return
	}
	until, err := parseDateParam(c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "endDate must be RFC3339 or YYYY-MM-DD"})
		return
	}

	stats, err := rc.Reporter.Statistics(c.Request.Context(), from, until)
	if err != nil {
		writeLendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
