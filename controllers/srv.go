// controllers/srv.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/app"
	"library-lending/db"
	"library-lending/lending"
	"library-lending/session"
)

type Srv struct {
	Repo     *db.Repo
	Engine   *lending.Engine
	Reporter *lending.Reporter
	Sessions *session.AppSessionStore
	Cfg      app.Config
}

func GetSrv(a *app.App) *Srv {
	store := db.NewLendingStore(a.DB)
	clock := lending.SystemClock()
	return &Srv{
		Repo:     db.NewRepo(a.DB),
		Engine:   lending.NewEngine(store, clock),
		Reporter: lending.NewReporter(store, clock),
		Sessions: a.AppSessions(),
		Cfg:      a.Config,
	}
}

// writeLendingError maps engine error kinds onto HTTP status codes.
func writeLendingError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch lending.KindOf(err) {
	case lending.KindNotFound:
		status = http.StatusNotFound
	case lending.KindForbidden:
		status = http.StatusForbidden
	case lending.KindConflict:
		status = http.StatusConflict
	case lending.KindInvalidArgument:
		status = http.StatusBadRequest
	case lending.KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, app.H{"error": err.Error()})
}
