package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"library-lending/app"
	"library-lending/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	userCtl := controllers.NewUserController(s)
	bookCtl := controllers.NewBookController(s)
	authorCtl := controllers.NewAuthorController(s)
	borrowCtl := controllers.NewBorrowController(s)
	reportCtl := controllers.NewReportController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.Sessions, s.Repo, a.Config)
	manageMW := app.CanManage()
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// 认证（公开+受保护）
	// ------------------------------
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}
	authed := auth.Group("", authMW, seenMW)
	{
		authed.GET("/whoami", authCtl.WhoAmI)
		authed.POST("/logout", authCtl.Logout)
	}

	// ------------------------------
	// 用户管理（仅管理员）+ 借阅历史
	// ------------------------------
	users := r.Group("/api/users", authMW, seenMW)
	{
		users.GET("", adminMW, userCtl.ListUsers) // ?q=&page=&size=
		users.POST("", adminMW, userCtl.CreateUser)
		users.GET("/:id", adminMW, userCtl.GetUser)
		users.PUT("/:id", adminMW, userCtl.UpdateUser)
		users.DELETE("/:id", adminMW, userCtl.DeleteUser)
		users.GET("/:id/borrowings", manageMW, userCtl.BorrowingHistory)
	}
	r.GET("/api/roles", authMW, adminMW, userCtl.ListRoles)

	// ------------------------------
	// 图书目录（浏览公开给登录用户，增删改需 canManage）
	// ------------------------------
	books := r.Group("/api/books", authMW, seenMW)
	{
		books.GET("", bookCtl.ListBooks) // ?q=&page=&size=
		books.GET("/:id", bookCtl.GetBook)
		books.POST("", manageMW, bookCtl.CreateBook)
		books.PUT("/:id", manageMW, bookCtl.UpdateBook)
		books.DELETE("/:id", manageMW, bookCtl.DeleteBook)
	}

	// ------------------------------
	// 作者（浏览公开给登录用户，增删改需 canManage）
	// ------------------------------
	authors := r.Group("/api/authors", authMW, seenMW)
	{
		authors.GET("", authorCtl.ListAuthors)
		authors.GET("/:id", authorCtl.GetAuthor)
		authors.POST("", manageMW, authorCtl.CreateAuthor)
		authors.PUT("/:id", manageMW, authorCtl.UpdateAuthor)
		authors.DELETE("/:id", manageMW, authorCtl.DeleteAuthor)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	borrowings := r.Group("/api/borrowings", authMW, seenMW)
	{
		borrowings.POST("", borrowCtl.Checkout)
		borrowings.POST("/:id/return", borrowCtl.Return)
		borrowings.GET("/active", manageMW, borrowCtl.ListActive)
	}

	// ------------------------------
	// 报表（馆员/管理员）
	// ------------------------------
	reports := r.Group("/api/reports", authMW, manageMW)
	{
		reports.GET("/overdue", reportCtl.Overdue)       // ?asOf=
		reports.GET("/statistics", reportCtl.Statistics) // ?startDate=&endDate=
	}
}
