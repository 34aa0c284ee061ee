package server

import (
	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	expenseHandler *handlers.ExpenseHandler,
	budgetHandler *handlers.BudgetHandler,
	sharingHandler *handlers.SharingHandler,
	joinHandler *handlers.JoinHandler,
	streamHandler *handlers.StreamHandler,
	authMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", handlers.Health)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", authRateLimiter)

	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me, authMiddleware)
	authGroup.PUT("/me", authHandler.UpdateProfile, authMiddleware)
	authGroup.PUT("/me/password", authHandler.ChangePassword, authMiddleware)

	profiles := api.Group("/profiles", authMiddleware)
	profiles.GET("", profileHandler.List)
	profiles.POST("", profileHandler.Create)
	profiles.GET("/:id", profileHandler.Get)
	profiles.PUT("/:id", profileHandler.Update)
	profiles.DELETE("/:id", profileHandler.Delete)

	profiles.GET("/:id/expenses", expenseHandler.List)
	profiles.POST("/:id/expenses", expenseHandler.Create)
	profiles.GET("/:id/export/json", expenseHandler.ExportJSON)
	profiles.GET("/:id/export/csv", expenseHandler.ExportCSV)

	profiles.GET("/:id/budgets", budgetHandler.List)
	profiles.POST("/:id/budgets", budgetHandler.Create)

	profiles.PUT("/:id/sharing", sharingHandler.UpdateSharing)
	profiles.POST("/:id/sharing/regenerate", sharingHandler.RegenerateCode)
	profiles.GET("/:id/members", sharingHandler.ListMembers)
	profiles.PUT("/:id/members/:userId", sharingHandler.UpdateMember)
	profiles.DELETE("/:id/members/:userId", sharingHandler.RemoveMember)
	profiles.GET("/:id/invitations", sharingHandler.ListInvitations)
	profiles.POST("/:id/invitations", sharingHandler.CreateInvitation)
	profiles.DELETE("/:id/invitations/:invitationId", sharingHandler.RevokeInvitation)

	profiles.GET("/:id/stream", streamHandler.Stream)

	expenses := api.Group("/expenses", authMiddleware)
	expenses.PUT("/:expenseId", expenseHandler.Update)
	expenses.DELETE("/:expenseId", expenseHandler.Delete)

	budgets := api.Group("/budgets", authMiddleware)
	budgets.PUT("/:budgetId", budgetHandler.Update)
	budgets.DELETE("/:budgetId", budgetHandler.Delete)

	join := api.Group("/join", authMiddleware)
	join.GET("/:code", joinHandler.Resolve)
	join.POST("", joinHandler.Join)
	join.POST("/decline", joinHandler.Decline)
}
