package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/mindbridge-app/mindbridge-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth
	r.Post("/api/auth/register", handlers.Register)
	r.Post("/api/auth/login", handlers.Login)
	r.Post("/api/auth/logout", handlers.Logout)
	r.Get("/api/auth/me", handlers.GetMe)
	r.Put("/api/auth/me", handlers.UpdateMe)
	r.Put("/api/auth/password", handlers.ChangePassword)

	// Users & blocking
	r.Get("/api/users", handlers.ListUsers)
	r.Get("/api/users/blocked", handlers.ListBlockedUsers)
	r.Get("/api/users/{id}", handlers.GetUserProfile)
	r.Post("/api/users/{id}/block", handlers.BlockUser)
	r.Delete("/api/users/{id}/block", handlers.UnblockUser)

	// Direct messages
	r.Get("/api/messages/conversations", handlers.ListConversations)
	r.Get("/api/messages/unread-count", handlers.UnreadCount)
	r.Get("/api/messages/thread/{id}", handlers.GetThread)
	r.Post("/api/messages/to/{id}", handlers.SendMessage)
	r.Delete("/api/messages/{id}", handlers.DeleteMessage)

	// Circles
	r.Post("/api/circles", handlers.CreateCircle)
	r.Get("/api/circles", handlers.ListCircles)
	r.Get("/api/circles/recommendations", handlers.RecommendedCircles)
	r.Get("/api/circles/{id}", handlers.GetCircle)
	r.Put("/api/circles/{id}", handlers.UpdateCircle)
	r.Post("/api/circles/{id}/join", handlers.JoinCircle)
	r.Post("/api/circles/{id}/leave", handlers.LeaveCircle)
	r.Post("/api/circles/{id}/requests/{userId}/approve", handlers.ApproveJoinRequest)
	r.Post("/api/circles/{id}/requests/{userId}/reject", handlers.RejectJoinRequest)
	r.Delete("/api/circles/{id}/members/{userId}", handlers.RemoveMember)
	r.Post("/api/circles/{id}/members/{userId}/promote", handlers.PromoteMember)
	r.Post("/api/circles/{id}/members/{userId}/demote", handlers.DemoteAdmin)

	// Posts & comments
	r.Post("/api/circles/{id}/posts", handlers.CreatePost)
	r.Get("/api/circles/{id}/posts", handlers.ListCirclePosts)
	r.Get("/api/posts/mine", handlers.MyPosts)
	r.Put("/api/posts/{id}", handlers.EditPost)
	r.Delete("/api/posts/{id}", handlers.DeletePost)
	r.Post("/api/posts/{id}/like", handlers.LikePost)
	r.Delete("/api/posts/{id}/like", handlers.UnlikePost)
	r.Post("/api/posts/{id}/comments", handlers.AddComment)
	r.Put("/api/posts/{id}/comments/{commentId}", handlers.EditComment)
	r.Delete("/api/posts/{id}/comments/{commentId}", handlers.DeleteComment)

	// Journals
	r.Post("/api/journals", handlers.CreateJournal)
	r.Get("/api/journals", handlers.ListJournals)
	r.Put("/api/journals/{id}", handlers.UpdateJournal)
	r.Delete("/api/journals/{id}", handlers.DeleteJournal)

	// Mood tracker
	r.Post("/api/mood", handlers.SetMood)
	r.Get("/api/mood/today", handlers.TodayMood)
	r.Get("/api/mood/recent", handlers.RecentMoods)
	r.Get("/api/mood/month", handlers.MonthMoods)

	// Notifications
	r.Get("/api/notifications", handlers.ListNotifications)
	r.Put("/api/notifications/read-all", handlers.MarkAllNotificationsRead)
	r.Put("/api/notifications/{id}/read", handlers.MarkNotificationRead)

	// Uploads
	r.Post("/api/upload", handlers.Upload)

	// Admin panel
	r.Post("/api/admin/login", handlers.AdminLogin)
	r.Get("/api/admin/stats", handlers.AdminStats)
	r.Get("/api/admin/users", handlers.AdminListUsers)
	r.Get("/api/admin/circles", handlers.AdminListCircles)
	r.Get("/api/admin/posts", handlers.AdminListPosts)
	r.Get("/api/admin/journals", handlers.AdminListJournals)
	r.Get("/api/admin/moods", handlers.AdminListMoods)
	r.Get("/api/admin/notifications", handlers.AdminListNotifications)

	// Realtime gateway
	r.Get("/ws", handlers.UserEvents)
}
