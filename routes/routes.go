package routes

import (
	"net/http"

	"matsuri/admin"
	"matsuri/attractions"
	"matsuri/auth"
	"matsuri/booking"
	"matsuri/hub"
	"matsuri/middleware"
	"matsuri/ratelim"
	"matsuri/tickets"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/banners/*filepath", http.Dir("static/banners"))
}

func AddAuthRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/v1/session", rateLimiter.Limit(auth.StartSession))
	router.GET("/api/v1/me", middleware.Authenticate(auth.Me))
}

func AddBookingRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/v1/attractions/:id/reservations", rateLimiter.Limit(middleware.Authenticate(booking.BookSlot)))
	router.DELETE("/api/v1/attractions/:id/reservations/:resId", rateLimiter.Limit(middleware.Authenticate(booking.CancelReservation)))
	router.POST("/api/v1/attractions/:id/reservations/:resId/enter", rateLimiter.Limit(middleware.Authenticate(booking.EnterWithReservation)))

	router.POST("/api/v1/attractions/:id/queue", rateLimiter.Limit(middleware.Authenticate(booking.JoinQueue)))
	router.DELETE("/api/v1/attractions/:id/queue/:ticketId", rateLimiter.Limit(middleware.Authenticate(booking.CancelTicket)))
	router.POST("/api/v1/attractions/:id/queue/:ticketId/enter", rateLimiter.Limit(middleware.Authenticate(booking.EnterWithTicket)))

	router.GET("/api/v1/me/tickets", middleware.Authenticate(booking.MyTickets))
}

func AddAttractionRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/v1/attractions", attractions.GetAttractions)
	router.GET("/api/v1/attractions/:id", middleware.OptionalAuth(attractions.GetAttraction))

	router.POST("/api/v1/attractions", rateLimiter.Limit(middleware.Authenticate(attractions.CreateAttraction)))
	router.PUT("/api/v1/attractions/:id", rateLimiter.Limit(middleware.Authenticate(attractions.EditAttraction)))
	router.PATCH("/api/v1/attractions/:id/pause", rateLimiter.Limit(middleware.Authenticate(attractions.PauseAttraction)))
	router.DELETE("/api/v1/attractions/:id", rateLimiter.Limit(middleware.Authenticate(attractions.DeleteAttraction)))
	router.POST("/api/v1/attractions/:id/banner", rateLimiter.Limit(middleware.Authenticate(attractions.UploadBanner)))

	// staff queue console
	router.GET("/api/v1/attractions/:id/queue", middleware.Authenticate(attractions.StaffQueue))
	router.POST("/api/v1/attractions/:id/queue/:ticketId/call", rateLimiter.Limit(middleware.Authenticate(attractions.CallTicket)))
	router.POST("/api/v1/attractions/:id/queue/:ticketId/force-enter", rateLimiter.Limit(middleware.Authenticate(attractions.ForceEnterTicket)))
	router.DELETE("/api/v1/attractions/:id/queue/:ticketId/force", rateLimiter.Limit(middleware.Authenticate(attractions.ForceCancelTicket)))

	// staff reservation console
	router.PATCH("/api/v1/attractions/:id/reservations/:resId/status", rateLimiter.Limit(middleware.Authenticate(attractions.SetReservationStatus)))
	router.DELETE("/api/v1/attractions/:id/reservations/:resId/force", rateLimiter.Limit(middleware.Authenticate(attractions.StaffCancelReservation)))
	router.POST("/api/v1/attractions/:id/recount", rateLimiter.Limit(middleware.Authenticate(attractions.RecountSlots)))
}

func AddAdminRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/v1/admin/users", auth.RequireAdminKey(admin.ListUsers))
	router.PATCH("/api/v1/admin/users/:userId", auth.RequireAdminKey(admin.UpdateUser))
	router.POST("/api/v1/admin/users/:userId/wipe", auth.RequireAdminKey(admin.WipeUserTickets))
	router.DELETE("/api/v1/admin/users/:userId", auth.RequireAdminKey(admin.DeleteUser))

	// bulk venue ops live under /venues so they cannot collide with the
	// per-attraction :id routes below
	router.POST("/api/v1/admin/venues/pause-all", auth.RequireAdminKey(admin.PauseAll))
	router.POST("/api/v1/admin/venues/clear-all", auth.RequireAdminKey(admin.ClearAllReservations))
	router.DELETE("/api/v1/admin/venues", auth.RequireAdminKey(admin.DeleteAllVenues))

	router.PATCH("/api/v1/admin/attractions/:id/lists/:audience/mode", auth.RequireAdminKey(admin.SetListMode))
	router.POST("/api/v1/admin/attractions/:id/lists/:audience", auth.RequireAdminKey(admin.UpdateAccessList))
	router.POST("/api/v1/admin/attractions/:id/lists/:audience/allow-all", auth.RequireAdminKey(admin.AllowAllUsers))
	router.POST("/api/v1/admin/attractions/:id/reservations", auth.RequireAdminKey(admin.ForceAddReservation))

	router.GET("/api/v1/admin/audit", auth.RequireAdminKey(admin.AuditLog))
}

func AddTicketRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/v1/attractions/:id/queue/:ticketId/print", rateLimiter.Limit(middleware.Authenticate(tickets.PrintTicket)))
}

func AddRealtimeRoutes(router *httprouter.Router, h *hub.Hub) {
	router.GET("/ws/attractions", hub.SubscribeHandler(h))
	router.GET("/ws/attractions/:room", hub.SubscribeHandler(h))
}

func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, h *hub.Hub) {
	AddStaticRoutes(router)
	AddAuthRoutes(router, rateLimiter)
	AddBookingRoutes(router, rateLimiter)
	AddAttractionRoutes(router, rateLimiter)
	AddAdminRoutes(router, rateLimiter)
	AddTicketRoutes(router, rateLimiter)
	AddRealtimeRoutes(router, h)
}
