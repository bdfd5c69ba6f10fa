package routes

import (
	"convene/agenda"
	"convene/events"
	"convene/meetings"
	"convene/middleware"
	"convene/mq"
	"convene/profile"
	"convene/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddEventsRoutes(router *httprouter.Router) {
	router.POST("/api/events", middleware.Authenticate(events.CreateEvent))
	router.GET("/api/events/:eventid", middleware.OptionalAuth(events.GetEvent))
	router.PUT("/api/events/:eventid/config", middleware.Authenticate(events.UpdateScheduleConfig))
}

func AddAgendaRoutes(router *httprouter.Router) {
	router.POST("/api/events/:eventid/agenda", middleware.Authenticate(agenda.GenerateAgenda))
	router.PUT("/api/events/:eventid/agenda/reset", middleware.Authenticate(agenda.ResetAgenda))
	router.DELETE("/api/events/:eventid/agenda", middleware.Authenticate(agenda.DeleteAgenda))
	router.GET("/api/events/:eventid/agenda", middleware.OptionalAuth(agenda.ListAgenda))
	router.GET("/ws/agenda/:eventid", agenda.HandleWS)
}

func AddMeetingRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/meetings", rateLimiter.Limit(middleware.Authenticate(meetings.CreateMeeting)))
	router.GET("/api/meetings/:meetingid/slots", middleware.Authenticate(meetings.ListAvailableSlots))
	router.POST("/api/meetings/:meetingid/accept", rateLimiter.Limit(middleware.Authenticate(meetings.AcceptMeeting)))
	router.POST("/api/meetings/:meetingid/reject", middleware.Authenticate(meetings.RejectMeeting))
	router.POST("/api/meetings/:meetingid/cancel", middleware.Authenticate(meetings.CancelMeeting))
	router.POST("/api/meetings/:meetingid/reschedule", middleware.Authenticate(meetings.RescheduleMeeting))
	// Not under /api/meetings/:meetingid — httprouter rejects a static
	// segment alongside the wildcard.
	router.POST("/api/swaps", middleware.Authenticate(meetings.SwapMeetings))
	router.GET("/api/meetings/:meetingid/pass", middleware.Authenticate(meetings.MeetingPass))
	router.GET("/api/events/:eventid/meetings", middleware.Authenticate(meetings.ListEventMeetings))
}

func AddProfileRoutes(router *httprouter.Router) {
	router.GET("/api/events/:eventid/attendees", middleware.OptionalAuth(profile.ListAttendees))
	router.GET("/api/attendees/:userid", middleware.OptionalAuth(profile.GetAttendee))
}

func AddNotificationRoutes(router *httprouter.Router) {
	router.GET("/api/notifications", middleware.Authenticate(mq.GetNotifications))
}
