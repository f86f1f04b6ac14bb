package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vikramraju/attendedge/internal/ingest"
	"github.com/vikramraju/attendedge/internal/repositories"
	"github.com/vikramraju/attendedge/internal/services"
)

// NewRouter wires all HTTP endpoints. Device-facing endpoints sit behind
// token auth; reporting endpoints are read-only and open.
func NewRouter(
	gateway *ingest.Gateway,
	schedules repositories.ScheduleRepository,
	attendance repositories.AttendanceRepository,
	registry *services.DeviceRegistry,
	auth *services.AuthService,
) *chi.Mux {
	attendanceHandler := NewAttendanceHandler(gateway)
	scheduleHandler := NewScheduleHandler(schedules)
	heartbeatHandler := NewHeartbeatHandler(registry)
	reportsHandler := NewReportsHandler(attendance)
	devicesHandler := NewDevicesHandler(registry)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		// Device endpoints
		r.Group(func(r chi.Router) {
			r.Use(DeviceAuth(auth))
			r.Get("/schedule", scheduleHandler.Current)
			r.Post("/attendance", attendanceHandler.Submit)
			r.Post("/heartbeat", heartbeatHandler.Receive)
		})

		// Operator / reporting endpoints
		r.Get("/schedule/preview", scheduleHandler.Preview)
		r.Get("/attendance/student/{studentID}", reportsHandler.ByStudent)
		r.Get("/attendance/course/{courseID}", reportsHandler.ByCourse)
		r.Get("/devices", devicesHandler.List)
		r.Get("/devices/{deviceID}", devicesHandler.Get)
	})

	return router
}
