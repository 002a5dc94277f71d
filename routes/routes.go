package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/handlers"
	"p9e.in/safecheck/middleware"
	"p9e.in/safecheck/models"
)

var (
	reviewerRoles = []string{models.RoleAdmin, models.RoleReviewer}
	adminOnly     = []string{models.RoleAdmin}
)

// gated wraps a handler func with a role check.
func gated(roles []string, fn http.HandlerFunc) http.Handler {
	return middleware.RequireRole(roles, fn)
}

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/register", handlers.Register).Methods("POST")
	r.HandleFunc("/login", handlers.Login).Methods("POST")
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))),
	)

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/profile", handlers.GetCurrentUser).Methods("GET")

	registerTemplateRoutes(api)
	registerAssignmentRoutes(api)
	registerScheduleRoutes(api)
	registerInspectionRoutes(api)
	registerActionRoutes(api)
	registerSupportRoutes(api)

	return r
}

func registerTemplateRoutes(api *mux.Router) {
	h := handlers.NewTemplateHandler()

	api.HandleFunc("/templates", h.ListTemplates).Methods("GET")
	api.HandleFunc("/templates/{id}", h.GetTemplate).Methods("GET")
	api.Handle("/templates", gated(reviewerRoles, h.CreateTemplate)).Methods("POST")
	api.Handle("/templates/{id}", gated(reviewerRoles, h.UpdateTemplate)).Methods("PUT")
	api.Handle("/templates/{id}", gated(reviewerRoles, h.DeleteTemplate)).Methods("DELETE")
}

func registerAssignmentRoutes(api *mux.Router) {
	h := handlers.NewAssignmentHandler()

	api.HandleFunc("/assignments", h.ListAssignments).Methods("GET")
	api.HandleFunc("/assignments/{id}", h.GetAssignment).Methods("GET")
	api.Handle("/assignments", gated(reviewerRoles, h.CreateAssignment)).Methods("POST")
	api.Handle("/assignments/{id}", gated(reviewerRoles, h.UpdateAssignment)).Methods("PUT")
	api.Handle("/assignments/{id}", gated(reviewerRoles, h.DeactivateAssignment)).Methods("DELETE")
}

func registerScheduleRoutes(api *mux.Router) {
	h := handlers.NewScheduleHandler(config.DB)

	api.HandleFunc("/scheduled", h.ListScheduled).Methods("GET")
	api.Handle("/scheduled/generate", gated(reviewerRoles, http.HandlerFunc(h.TriggerGeneration))).Methods("POST")
}

func registerInspectionRoutes(api *mux.Router) {
	h := handlers.NewInspectionHandler()

	api.HandleFunc("/inspections", h.ListInspections).Methods("GET")
	api.HandleFunc("/inspections", h.CreateInspection).Methods("POST")
	api.HandleFunc("/inspections/{id}", h.GetInspection).Methods("GET")
	api.HandleFunc("/inspections/{id}", h.UpdateInspection).Methods("PUT")
	api.HandleFunc("/inspections/{id}/responses", h.UpsertResponse).Methods("POST")
	api.HandleFunc("/inspections/{id}/responses/{responseId}", h.DeleteResponse).Methods("DELETE")

	api.HandleFunc("/inspections/{id}/submit", h.SubmitInspection).Methods("POST")
	api.Handle("/inspections/{id}/approve", gated(reviewerRoles, h.ApproveInspection)).Methods("POST")
	api.Handle("/inspections/{id}/reject", gated(reviewerRoles, h.RejectInspection)).Methods("POST")

	api.HandleFunc("/inspections/{id}/export/excel", handlers.ExportInspectionToExcel).Methods("GET")
	api.HandleFunc("/inspections/{id}/export/csv", handlers.ExportInspectionToCSV).Methods("GET")
}

func registerActionRoutes(api *mux.Router) {
	h := handlers.NewActionHandler()

	api.HandleFunc("/actions", h.ListActions).Methods("GET")
	api.HandleFunc("/actions", h.CreateAction).Methods("POST")
	api.HandleFunc("/actions/{id}", h.GetAction).Methods("GET")
	api.HandleFunc("/actions/{id}", h.UpdateAction).Methods("PUT")
	api.Handle("/actions/{id}", gated(reviewerRoles, h.DeleteAction)).Methods("DELETE")
}

func registerSupportRoutes(api *mux.Router) {
	dashboard := handlers.NewDashboardHandler()

	api.HandleFunc("/locations", handlers.ListLocations).Methods("GET")
	api.Handle("/locations", gated(reviewerRoles, http.HandlerFunc(handlers.CreateLocation))).Methods("POST")

	api.HandleFunc("/files", handlers.UploadAttachment).Methods("POST")
	api.HandleFunc("/files", handlers.DeleteAttachment).Methods("DELETE")

	api.Handle("/dashboard", gated(reviewerRoles, dashboard.GetDashboard)).Methods("GET")

	api.HandleFunc("/config/severity-sla", handlers.GetSeveritySLA).Methods("GET")
	api.Handle("/config/severity-sla", gated(adminOnly, http.HandlerFunc(handlers.UpdateSeveritySLA))).Methods("PUT")
}
