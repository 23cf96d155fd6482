package rest

import (
	"net/http"

	"github.com/heartmarshall/campaign-notes/internal/transport/middleware"
)

// NewRouter mounts the probes and the notes API. Notes routes run behind
// Identity; lease routes additionally behind leaseLimit.
func NewRouter(notes *NoteHandler, health *HealthHandler, leaseLimit middleware.Middleware) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.HandleFunc("GET /health", health.Health)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Identity(h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(middleware.Identity, leaseLimit)(h)
	}

	mux.Handle("GET /notes", authed(notes.List))
	mux.Handle("POST /notes", authed(notes.Create))
	mux.Handle("GET /notes/{id}", authed(notes.Get))
	mux.Handle("PATCH /notes/{id}", authed(notes.Update))
	mux.Handle("DELETE /notes/{id}", authed(notes.Delete))
	mux.Handle("POST /notes/{id}/toggle", authed(notes.ToggleCheck))

	mux.Handle("POST /notes/{id}/lock", limited(notes.AcquireLease))
	mux.Handle("PUT /notes/{id}/lock", limited(notes.Heartbeat))
	mux.Handle("DELETE /notes/{id}/lock", limited(notes.ReleaseLease))
	mux.Handle("DELETE /notes/{id}/lock/force", limited(notes.ForceRelease))

	mux.Handle("GET /notes/{id}/versions", authed(notes.ListVersions))
	mux.Handle("GET /notes/{id}/versions/{versionId}", authed(notes.GetVersion))
	mux.Handle("POST /notes/{id}/versions/{versionId}/restore", authed(notes.RestoreVersion))

	mux.Handle("GET /events", authed(notes.Events))

	return mux
}
