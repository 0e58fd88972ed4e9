package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler builds the router. The Hue username segment is accepted and
// ignored.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.localOnly)

	r.Get("/description.xml", s.handleDescription)

	r.Route("/api", func(r chi.Router) {
		r.Post("/", s.handleCreateUser)
		r.Get("/", s.handleUnauthorized)
		r.Get("/config", s.handleConfig)

		r.Route("/{username}", func(r chi.Router) {
			r.Get("/", s.handleFullState)
			r.Get("/config", s.handleConfig)
			r.Get("/lights", s.handleLights)
			r.Get("/lights/{id}", s.handleLight)
			r.Put("/lights/{id}/state", s.handleSetLightState)
			r.Get("/groups", s.handleGroups)
			r.Put("/groups/0/action", s.handleGroupAction)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
			})
		})
		r.Post("/reload", s.handleReload)
		r.Get("/stats", s.handleStats)
		r.Get("/entities", s.handleEntities)
	})

	return r
}
