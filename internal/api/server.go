package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/api/handler"
	mw "github.com/edvin/netedge/internal/api/middleware"
	"github.com/edvin/netedge/internal/core"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
}

func NewServer(logger zerolog.Logger, services *core.Services) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.services.APIKey))

		apiKey := handler.NewAPIKey(s.services.APIKey)
		r.Get("/api-keys", apiKey.List)
		r.Post("/api-keys", apiKey.Create)
		r.Delete("/api-keys/{id}", apiKey.Revoke)

		r.Route("/fw", func(r chi.Router) {
			rule := handler.NewRule(s.services.Rule)
			r.Get("/rules", rule.List)
			r.Post("/rules", rule.Create)
			r.Get("/rules/{id}", rule.Get)
			r.Put("/rules/{id}", rule.Update)
			r.Delete("/rules/{id}", rule.Delete)

			ipobj := handler.NewIPObj(s.services.IPObj)
			r.Get("/ipobjs", ipobj.List)
			r.Post("/ipobjs", ipobj.Create)
			r.Get("/ipobjs/{id}", ipobj.Get)
			r.Delete("/ipobjs/{id}", ipobj.Delete)

			serviceobj := handler.NewServiceObj(s.services.ServiceObj)
			r.Get("/serviceobjs", serviceobj.List)
			r.Post("/serviceobjs", serviceobj.Create)
			r.Get("/serviceobjs/{id}", serviceobj.Get)
			r.Delete("/serviceobjs/{id}", serviceobj.Delete)

			zone := handler.NewZone(s.services.Zone)
			r.Get("/zones", zone.List)
			r.Post("/zones", zone.Create)
			r.Get("/zones/{id}", zone.Get)
			r.Delete("/zones/{id}", zone.Delete)
		})

		r.Route("/vpn", func(r chi.Router) {
			site := handler.NewSite(s.services.Site)
			r.Get("/sites", site.List)
			r.Post("/sites", site.Create)
			r.Get("/sites/{id}", site.Get)
			r.Put("/sites/{id}", site.Update)
			r.Delete("/sites/{id}", site.Delete)

			ipsec := handler.NewIPSecPolicy(s.services.IPSecPolicy)
			r.Get("/ipsec_policys", ipsec.List)
			r.Post("/ipsec_policys", ipsec.Create)
			r.Get("/ipsec_policys/{id}", ipsec.Get)
			r.Put("/ipsec_policys/{id}", ipsec.Update)
			r.Delete("/ipsec_policys/{id}", ipsec.Delete)

			isakmp := handler.NewIsakmpPolicy(s.services.IsakmpPolicy)
			r.Get("/isakmp_policys", isakmp.List)
			r.Post("/isakmp_policys", isakmp.Create)
			r.Get("/isakmp_policys/{id}", isakmp.Get)
			r.Put("/isakmp_policys/{id}", isakmp.Update)
			r.Delete("/isakmp_policys/{id}", isakmp.Delete)

			trust := handler.NewTrustProfile(s.services.TrustProfile)
			r.Get("/trust_profiles", trust.List)
			r.Post("/trust_profiles", trust.Create)
			r.Get("/trust_profiles/{id}", trust.Get)
			r.Put("/trust_profiles/{id}", trust.Update)
			r.Delete("/trust_profiles/{id}", trust.Delete)
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
