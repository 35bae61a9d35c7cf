package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/oemportal/audittrail/internal/api/v1"
	"github.com/oemportal/audittrail/internal/api/ws"
	"github.com/oemportal/audittrail/internal/audit"
	"github.com/oemportal/audittrail/internal/store/postgres"
)

func registerAPIRoutes(api huma.API, store *postgres.Store, writer *audit.Writer, verifier *audit.Verifier) {
	v1.RegisterRecordRoutes(api, store, writer)
	v1.RegisterChainRoutes(api, verifier)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/events", hub.ServeEvents)
	r.Get("/alerts", hub.ServeAlerts)
}
