package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/niktheblak/helvetic/pkg/auth"
	"github.com/niktheblak/helvetic/pkg/measurement"
	"github.com/niktheblak/helvetic/pkg/middleware"
	"github.com/niktheblak/helvetic/pkg/scale"
)

// Server serves the scale protocol and the JSON API
type Server struct {
	syncer        *scale.Syncer
	store         measurement.Store
	authenticator auth.Authenticator
	logger        *slog.Logger
	router        *httprouter.Router
	handler       http.Handler
}

func New(syncer *scale.Syncer, store measurement.Store, authenticator auth.Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if authenticator == nil {
		authenticator = auth.AlwaysAllow()
	}
	s := &Server{
		syncer:        syncer,
		store:         store,
		authenticator: authenticator,
		logger:        logger,
		router:        httprouter.New(),
	}
	s.routes()
	s.handler = middleware.RequestLogger(s.router, logger)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// api guards a JSON API handler with the configured authenticator
func (s *Server) api(h http.Handler) http.Handler {
	return middleware.Authenticator(h, s.authenticator, s.logger)
}
