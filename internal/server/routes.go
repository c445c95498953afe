package server

import (
	"io"
	"net/http"
)

const index = `Helvetic Unified API

/users [GET, POST]
/users/:id [PUT, DELETE]
/measurements [GET, POST]
/measurements/latest?user_id=... [GET]
/scale/register, /scale/validate, /scale/upload [Scale protocol]
`

func (s *Server) routes() {
	s.router.Handler(http.MethodGet, "/", http.HandlerFunc(indexHandler))

	s.router.Handler(http.MethodPost, "/scale/upload", uploadHandler(s.syncer, s.logger))
	s.router.Handler(http.MethodGet, "/scale/register", registerHandler(s.logger))
	s.router.Handler(http.MethodGet, "/scale/validate", validateHandler(s.logger))

	s.router.Handler(http.MethodGet, "/users", s.api(listUsersHandler(s.store, s.logger)))
	s.router.Handler(http.MethodPost, "/users", s.api(createUserHandler(s.store, s.logger)))
	s.router.Handler(http.MethodPut, "/users/:id", s.api(updateUserHandler(s.store, s.logger)))
	s.router.Handler(http.MethodDelete, "/users/:id", s.api(deleteUserHandler(s.store, s.logger)))

	s.router.Handler(http.MethodGet, "/measurements", s.api(listMeasurementsHandler(s.store, s.logger)))
	s.router.Handler(http.MethodPost, "/measurements", s.api(createMeasurementHandler(s.store, s.logger)))
	s.router.Handler(http.MethodGet, "/measurements/latest", s.api(latestMeasurementHandler(s.store, s.logger)))
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, index)
}
