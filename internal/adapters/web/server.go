// Package web is the HTTP face of the lamp service: a JSON API under /api
// and a small HTML site under /lamps.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/ports"
)

// requestIDHeader carries the request id in both directions
const requestIDHeader = "X-Request-ID"

// LampService is what the handlers need from ports.LampModeService
type LampService interface {
	SetLampMode(ctx context.Context, lamp *domain.Lamp, mode ports.Mode) (*domain.Lamp, error)
	TotalWorkingTime(ctx context.Context, lamp *domain.Lamp) (time.Duration, error)
	Periods(ctx context.Context, lamp *domain.Lamp) ([]*domain.WorkingPeriod, error)
}

// LampReader resolves lamps for the handlers
type LampReader interface {
	GetLamp(ctx context.Context, id int64) (*domain.Lamp, error)
	ListLamps(ctx context.Context) ([]*domain.Lamp, error)
}

// Server serves the REST API and the HTML pages
type Server struct {
	lamps     LampReader
	svc       LampService
	validator *formValidator
	handler   http.Handler
}

// NewServer builds the router and its middleware
func NewServer(lamps LampReader, svc LampService) *Server {
	s := &Server{
		lamps:     lamps,
		svc:       svc,
		validator: newFormValidator(),
	}

	router := mux.NewRouter()
	s.registerAPI(router)
	s.registerPages(router)
	router.NotFoundHandler = http.HandlerFunc(s.notFound)

	var h http.Handler = router
	h = handlers.CustomLoggingHandler(io.Discard, h, accessLog)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
	h = handlers.ProxyHeaders(h)
	s.handler = requestID(h)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerAPI(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", s.apiRoot).Methods(http.MethodGet)
	api.HandleFunc("/lamps", s.listLamps).Methods(http.MethodGet)
	api.HandleFunc("/lamps", s.methodNotAllowed(http.MethodGet)).Methods(http.MethodPost)
	api.HandleFunc("/lamps/{id:[0-9]+}", s.getLamp).Methods(http.MethodGet)
	api.HandleFunc("/lamps/{id:[0-9]+}", s.updateLamp).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/lamps/{id:[0-9]+}", s.methodNotAllowed(http.MethodGet, http.MethodPatch, http.MethodPut)).
		Methods(http.MethodDelete, http.MethodPost)
}

func (s *Server) registerPages(router *mux.Router) {
	router.HandleFunc("/", s.root).Methods(http.MethodGet)
	router.HandleFunc("/lamps/", s.lampListPage).Methods(http.MethodGet)
	router.HandleFunc("/lamps/{id:[0-9]+}", s.lampDetailPage).Methods(http.MethodGet)
	router.HandleFunc("/lamps/{id:[0-9]+}/control", s.controlPage).Methods(http.MethodGet)
	router.HandleFunc("/lamps/{id:[0-9]+}/control", s.submitControl).Methods(http.MethodPost)
}

// resolveLamp loads the lamp named by the {id} route variable
func (s *Server) resolveLamp(r *http.Request) (*domain.Lamp, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, domain.ErrLampNotFound
	}
	return s.lamps.GetLamp(r.Context(), id)
}

// lampView is a lamp with its derived values, shared by JSON and HTML
type lampView struct {
	*domain.Lamp
	TotalWorkingTime time.Duration
}

func (s *Server) view(ctx context.Context, lamp *domain.Lamp) (lampView, error) {
	total, err := s.svc.TotalWorkingTime(ctx, lamp)
	if err != nil {
		return lampView{}, fmt.Errorf("total working time: %w", err)
	}
	return lampView{Lamp: lamp, TotalWorkingTime: total}, nil
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrLampNotFound):
		return http.StatusNotFound
	case domain.IsExternal(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidBrightness):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func logFailure(r *http.Request, err error, status int) {
	evt := log.Warn()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).
		Str("request_id", r.Header.Get(requestIDHeader)).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
}

// requestID makes sure every request and response carries an id
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one zerolog line per request
func accessLog(_ io.Writer, p handlers.LogFormatterParams) {
	log.Info().
		Str("request_id", p.Request.Header.Get(requestIDHeader)).
		Str("method", p.Request.Method).
		Str("path", p.URL.Path).
		Int("status", p.StatusCode).
		Int("size", p.Size).
		Dur("duration", time.Since(p.TimeStamp)).
		Msg("http request")
}

// recoveryLogger sends recovered panics to zerolog
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error().Msg(fmt.Sprint(v...))
}
