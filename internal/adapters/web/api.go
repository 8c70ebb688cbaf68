package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/ports"
)

// lampResponse is the JSON representation of a lamp
type lampResponse struct {
	ID               int64      `json:"id"`
	URL              string     `json:"url"`
	Name             string     `json:"name"`
	IsOn             bool       `json:"is_on"`
	Brightness       int        `json:"brightness"`
	LastSwitch       *time.Time `json:"last_switch"`
	TotalWorkingTime float64    `json:"total_working_time"` // seconds
}

type lampListResponse struct {
	Count   int            `json:"count"`
	Results []lampResponse `json:"results"`
}

// lampPatch is a partial update. Other fields, name included, are ignored.
type lampPatch struct {
	IsOn       *bool `json:"is_on"`
	Brightness *int  `json:"brightness" validate:"omitempty,min=1,max=100"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) apiRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"lamps": baseURL(r) + "/api/lamps",
	})
}

func (s *Server) listLamps(w http.ResponseWriter, r *http.Request) {
	lamps, err := s.lamps.ListLamps(r.Context())
	if err != nil {
		s.apiError(w, r, err)
		return
	}

	resp := lampListResponse{Results: make([]lampResponse, 0, len(lamps))}
	for _, lamp := range lamps {
		v, err := s.view(r.Context(), lamp)
		if err != nil {
			s.apiError(w, r, err)
			return
		}
		resp.Results = append(resp.Results, toLampResponse(r, v))
	}
	resp.Count = len(resp.Results)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getLamp(w http.ResponseWriter, r *http.Request) {
	lamp, err := s.resolveLamp(r)
	if err != nil {
		s.apiError(w, r, err)
		return
	}

	v, err := s.view(r.Context(), lamp)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLampResponse(r, v))
}

// updateLamp handles PATCH and PUT alike: both are partial updates
func (s *Server) updateLamp(w http.ResponseWriter, r *http.Request) {
	lamp, err := s.resolveLamp(r)
	if err != nil {
		s.apiError(w, r, err)
		return
	}

	var patch lampPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeJSON(w, http.StatusBadRequest, fieldErrors{
				typeErr.Field: {fmt.Sprintf("Expected a %s.", jsonKind(typeErr.Type.Kind().String()))},
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: "Malformed JSON body."})
		return
	}

	if errs := s.validator.validate(&patch); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	updated, err := s.svc.SetLampMode(r.Context(), lamp, ports.Mode{
		On:         patch.IsOn,
		Brightness: patch.Brightness,
	})
	if err != nil {
		s.apiError(w, r, err)
		return
	}

	v, err := s.view(r.Context(), updated)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLampResponse(r, v))
}

func (s *Server) methodNotAllowed(allowed ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeJSON(w, http.StatusMethodNotAllowed, detailResponse{
			Detail: fmt.Sprintf("Method %q not allowed.", r.Method),
		})
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, detailResponse{Detail: "Not found."})
		return
	}
	s.renderError(w, r, http.StatusNotFound, "Page not found.")
}

// apiError writes the JSON error for a service or repository error
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logFailure(r, err, status)

	var detail string
	switch status {
	case http.StatusNotFound:
		detail = "Not found."
	case http.StatusServiceUnavailable:
		detail = "Lamp switch is temporarily unavailable, try again later."
	case http.StatusBadRequest:
		writeJSON(w, status, fieldErrors{"brightness": {err.Error()}})
		return
	default:
		detail = "Internal server error."
	}
	writeJSON(w, status, detailResponse{Detail: detail})
}

func toLampResponse(r *http.Request, v lampView) lampResponse {
	return lampResponse{
		ID:               v.ID,
		URL:              fmt.Sprintf("%s/api/lamps/%d", baseURL(r), v.ID),
		Name:             v.Name,
		IsOn:             v.IsOn,
		Brightness:       v.Brightness,
		LastSwitch:       v.LastSwitch,
		TotalWorkingTime: v.TotalWorkingTime.Seconds(),
	}
}

// baseURL returns scheme://host of the request as seen by the client
func baseURL(r *http.Request) string {
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + r.Host
}

func jsonKind(goKind string) string {
	switch goKind {
	case "bool":
		return "boolean"
	case "int", "int64":
		return "whole number"
	default:
		return goKind
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to write JSON response")
	}
}
