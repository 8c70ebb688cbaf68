package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/ports"
)

// Values of the control form's status radio
const (
	statusOn  = "on"
	statusOff = "off"
)

// controlForm is the lamp control form. Both fields are required.
type controlForm struct {
	Status     string `form:"status" validate:"required,lampstatus"`
	Brightness int    `form:"brightness" validate:"required,min=1,max=100"`
}

type controlPageData struct {
	Lamp   *domain.Lamp
	Form   controlForm
	Errors fieldErrors
}

type detailPageData struct {
	Lamp    lampView
	Periods []*domain.WorkingPeriod
}

type errorPageData struct {
	Status  int
	Title   string
	Message string
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/lamps/", http.StatusFound)
}

func (s *Server) lampListPage(w http.ResponseWriter, r *http.Request) {
	lamps, err := s.lamps.ListLamps(r.Context())
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	views := make([]lampView, 0, len(lamps))
	for _, lamp := range lamps {
		v, err := s.view(r.Context(), lamp)
		if err != nil {
			s.pageError(w, r, err)
			return
		}
		views = append(views, v)
	}

	render(w, r, http.StatusOK, "lamp_list", views)
}

func (s *Server) lampDetailPage(w http.ResponseWriter, r *http.Request) {
	lamp, err := s.resolveLamp(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	v, err := s.view(r.Context(), lamp)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	periods, err := s.svc.Periods(r.Context(), lamp)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	render(w, r, http.StatusOK, "lamp_detail", detailPageData{Lamp: v, Periods: periods})
}

func (s *Server) controlPage(w http.ResponseWriter, r *http.Request) {
	lamp, err := s.resolveLamp(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	render(w, r, http.StatusOK, "lamp_control", controlPageData{
		Lamp: lamp,
		Form: controlForm{Status: lamp.State(), Brightness: lamp.Brightness},
	})
}

func (s *Server) submitControl(w http.ResponseWriter, r *http.Request) {
	lamp, err := s.resolveLamp(r)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	form, errs := s.parseControlForm(r)
	if len(errs) > 0 {
		render(w, r, http.StatusBadRequest, "lamp_control", controlPageData{
			Lamp:   lamp,
			Form:   form,
			Errors: errs,
		})
		return
	}

	isOn := form.Status == statusOn
	_, err = s.svc.SetLampMode(r.Context(), lamp, ports.Mode{
		On:         &isOn,
		Brightness: &form.Brightness,
	})
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/lamps/%d", lamp.ID), http.StatusSeeOther)
}

func (s *Server) parseControlForm(r *http.Request) (controlForm, fieldErrors) {
	if err := r.ParseForm(); err != nil {
		return controlForm{}, fieldErrors{"detail": {"Malformed form data."}}
	}

	form := controlForm{Status: r.PostForm.Get("status")}

	errs := make(fieldErrors)
	raw := strings.TrimSpace(r.PostForm.Get("brightness"))
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs.add("brightness", "Enter a whole number.")
		} else {
			form.Brightness = n
		}
	}

	for field, msgs := range s.validator.validate(&form) {
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = msgs
	}
	return form, errs
}

// pageError renders the HTML error page for a service or repository error
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logFailure(r, err, status)

	switch status {
	case http.StatusNotFound:
		s.renderError(w, r, status, "Lamp not found.")
	case http.StatusServiceUnavailable:
		s.renderError(w, r, status, "The lamp switch is temporarily unavailable. Please try again later.")
	case http.StatusBadRequest:
		s.renderError(w, r, status, err.Error())
	default:
		s.renderError(w, r, status, "Something went wrong.")
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render(w, r, status, "error", errorPageData{
		Status:  status,
		Title:   http.StatusText(status),
		Message: msg,
	})
}
