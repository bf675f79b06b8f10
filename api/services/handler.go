// Package services exposes the dispatcher over HTTP: service discovery, call
// injection and the audit trail.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/model"
	"github.com/hmctl/hmdispatch/core/schema"
	"github.com/hmctl/hmdispatch/core/service"
)

// Dispatcher is the call surface the handler needs.
type Dispatcher interface {
	Services() []string
	ServiceFields(name string) ([]string, bool)
	Dispatch(ctx context.Context, call model.ServiceCall) error
}

type serviceInfo struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// NewHandler returns the API handler. Requests to /api/services/logs must
// include an Authorization header with "Bearer <token>" when token is
// non-empty; the other routes are open.
func NewHandler(d Dispatcher, store audit.Store, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/services", listServices(d))
	mux.HandleFunc("GET /api/services/logs", queryLogs(store, token))
	mux.HandleFunc("POST /api/services/{name}", callService(d))
	return mux
}

func listServices(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := d.Services()
		out := make([]serviceInfo, 0, len(names))
		for _, name := range names {
			fields, _ := d.ServiceFields(name)
			out = append(out, serviceInfo{Name: name, Fields: fields})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func callService(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		var data map[string]any
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
				http.Error(w, "invalid JSON body", http.StatusBadRequest)
				return
			}
		}
		call := model.ServiceCall{Name: name, Data: data}
		err := d.Dispatch(r.Context(), call)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, service.ErrUnknownService):
			http.Error(w, err.Error(), http.StatusNotFound)
		case isValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
	}
}

func isValidationError(err error) bool {
	var fe *schema.FieldError
	return errors.As(err, &fe)
}

func queryLogs(store audit.Store, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		if store == nil {
			http.Error(w, "audit trail disabled", http.StatusNotFound)
			return
		}
		q := audit.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		q.Service = r.URL.Query().Get("service")
		q.Outcome = audit.Outcome(r.URL.Query().Get("outcome"))
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
