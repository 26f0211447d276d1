package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nvr-ai/roi-detect/records"
	"github.com/pkg/errors"
)

const routeEmails = "emails"

var statusOK = map[string]string{"status": "ok"}

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, routeEmails, err)
		return
	}
	s.metrics.ObserveRequest(routeEmails, "ok")
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateEmail(w http.ResponseWriter, r *http.Request) {
	e, ok := s.decodeEmail(w, r)
	if !ok {
		return
	}
	if _, err := s.store.Create(r.Context(), e); err != nil {
		s.writeError(w, routeEmails, err)
		return
	}
	s.metrics.ObserveRequest(routeEmails, "ok")
	writeJSON(w, http.StatusCreated, statusOK)
}

func (s *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	e, ok := s.decodeEmail(w, r)
	if !ok {
		return
	}
	if err := s.store.Update(r.Context(), id, e); err != nil {
		s.storeError(w, err)
		return
	}
	s.metrics.ObserveRequest(routeEmails, "ok")
	writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleDeleteEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	s.metrics.ObserveRequest(routeEmails, "ok")
	writeJSON(w, http.StatusOK, statusOK)
}

// handleStream serves the change feed as server-sent events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.tracked("sse", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := s.feed.Stream(r.Context(),
			func(data []byte) error {
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return err
				}
				flusher.Flush()
				return nil
			},
			func() error {
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return err
				}
				flusher.Flush()
				return nil
			},
		)
		if err != nil {
			s.logger.Debugw("sse feed ended", "error", err)
		}
	})).ServeHTTP(w, r)
}

// snapshot renders the record list for the change feed.
func (s *Server) snapshot(ctx context.Context) ([]byte, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(list)
}

func (s *Server) decodeEmail(w http.ResponseWriter, r *http.Request) (records.Email, bool) {
	var e records.Email
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&e); err != nil {
		s.badRequest(w, errors.Wrap(err, "decoding body"))
		return e, false
	}
	if err := e.Validate(); err != nil {
		s.badRequest(w, err)
		return e, false
	}
	return e, true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.badRequest(w, errors.Errorf("invalid id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.metrics.ObserveRequest(routeEmails, "bad_request")
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, records.ErrNotFound) {
		s.metrics.ObserveRequest(routeEmails, "not_found")
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	s.writeError(w, routeEmails, err)
}
