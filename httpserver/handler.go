package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/metrics"
)

// handleExecute routes one opaque request frame to a registered HAL
// front. The body is the raw request frame; the response body is the
// raw response frame.
//
// A poisoned channel fails this one call with 503; the process keeps
// serving. Oversize frames are rejected with 413 before reaching the
// channel.
func (srv *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		http.Error(w, "draining", http.StatusServiceUnavailable)
		return
	}

	name, err := interfaces.NewServiceName(chi.URLParam(r, "interface"), chi.URLParam(r, "instance"))
	if err != nil {
		http.Error(w, "invalid service name", http.StatusBadRequest)
		return
	}

	handler, err := srv.registry.Lookup(name)
	if err != nil {
		http.Error(w, "unknown service", http.StatusNotFound)
		return
	}
	metrics.RequestsTotal.WithLabelValues(name.Interface()).Inc()

	// One extra byte so an oversize frame is detected rather than
	// silently truncated.
	request, err := io.ReadAll(io.LimitReader(r.Body, interfaces.MaxFrameSize+1))
	if err != nil {
		http.Error(w, "reading request", http.StatusBadRequest)
		return
	}
	if len(request) > interfaces.MaxFrameSize {
		http.Error(w, "request frame too large", http.StatusRequestEntityTooLarge)
		return
	}

	response, err := srv.pool.Submit(r.Context(), handler, request)
	switch {
	case err == nil:
	case errors.Is(err, interfaces.ErrFrameTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, interfaces.ErrChannelPoisoned):
		srv.log.Error("exchange failed on poisoned channel", "service", name.String(), "err", err)
		http.Error(w, "shared channel unavailable", http.StatusServiceUnavailable)
		return
	default:
		srv.log.Error("exchange failed", "service", name.String(), "err", err)
		http.Error(w, "exchange failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}
