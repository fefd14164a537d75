// Package httpserver wires the acquirer business logic to HTTP: a
// gorilla/mux router exposing the three terminal-facing GET endpoints, a
// health check, static asset serving, and request-ID/logging middleware.
package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/willians06/iso-acquirer-gateway/internal/acquirer"
	"github.com/willians06/iso-acquirer-gateway/internal/logging"
)

const requestIDHeader = "X-Request-Id"

// NewRouter builds the gateway's mux router: /keyinit/{iso}, /sale/{iso},
// /token/{serial}, a / health check, and a public/ static file server.
func NewRouter(gw *acquirer.Gateway, publicDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)

	r.HandleFunc("/keyinit/{iso}", keyInitHandler(gw)).Methods(http.MethodGet)
	r.HandleFunc("/sale/{iso}", saleHandler(gw)).Methods(http.MethodGet)
	r.HandleFunc("/token/{serial}", tokenHandler(gw)).Methods(http.MethodGet)

	// Everything else, including "/" itself, is served from publicDir with
	// index.html as the default document; this doubles as the health check.
	fs := http.FileServer(http.Dir(publicDir))
	r.PathPrefix("/").Handler(fs).Methods(http.MethodGet)

	return r
}

// requestIDMiddleware attaches a fresh UUID to every request, both as a
// response header and via the request context, for correlated logging.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// loggingMiddleware logs one structured event when a request arrives and
// one when its response is sent.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestIDFrom(r.Context())
		logging.LogRequest(id, r.RemoteAddr, r.Method, r.URL.Path)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		logging.LogResponse(id, r.RemoteAddr, r.URL.Path, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// keyInitHandler wraps acquirer.Gateway.KeyInit: the {iso} path segment
// is the hex-encoded ISO 8583 request; the response body is the
// hex-encoded ISO 8583 reply.
func keyInitHandler(gw *acquirer.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iso := mux.Vars(r)["iso"]
		respHex, err := gw.KeyInit(iso)
		if err != nil {
			writeError(w, requestIDFrom(r.Context()), err)
			return
		}
		writeHexResponse(w, respHex)
	}
}

// saleHandler wraps acquirer.Gateway.Sale.
func saleHandler(gw *acquirer.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iso := mux.Vars(r)["iso"]
		respHex, err := gw.Sale(iso)
		if err != nil {
			writeError(w, requestIDFrom(r.Context()), err)
			return
		}
		writeHexResponse(w, respHex)
	}
}

// tokenHandler wraps acquirer.Gateway.Token: any error from Token (such
// as an unknown serial) becomes a 400 "invalid ID"; success is a 200 with
// the raw signed token bytes as the body.
func tokenHandler(gw *acquirer.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serial := mux.Vars(r)["serial"]
		token, err := gw.Token(serial)
		if err != nil {
			log.Error().Str("request_id", requestIDFrom(r.Context())).Err(err).Msg("token request rejected")
			http.Error(w, "invalid ID", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(token)
	}
}

func writeHexResponse(w http.ResponseWriter, hexBody string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(hexBody))
}

// writeError logs the full wrapped error server-side but only ever sends
// a bounded diagnostic string to the caller, never a stack trace. Field 63
// missing on a key-init request gets its own documented wire message;
// every other failure gets a generic one.
func writeError(w http.ResponseWriter, requestID string, err error) {
	log.Error().Str("request_id", requestID).Err(err).Msg("request failed")
	if errors.Is(err, acquirer.ErrField63Missing) {
		http.Error(w, acquirer.ErrField63Missing.Error(), http.StatusInternalServerError)
		return
	}
	http.Error(w, "internal error processing request", http.StatusInternalServerError)
}
