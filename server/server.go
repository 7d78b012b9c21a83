// Package server exposes the pipeline's runtime controls over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"

	depthcount "github.com/swdee/go-depthcount"
	"github.com/swdee/go-depthcount/counter"
)

// maxBody limits the size of request bodies
const maxBody = 64 << 10

// Controller is the part of the pipeline the API drives
type Controller interface {
	Status() depthcount.Status
	ResetCounters() counter.State
	Config() *depthcount.Config
	Start() error
	Stop() error
}

// Server routes API requests to a Controller
type Server struct {
	ctl    Controller
	stream http.Handler
	log    logrus.FieldLogger
}

// New returns a server for ctl.  stream serves the MJPEG stream and may be
// nil when streaming is disabled.
func New(ctl Controller, stream http.Handler, log logrus.FieldLogger) *Server {

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Server{
		ctl:    ctl,
		stream: stream,
		log:    log,
	}
}

// ServeMux returns the API routes
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/counts", s.counts)
	mux.HandleFunc("POST /api/counts/reset", s.reset)
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("PATCH /api/config", s.patchConfig)
	mux.HandleFunc("POST /api/capture/start", s.start)
	mux.HandleFunc("POST /api/capture/stop", s.stop)

	if s.stream != nil {
		mux.Handle("GET /stream", s.stream)
	}

	return mux
}

// Handler returns the routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	return s.logging(s.ServeMux())
}

// ListenAndServe serves the API on addr until the server fails
func (s *Server) ListenAndServe(addr string) error {

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.WithField("addr", addr).Info("HTTP control API listening")

	return srv.ListenAndServe()
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// logging logs method, path, status and duration of every request
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   lrw.statusCode,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	body, _ := sjson.Set(`{}`, "error", msg)
	writeJSON(w, status, body)
}

func (s *Server) counts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, countsJSON(s.ctl.Status()))
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.ctl.ResetCounters()
	writeJSON(w, http.StatusOK, countsJSON(s.ctl.Status()))
}

// countsJSON renders the counts response
func countsJSON(st depthcount.Status) string {
	out := `{}`
	out, _ = sjson.Set(out, "in", st.Counts.In)
	out, _ = sjson.Set(out, "out", st.Counts.Out)
	out, _ = sjson.Set(out, "tracks", st.Tracks)
	out, _ = sjson.Set(out, "frame", st.Frame)
	return out
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Config().JSON())
}

// patchConfig applies each field present in the body, fields that are
// rejected keep their previous value and are reported with a 400
func (s *Server) patchConfig(w http.ResponseWriter, r *http.Request) {

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))

	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	cfg := s.ctl.Config()
	applied, err := cfg.Apply(string(body))

	out, _ := sjson.SetRaw(`{}`, "config", cfg.JSON())

	if applied == nil {
		applied = []string{}
	}
	out, _ = sjson.Set(out, "applied", applied)

	if err != nil {
		out, _ = sjson.Set(out, "error", err.Error())
		writeJSON(w, http.StatusBadRequest, out)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {

	err := s.ctl.Start()

	switch {
	case errors.Is(err, depthcount.ErrRunning):
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log.WithError(err).Error("capture start failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.ctl.Status().JSON())
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {

	err := s.ctl.Stop()

	switch {
	case errors.Is(err, depthcount.ErrNotRunning):
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		// the capture has stopped but ended with an error
		out, _ := sjson.SetRaw(`{}`, "status", s.ctl.Status().JSON())
		out, _ = sjson.Set(out, "error", err.Error())
		writeJSON(w, http.StatusOK, out)
		return
	}

	writeJSON(w, http.StatusOK, s.ctl.Status().JSON())
}
