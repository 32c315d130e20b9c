// Package debugsrv provides the standalone debug/log HTTP server of the
// overlay. It mirrors the live frame feed for browser tooling and collects
// error reports from telemetry clients.
package debugsrv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/racedash/rsc-input-service-go/log"
	"github.com/racedash/rsc-input-service-go/pkg/utils/broadcast"
)

const maxReports = 100

type (
	Report struct {
		ID         string    `json:"id"`
		Kind       string    `json:"kind"`
		Message    string    `json:"message"`
		ReceivedAt time.Time `json:"receivedAt"`
	}

	Server struct {
		addr string
		l    *log.Logger

		mutex   sync.Mutex
		latest  string
		reports []Report

		frames chan string
		bcst   broadcast.BroadcastServer[string]

		httpServer *http.Server
	}

	Option func(*Server)
)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		l:      log.Default().Named("debugsrv"),
		frames: make(chan string, 32),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bcst = broadcast.NewBroadcastServer("debug-frames", s.frames)
	return s
}

// PublishFrame records the latest raw payload and feeds the stream
// watchers. Never blocks; when the buffer is full the frame is dropped
// (watchers are a debugging aid, not a consumer with guarantees).
func (s *Server) PublishFrame(raw string) {
	s.mutex.Lock()
	s.latest = raw
	s.mutex.Unlock()
	select {
	case s.frames <- raw:
	default:
	}
}

// Report implements the client's Reporter interface for the embedded case.
func (s *Server) Report(kind string, err error) {
	s.addReport(kind, err.Error())
}

func (s *Server) addReport(kind, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.reports = append(s.reports, Report{
		ID:         uuid.New().String(),
		Kind:       kind,
		Message:    message,
		ReceivedAt: time.Now(),
	})
	if len(s.reports) > maxReports {
		s.reports = s.reports[len(s.reports)-maxReports:]
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/frame", s.handleFrame)
	mux.HandleFunc("GET /debug/stream", s.handleStream)
	mux.HandleFunc("POST /debug/report", s.handleReport)
	mux.HandleFunc("GET /debug/reports", s.handleReports)
	return h2c.NewHandler(newCORS().Handler(mux), &http2.Server{})
}

// Start blocks until the server is shut down.
func (s *Server) Start() error {
	s.l.Info("starting debug server", log.String("addr", s.addr))
	//nolint:gosec // local debugging aid
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	if err := s.httpServer.ListenAndServe(); err != nil &&
		err != http.ErrServerClosed {
		return fmt.Errorf("debug server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	s.bcst.Close()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.l.Warn("debug server shutdown", log.ErrorField(err))
		}
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	latest := s.latest
	s.mutex.Unlock()
	if latest == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, latest)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.bcst.Subscribe()
	defer s.bcst.CancelSubscription(sub)
	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-sub:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var report Report
	if err := oj.Unmarshal(body, &report); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if report.Kind == "" {
		http.Error(w, "kind is required", http.StatusBadRequest)
		return
	}
	s.l.Warn("client report",
		log.String("kind", report.Kind), log.String("message", report.Message))
	s.addReport(report.Kind, report.Message)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	s.mutex.Lock()
	reports := make([]Report, len(s.reports))
	copy(reports, s.reports)
	s.mutex.Unlock()

	if kind != "" {
		reports = lo.Filter(reports, func(item Report, _ int) bool {
			return item.Kind == kind
		})
	}
	data, err := oj.Marshal(reports)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func newCORS() *cors.Cors {
	// the browser overlay is the consumer, so this is deliberately permissive
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
