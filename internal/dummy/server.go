package dummy

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader is echoed back by every endpoint.
const RequestIDHeader = "X-Request-Id"

type ServerConfig struct {
	Port int
	// Seed drives the endpoint jitter; zero uses a time-based seed.
	Seed int64
}

// Server is a local target with endpoints of known latency shape.
type Server struct {
	srv *http.Server
	ln  net.Listener

	mu  sync.Mutex
	rng *rand.Rand
}

func NewServer(cfg ServerConfig) *Server {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Server{rng: rand.New(rand.NewSource(seed))}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Server) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, delay time.Duration, status int, body string) {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		w.Header().Set(RequestIDHeader, id)
	}
	select {
	case <-time.After(delay):
	case <-r.Context().Done():
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// 10-50ms
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		s.reply(w, r, time.Duration(s.intn(40)+10)*time.Millisecond, http.StatusOK, "Fast response")
	})

	// 100-300ms
	mux.HandleFunc("/medium", func(w http.ResponseWriter, r *http.Request) {
		s.reply(w, r, time.Duration(s.intn(200)+100)*time.Millisecond, http.StatusOK, "Medium response")
	})

	// 1-2s, long enough to trip a drain timeout
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		s.reply(w, r, time.Duration(s.intn(1000)+1000)*time.Millisecond, http.StatusOK, "Slow response")
	})

	// Usually fast, 5% of requests take 2s: p50 is fine, p99 is not.
	mux.HandleFunc("/spike", func(w http.ResponseWriter, r *http.Request) {
		delay := 20 * time.Millisecond
		if s.float() < 0.05 {
			delay = 2 * time.Second
		}
		s.reply(w, r, delay, http.StatusOK, "Spikey response")
	})

	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		switch rnd := s.float(); {
		case rnd < 0.2:
			s.reply(w, r, 0, http.StatusInternalServerError, "500 Internal Server Error")
		case rnd < 0.4:
			s.reply(w, r, 0, http.StatusTooManyRequests, "429 Too Many Requests")
		default:
			s.reply(w, r, 0, http.StatusOK, "OK")
		}
	})
	return mux
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.srv.Addr)
	}
	s.ln = ln
	log.WithField("addr", ln.Addr().String()).Info("Dummy target running, endpoints: /fast, /medium, /slow, /spike, /error")

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Dummy target failed")
		}
	}()
	return nil
}

// Addr is the host:port clients can dial once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	if tcp, ok := s.ln.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
