// Package httpsut is a system under test that forwards every sample to an
// HTTP endpoint and completes it when the response arrives.
package httpsut

import (
	"bytes"
	"crypto/tls"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"benchq/pkg/sut"
)

// RequestIDHeader carries a fresh uuid per request.
const RequestIDHeader = "X-Request-Id"

// maxResponseData caps the bytes of a response body kept as response data.
const maxResponseData = 4096

type Config struct {
	URL    string
	Method string
	// Body is a text/template rendered per sample; see TemplateData.
	Body     string
	Timeout  time.Duration
	MaxConns int
	// Insecure skips TLS verification.
	Insecure bool
}

// SUT sends one request per sample. Transport errors and non-2xx statuses
// still complete the sample, so a failing target shows up as failures
// rather than as a drain timeout.
type SUT struct {
	cfg    Config
	client *http.Client
	engine *TemplateEngine
	body   *template.Template
	log    *log.Entry

	wg       sync.WaitGroup
	sent     atomic.Uint64
	failures atomic.Uint64
}

func New(cfg Config, logger *log.Entry) (*SUT, error) {
	if cfg.URL == "" {
		return nil, errors.New("http sut needs a url")
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.Body == "" {
		cfg.Body = DefaultBody
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 2000
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = cfg.MaxConns
	t.MaxConnsPerHost = cfg.MaxConns
	t.MaxIdleConnsPerHost = cfg.MaxConns
	if cfg.Insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	engine := NewTemplateEngine()
	body, err := engine.Parse("body", cfg.Body)
	if err != nil {
		return nil, err
	}

	return &SUT{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: t,
		},
		engine: engine,
		body:   body,
		log:    logger.WithField("component", "httpsut"),
	}, nil
}

func (s *SUT) Name() string { return "HTTP " + s.cfg.URL }

func (s *SUT) IssueQuery(done sut.Completer, samples []sut.QuerySample) {
	s.wg.Add(len(samples))
	for _, smp := range samples {
		go func(smp sut.QuerySample) {
			defer s.wg.Done()
			data := s.send(smp)
			done.QuerySamplesComplete([]sut.Response{{ID: smp.ID, Data: data}})
		}(smp)
	}
}

func (s *SUT) send(smp sut.QuerySample) []byte {
	s.sent.Add(1)
	requestID := uuid.NewString()
	body, err := s.engine.Execute(s.body, TemplateData{
		ID:        uint64(smp.ID),
		Index:     uint64(smp.Index),
		RequestID: requestID,
	})
	if err != nil {
		s.fail(smp, err)
		return nil
	}

	req, err := http.NewRequest(s.cfg.Method, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		s.fail(smp, errors.WithStack(err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := s.client.Do(req)
	if err != nil {
		s.fail(smp, err)
		return nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseData))
	_, _ = io.Copy(io.Discard, resp.Body)
	if err != nil {
		s.fail(smp, errors.Wrap(err, "reading response"))
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.fail(smp, errors.Errorf("status %d", resp.StatusCode))
	}
	return data
}

func (s *SUT) fail(smp sut.QuerySample, err error) {
	s.failures.Add(1)
	s.log.WithError(err).WithField("sample", smp.Index).Debug("Request failed")
}

func (s *SUT) ReportLatencyResults(latencies []time.Duration) {
	s.log.WithFields(log.Fields{
		"samples":  len(latencies),
		"sent":     s.sent.Load(),
		"failures": s.failures.Load(),
	}).Info("HTTP target run complete")
}

// Failures is the number of requests that errored or returned non-2xx.
func (s *SUT) Failures() uint64 {
	return s.failures.Load()
}

// Close waits for in-flight requests.
func (s *SUT) Close() {
	s.wg.Wait()
	s.client.CloseIdleConnections()
}
