// Package server is the web front-end: a landing page, the prediction form
// and a liveness probe, routed with gorilla/mux.
package server

import (
	"context"
	"embed"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/YuminosukeSato/studentperf/dataset"
	"github.com/YuminosukeSato/studentperf/pipeline"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Predictor is the inference dependency of the server.
type Predictor interface {
	Predict(ctx context.Context, records []dataset.Record) ([]float64, error)
}

// Options configures a Server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PreserveScoreSwap feeds the form's writing_score into the reading
	// score and vice versa, reproducing the historical front-end.
	PreserveScoreSwap bool
	Logger            log.Logger
}

// Server serves the prediction form.
type Server struct {
	router    *mux.Router
	predictor Predictor
	opts      Options
	logger    log.Logger
}

// New builds the router. The predictor is called once per form submission.
func New(p Predictor, opts Options) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		predictor: p,
		opts:      opts,
		logger:    log.OrNop(opts.Logger).With(log.ComponentKey, "http"),
	}
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/predictdata", s.handleForm).Methods(http.MethodGet)
	s.router.HandleFunc("/predictdata", s.handlePredict).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server: listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "server: shutdown")
		}
		return nil
	}
}

type formPage struct {
	Genders            []string
	Ethnicities        []string
	ParentalEducations []string
	Lunches            []string
	TestPreparations   []string
	HasResult          bool
	Result             string
}

func newFormPage() formPage {
	return formPage{
		Genders:            dataset.Genders,
		Ethnicities:        dataset.RaceEthnicities,
		ParentalEducations: dataset.ParentalEducations,
		Lunches:            dataset.Lunches,
		TestPreparations:   dataset.TestPreparations,
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template execution failed", err, "template", name)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", nil)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home.html", newFormPage())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handlePredict builds one record from the form. Unparseable scores are a
// client error; any inference failure is a generic 500.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	writing, err := parseScore(r.PostForm.Get("writing_score"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	reading, err := parseScore(r.PostForm.Get("reading_score"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if s.opts.PreserveScoreSwap {
		reading, writing = writing, reading
	}

	data := pipeline.CustomData{
		Gender:                   r.PostForm.Get("gender"),
		RaceEthnicity:            r.PostForm.Get("ethnicity"),
		ParentalLevelOfEducation: r.PostForm.Get("parental_level_of_education"),
		Lunch:                    r.PostForm.Get("lunch"),
		TestPreparationCourse:    r.PostForm.Get("test_preparation_course"),
		ReadingScore:             reading,
		WritingScore:             writing,
	}
	results, err := s.predictor.Predict(r.Context(), []dataset.Record{data.Record()})
	if err != nil || len(results) == 0 {
		if err == nil {
			err = errors.New("empty prediction")
		}
		s.logger.Error("prediction request failed", err)
		http.Error(w, "prediction failed", http.StatusInternalServerError)
		return
	}

	page := newFormPage()
	page.HasResult = true
	page.Result = strconv.FormatFloat(results[0], 'f', -1, 64)
	s.render(w, "home.html", page)
}

// parseScore accepts NaN (imputed downstream) but not ±Inf.
func parseScore(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) {
		return 0, errors.NewValueError("parseScore", "score must be finite")
	}
	return f, nil
}
