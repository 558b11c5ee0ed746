// Package web serves the browser console: one page with sections for create and
// modify, combine, evaluate, delete and list. Every action posts back to the
// server, runs through its controller and re-renders the page.
package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/ruleconsole/internal/audit"
	"github.com/TimurManjosov/ruleconsole/internal/combine"
	"github.com/TimurManjosov/ruleconsole/internal/console"
	"github.com/TimurManjosov/ruleconsole/internal/evaluation"
	"github.com/TimurManjosov/ruleconsole/internal/logging"
	"github.com/TimurManjosov/ruleconsole/internal/rules"
	"github.com/TimurManjosov/ruleconsole/internal/telemetry"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/console.html"))

// attrPrefix namespaces attribute inputs so they cannot collide with ruleName.
const attrPrefix = "attr."

// Options tunes the HTTP surface.
type Options struct {
	RateLimitPerIP int           // requests per minute per client IP; 0 disables limiting
	RequestTimeout time.Duration // per-request deadline, covers the rule service round trip
	Audit          *audit.Service // optional operator action trail
	SessionIdle    time.Duration  // evaluate sessions unused this long are dropped
}

// Server wires the controllers to HTTP handlers. Each browser session gets its
// own evaluate flow against svc.
type Server struct {
	crud    *console.Controller
	combine *combine.Controller
	flows   *sessions
	log     zerolog.Logger
	opts    Options
}

// NewServer creates a console server.
func NewServer(crud *console.Controller, comb *combine.Controller, svc evaluation.Service, log zerolog.Logger, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 35 * time.Second
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = 30 * time.Minute
	}
	flowLog := log.With().Str("component", "evaluation").Logger()
	newFlow := func() *evaluation.Orchestrator { return evaluation.New(svc, flowLog) }
	return &Server{crud: crud, combine: comb, flows: newSessions(newFlow, opts.SessionIdle), log: log, opts: opts}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(logging.AccessLog(s.log))
	r.Use(telemetry.Middleware)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	if s.opts.RateLimitPerIP > 0 {
		r.Use(httprate.LimitByIP(s.opts.RateLimitPerIP, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", s.handleIndex)
	r.Route("/rules", func(r chi.Router) {
		r.Post("/create", s.handleCreate)
		r.Post("/update", s.handleUpdate)
		r.Post("/combine", s.handleCombine)
		r.Post("/delete", s.handleDelete)
		r.Post("/list", s.handleList)
	})
	r.Route("/evaluate", func(r chi.Router) {
		r.Post("/attributes", s.handleAttributes)
		r.Post("/submit", s.handleEvaluate)
		r.Post("/reset", s.handleReset)
	})

	return r
}

// ---- page model ----

type page struct {
	Notices map[string]console.Notice

	RuleName   string
	RuleString string

	CombineNames string
	CombinedName string
	Operator     string
	Operators    []rules.Operator

	Eval  evaluation.State
	Rules []rules.Rule
}

// newPage starts a page showing flow's evaluate state. A nil flow is a browser
// that has not started evaluating yet.
func newPage(flow *evaluation.Orchestrator) *page {
	p := &page{
		Notices:   make(map[string]console.Notice),
		Operator:  string(rules.OpAnd),
		Operators: rules.Operators,
	}
	if flow != nil {
		p.Eval = flow.State()
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, p *page) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		s.log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("render console page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ---- handlers ----

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, newPage(s.flows.lookup(w, r, false)))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	p := newPage(s.flows.lookup(w, r, false))
	p.RuleName, p.RuleString = r.PostForm.Get("ruleName"), r.PostForm.Get("ruleString")
	p.Notices["rule"] = s.crud.Create(r.Context(), strings.TrimSpace(p.RuleName), p.RuleString)
	s.record(r, audit.ActionCreated, p.RuleName, p.Notices["rule"])
	s.render(w, r, p)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	p := newPage(s.flows.lookup(w, r, false))
	p.RuleName, p.RuleString = r.PostForm.Get("ruleName"), r.PostForm.Get("ruleString")
	p.Notices["rule"] = s.crud.Update(r.Context(), strings.TrimSpace(p.RuleName), p.RuleString)
	s.record(r, audit.ActionUpdated, p.RuleName, p.Notices["rule"])
	s.render(w, r, p)
}

func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	p := newPage(s.flows.lookup(w, r, false))
	p.CombineNames = r.PostForm.Get("ruleNames")
	p.CombinedName = r.PostForm.Get("combinedRuleName")
	p.Operator = r.PostForm.Get("operator")

	rule, err := s.combine.Combine(r.Context(), p.CombineNames, p.CombinedName, p.Operator)
	p.Notices["combine"] = console.CombineNotice(rule, err)
	s.record(r, audit.ActionCombined, p.CombinedName, p.Notices["combine"])
	s.render(w, r, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	name := strings.TrimSpace(r.PostForm.Get("ruleName"))
	p := newPage(s.flows.lookup(w, r, false))
	p.Notices["delete"] = s.crud.Delete(r.Context(), name)
	s.record(r, audit.ActionDeleted, name, p.Notices["delete"])
	s.render(w, r, p)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	p := newPage(s.flows.lookup(w, r, false))
	p.Rules, p.Notices["list"] = s.crud.List(r.Context())
	s.render(w, r, p)
}

func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	flow := s.flows.lookup(w, r, true)
	// a superseded response renders whatever the newer selection has produced
	_, err := flow.Select(r.Context(), r.PostForm.Get("ruleName"))
	p := newPage(flow)
	p.Notices["evaluate"] = console.AttributesNotice(err)
	s.render(w, r, p)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	flow := s.flows.lookup(w, r, true)
	p := newPage(flow)

	// a form rendered for an earlier selection must not be evaluated against the current one
	if gen := r.PostForm.Get("generation"); gen != "" {
		if n, err := strconv.ParseUint(gen, 10, 64); err != nil || n != p.Eval.Generation {
			p.Notices["evaluate"] = console.EvaluateNotice(evaluation.ErrSuperseded)
			s.render(w, r, p)
			return
		}
	}

	values := make(map[string]string)
	for key, vals := range r.PostForm {
		if name, ok := strings.CutPrefix(key, attrPrefix); ok && len(vals) > 0 {
			values[name] = vals[0]
		}
	}

	st, err := flow.Submit(r.Context(), values)
	p.Eval = st
	p.Notices["evaluate"] = console.EvaluateNotice(err)
	if st.Verdict != nil && err == nil {
		s.record(r, audit.ActionEvaluated, st.Rule, console.Notice{Level: console.LevelSuccess, Text: st.Verdict.Label})
	} else if !errors.Is(err, evaluation.ErrSuperseded) {
		s.record(r, audit.ActionEvaluated, st.Rule, p.Notices["evaluate"])
	}
	s.render(w, r, p)
}

func (s *Server) record(r *http.Request, action, rule string, n console.Notice) {
	s.opts.Audit.Log(audit.NewEvent(r, action, strings.TrimSpace(rule), n.OK(), n.Text))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	flow := s.flows.lookup(w, r, false)
	if flow != nil {
		flow.Reset()
	}
	s.render(w, r, newPage(flow))
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return false
	}
	return true
}
