// Package dashboard serves the prediction form and the result panels.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
	"github.com/refset/churn-insight-dashboard/internal/customer"
	"github.com/refset/churn-insight-dashboard/internal/form"
	"github.com/refset/churn-insight-dashboard/internal/panel"
)

//go:embed templates/*.html
var templates embed.FS

const shutdownTimeout = 5 * time.Second

// Pinger checks that the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Addr       string
	Mode       string
	BackendURL string
}

// Server is the dashboard HTTP server.
type Server struct {
	opts    Options
	engine  *gin.Engine
	tmpl    *template.Template
	form    *form.Form
	board   *panel.Board
	backend Pinger
}

// New builds the server and its routes.
func New(opts Options, f *form.Form, board *panel.Board, backend Pinger) (*Server, error) {
	switch opts.Mode {
	case "":
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	default:
		return nil, fmt.Errorf("unknown server mode %q", opts.Mode)
	}

	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		opts:    opts,
		engine:  gin.New(),
		tmpl:    tmpl,
		form:    f,
		board:   board,
		backend: backend,
	}
	s.engine.Use(accessLogger(), gin.Recovery())
	s.engine.SetHTMLTemplate(tmpl)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/", s.handleIndex)
	r.GET("/predict", s.handlePredictForm)
	r.POST("/predict", s.handlePredictSubmit)
	r.GET("/panels/:id", s.handlePanel)

	api := r.Group("/api/panels/:id")
	api.GET("", s.handlePanelState)
	api.POST("/refresh", s.handlePanelRefresh)
	api.POST("/unmount", s.handlePanelUnmount)

	r.GET("/health/self", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/backend", s.handleBackendHealth)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.opts.Addr).Msg("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", indexView{Nav: navLinks(), BackendURL: s.opts.BackendURL})
}

func (s *Server) handlePredictForm(c *gin.Context) {
	s.form.Reset()
	c.HTML(http.StatusOK, "predict.html", newPredictView(s.form.View()))
}

func (s *Server) handlePredictSubmit(c *gin.Context) {
	draft := customer.Draft{}
	for _, f := range customer.Schema {
		if v, ok := c.GetPostForm(string(f.Name)); ok {
			draft[f.Name] = v
		}
	}
	s.form.Fill(draft)

	// the outcome is carried in the form state and rendered below
	s.form.Submit(c.Request.Context())
	c.HTML(http.StatusOK, "predict.html", newPredictView(s.form.View()))
}

func endpointParam(c *gin.Context) (churnapi.Endpoint, bool) {
	e, err := churnapi.ParseEndpoint(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return e, true
}

func (s *Server) handlePanel(c *gin.Context) {
	e, ok := endpointParam(c)
	if !ok {
		return
	}
	ctrl := s.board.Mount(e)
	v := newPanelView(e, ctrl.State())
	v.Mount = ctrl.ID()
	c.HTML(http.StatusOK, "panel.html", v)
}

type panelResponse struct {
	ID          string        `json:"id"`
	Mount       string        `json:"mount"`
	Title       string        `json:"title"`
	State       panel.State   `json:"state"`
	Transitions []panel.Phase `json:"transitions"`
	Body        string        `json:"body"`
}

func (s *Server) mountedPanel(c *gin.Context) (*panel.Controller, bool) {
	e, ok := endpointParam(c)
	if !ok {
		return nil, false
	}
	ctrl, ok := s.board.Panel(e)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("panel %s is not mounted", e)})
		return nil, false
	}
	return ctrl, true
}

func (s *Server) writePanelState(c *gin.Context, status int, ctrl *panel.Controller) {
	state := ctrl.State()
	var body bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&body, "panel_body", newPanelView(ctrl.Endpoint(), state)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(status, panelResponse{
		ID:          string(ctrl.Endpoint()),
		Mount:       ctrl.ID(),
		Title:       ctrl.Endpoint().Title(),
		State:       state,
		Transitions: ctrl.Transitions(),
		Body:        body.String(),
	})
}

func (s *Server) handlePanelState(c *gin.Context) {
	ctrl, ok := s.mountedPanel(c)
	if !ok {
		return
	}
	s.writePanelState(c, http.StatusOK, ctrl)
}

func (s *Server) handlePanelRefresh(c *gin.Context) {
	ctrl, ok := s.mountedPanel(c)
	if !ok {
		return
	}
	status := http.StatusAccepted
	if !ctrl.Refresh() {
		status = http.StatusConflict
	}
	s.writePanelState(c, status, ctrl)
}

func (s *Server) handlePanelUnmount(c *gin.Context) {
	e, ok := endpointParam(c)
	if !ok {
		return
	}
	if id := c.Query("mount"); id != "" {
		s.board.UnmountID(e, id)
	} else {
		s.board.Unmount(e)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleBackendHealth(c *gin.Context) {
	if err := s.backend.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "unavailable",
			"backend":    s.opts.BackendURL,
			"error":      err.Error(),
			"error_kind": churnapi.KindOf(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": s.opts.BackendURL})
}
