// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/dispatch"
	"github.com/hhamzie/toolplug/internal/feedback"
	"github.com/hhamzie/toolplug/internal/models"
	"github.com/hhamzie/toolplug/internal/pipeline"
	"github.com/hhamzie/toolplug/internal/subscribers"
	"github.com/hhamzie/toolplug/pkg/period"
)

// SubscriptionService is the subscription lifecycle surface the handlers use.
type SubscriptionService interface {
	Signup(ctx context.Context, email string, sendDay int, categories []models.Category) (string, error)
	Confirm(ctx context.Context, token string) (*subscribers.ConfirmResult, error)
	Unsubscribe(ctx context.Context, token string) (bool, error)
	Status(ctx context.Context, email string) (bool, error)
}

// FeedbackRecorder records feedback events.
type FeedbackRecorder interface {
	Record(ctx context.Context, ev feedback.Event) error
}

// GenerationService runs the generation phase.
type GenerationService interface {
	GenerateWeekly(ctx context.Context, force bool) (*pipeline.WeeklyResult, error)
	GenerateDaily(ctx context.Context, force bool) (*pipeline.SingleResult, error)
	GenerateMonthly(ctx context.Context, force bool) (*pipeline.SingleResult, error)
}

// DispatchService fans picks out to subscribers.
type DispatchService interface {
	Dispatch(ctx context.Context, periodKey string, respectSendDay bool) (*dispatch.Report, error)
}

// PickLister reads stored picks for the admin listing endpoint.
type PickLister interface {
	List(ctx context.Context, periodKey string) ([]*models.Pick, error)
}

// Server wires the HTTP API: the public subscription/feedback surface and
// the api-key guarded generation, dispatch and listing endpoints.
type Server struct {
	cfg      *config.Config
	subs     SubscriptionService
	feedback FeedbackRecorder
	pipeline GenerationService
	dispatch DispatchService
	picks    PickLister
	logger   logger.Logger

	now func() time.Time
}

func New(cfg *config.Config, subs SubscriptionService, fb FeedbackRecorder,
	pl GenerationService, dp DispatchService, picks PickLister, log logger.Logger) *Server {
	return &Server{
		cfg:      cfg,
		subs:     subs,
		feedback: fb,
		pipeline: pl,
		dispatch: dp,
		picks:    picks,
		logger: log.WithFields(map[string]interface{}{
			"component": "server",
		}),
		now: time.Now,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/subscribe", s.handleSubscribe)
		api.GET("/confirm", s.handleConfirm)
		api.GET("/unsubscribe", s.handleUnsubscribe)
		api.GET("/status", s.handleStatus)
		api.GET("/feedback", s.handleFeedbackClick)
		api.POST("/feedback", s.handleFeedbackSubmit)

		admin := api.Group("", s.requireAPIKey())
		{
			admin.POST("/generate/weekly", s.handleGenerateWeekly)
			admin.POST("/generate/daily", s.handleGenerateDaily)
			admin.POST("/generate/monthly", s.handleGenerateMonthly)
			admin.POST("/dispatch", s.handleDispatch)
			admin.GET("/picks", s.handleListPicks)
		}
	}
	return r
}

// requireAPIKey guards operational endpoints with the cron worker's api-key
// header. An unset server key rejects everything.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("api-key")
		if s.cfg.Admin.APIKey == "" || provided != s.cfg.Admin.APIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

type subscribeRequest struct {
	Email      string `json:"email"`
	SendDay    *int   `json:"send_day"`
	Categories string `json:"categories"`
}

func (s *Server) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SendDay == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "send_day is required"})
		return
	}
	cats, err := models.ParseCategoryList(req.Categories)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.subs.Signup(c.Request.Context(), req.Email, *req.SendDay, cats); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleConfirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}

	res, err := s.subs.Confirm(c.Request.Context(), token)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeTokenNotFound) {
			c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(invalidLinkPage))
			return
		}
		s.renderError(c, err)
		return
	}

	switch res.Outcome {
	case subscribers.OutcomeAlreadyConfirmed:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(alreadyConfirmedPage))
	default:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(confirmedPage))
	}
}

func (s *Server) handleUnsubscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}

	removed, err := s.subs.Unsubscribe(c.Request.Context(), token)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if !removed {
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(invalidLinkPage))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(unsubscribedPage))
}

func (s *Server) handleStatus(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	confirmed, err := s.subs.Status(c.Request.Context(), email)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": confirmed})
}

func (s *Server) handleFeedbackClick(c *gin.Context) {
	ev := feedback.Event{
		Source:     c.Query("src"),
		Product:    c.Query("pid"),
		Vote:       c.Query("v"),
		EmailB64:   c.Query("e"),
		UserAgent:  c.Request.UserAgent(),
		RemoteAddr: c.ClientIP(),
	}
	// Best-effort: the reader always gets a thanks page.
	_ = s.feedback.Record(c.Request.Context(), ev)
	c.Data(http.StatusOK, "text/html; charset=utf-8",
		[]byte(feedbackThanksPage(ev.Vote, ev.Source, ev.Product, ev.EmailB64)))
}

func (s *Server) handleFeedbackSubmit(c *gin.Context) {
	ev := feedback.Event{
		UserAgent:  c.Request.UserAgent(),
		RemoteAddr: c.ClientIP(),
	}
	if c.ContentType() == "application/json" {
		var body struct {
			Src     string `json:"src"`
			Pid     string `json:"pid"`
			V       string `json:"v"`
			E       string `json:"e"`
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			ev.Source, ev.Product, ev.Vote = body.Src, body.Pid, body.V
			ev.EmailB64, ev.Comment = body.E, body.Comment
		}
	} else {
		ev.Source = c.PostForm("src")
		ev.Product = c.PostForm("pid")
		ev.Vote = c.PostForm("v")
		ev.EmailB64 = c.PostForm("e")
		ev.Comment = c.PostForm("comment")
	}

	_ = s.feedback.Record(c.Request.Context(), ev)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(feedbackFinalPage))
}

func (s *Server) handleGenerateWeekly(c *gin.Context) {
	force := c.Query("force") == "1" || c.Query("force") == "true"
	res, err := s.pipeline.GenerateWeekly(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "partial": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGenerateDaily(c *gin.Context) {
	force := c.Query("force") == "1" || c.Query("force") == "true"
	res, err := s.pipeline.GenerateDaily(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGenerateMonthly(c *gin.Context) {
	force := c.Query("force") == "1" || c.Query("force") == "true"
	res, err := s.pipeline.GenerateMonthly(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDispatch(c *gin.Context) {
	periodKey := c.Query("period_key")
	if periodKey == "" {
		periodKey = period.WeekKey(s.now())
	}

	respect := s.cfg.Dispatch.RespectSendDay
	if v := c.Query("respect_day"); v != "" {
		respect = v == "1" || v == "true"
	}

	report, err := s.dispatch.Dispatch(c.Request.Context(), periodKey, respect)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListPicks(c *gin.Context) {
	periodKey := c.Query("period_key")
	if periodKey == "" {
		periodKey = period.WeekKey(s.now())
	}
	picks, err := s.picks.List(c.Request.Context(), periodKey)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if v := c.Query("include_html"); v != "1" && v != "true" {
		for _, p := range picks {
			p.BodyHTML = ""
		}
	}
	c.JSON(http.StatusOK, gin.H{"periodKey": periodKey, "picks": picks})
}

// renderError maps the error taxonomy onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrCodeSignupInvalid:
		status = http.StatusBadRequest
	case errors.ErrCodeTokenNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeDeliveryFailed:
		status = http.StatusBadGateway
	case errors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	}
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
