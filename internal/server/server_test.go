// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/dispatch"
	"github.com/hhamzie/toolplug/internal/feedback"
	"github.com/hhamzie/toolplug/internal/models"
	"github.com/hhamzie/toolplug/internal/pipeline"
	"github.com/hhamzie/toolplug/internal/subscribers"
)

type fakeSubs struct {
	signupErr     error
	signupEmail   string
	signupDay     int
	signupCats    []models.Category
	confirmRes    *subscribers.ConfirmResult
	confirmErr    error
	unsubRemoved  bool
	statusEmail   string
	statusConfirm bool
}

func (f *fakeSubs) Signup(ctx context.Context, email string, sendDay int, cats []models.Category) (string, error) {
	f.signupEmail, f.signupDay, f.signupCats = email, sendDay, cats
	if f.signupErr != nil {
		return "", f.signupErr
	}
	return "tok", nil
}

func (f *fakeSubs) Confirm(ctx context.Context, token string) (*subscribers.ConfirmResult, error) {
	return f.confirmRes, f.confirmErr
}

func (f *fakeSubs) Unsubscribe(ctx context.Context, token string) (bool, error) {
	return f.unsubRemoved, nil
}

func (f *fakeSubs) Status(ctx context.Context, email string) (bool, error) {
	f.statusEmail = email
	return f.statusConfirm, nil
}

type fakeFeedback struct {
	events []feedback.Event
}

func (f *fakeFeedback) Record(ctx context.Context, ev feedback.Event) error {
	f.events = append(f.events, ev)
	return nil
}

type fakePipeline struct {
	weekly    *pipeline.WeeklyResult
	weeklyErr error
	daily     *pipeline.SingleResult
	monthly   *pipeline.SingleResult
	forced    bool
}

func (f *fakePipeline) GenerateWeekly(ctx context.Context, force bool) (*pipeline.WeeklyResult, error) {
	f.forced = force
	return f.weekly, f.weeklyErr
}

func (f *fakePipeline) GenerateDaily(ctx context.Context, force bool) (*pipeline.SingleResult, error) {
	f.forced = force
	return f.daily, nil
}

func (f *fakePipeline) GenerateMonthly(ctx context.Context, force bool) (*pipeline.SingleResult, error) {
	f.forced = force
	return f.monthly, nil
}

type fakeDispatch struct {
	report    *dispatch.Report
	periodKey string
	respect   bool
}

func (f *fakeDispatch) Dispatch(ctx context.Context, periodKey string, respectSendDay bool) (*dispatch.Report, error) {
	f.periodKey, f.respect = periodKey, respectSendDay
	return f.report, nil
}

type fakePicks struct {
	picks []*models.Pick
}

func (f *fakePicks) List(ctx context.Context, periodKey string) ([]*models.Pick, error) {
	return f.picks, nil
}

type fixture struct {
	subs     *fakeSubs
	feedback *fakeFeedback
	pipeline *fakePipeline
	dispatch *fakeDispatch
	picks    *fakePicks
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Name = "ToolPlug"
	cfg.App.Domain = "toolplug.example.com"
	cfg.Admin.APIKey = "admin-key"
	cfg.Dispatch.RespectSendDay = true

	f := &fixture{
		subs:     &fakeSubs{},
		feedback: &fakeFeedback{},
		pipeline: &fakePipeline{},
		dispatch: &fakeDispatch{report: &dispatch.Report{}},
		picks:    &fakePicks{},
	}
	srv := New(cfg, f.subs, f.feedback, f.pipeline, f.dispatch, f.picks, logger.NewTestLogger(t))
	f.router = srv.Router()
	return f
}

func (f *fixture) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestSubscribeEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/subscribe",
		`{"email":"a@b.co","send_day":3,"categories":"dev,design"}`,
		map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@b.co", f.subs.signupEmail)
	assert.Equal(t, 3, f.subs.signupDay)
	assert.Equal(t, []models.Category{models.CategoryDev, models.CategoryDesign}, f.subs.signupCats)
}

func TestSubscribeValidationErrors(t *testing.T) {
	f := newFixture(t)
	f.subs.signupErr = errors.NewSignupInvalidError("invalid email")

	w := f.do(http.MethodPost, "/api/subscribe",
		`{"email":"junk","send_day":3,"categories":"dev"}`,
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/subscribe",
		`{"email":"a@b.co","categories":"dev"}`,
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "send_day")

	w = f.do(http.MethodPost, "/api/subscribe",
		`{"email":"a@b.co","send_day":1,"categories":"gardening"}`,
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmOutcomes(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t)
		f.subs.confirmRes = &subscribers.ConfirmResult{Outcome: subscribers.OutcomeConfirmed}

		w := f.do(http.MethodGet, "/api/confirm?token=tok", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "You're confirmed")
	})

	t.Run("already confirmed", func(t *testing.T) {
		f := newFixture(t)
		f.subs.confirmRes = &subscribers.ConfirmResult{Outcome: subscribers.OutcomeAlreadyConfirmed}

		w := f.do(http.MethodGet, "/api/confirm?token=tok", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "already subscribed")
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		f.subs.confirmErr = errors.NewTokenNotFoundError()

		w := f.do(http.MethodGet, "/api/confirm?token=bad", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Invalid or expired link")
	})

	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodGet, "/api/confirm", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUnsubscribeOutcomes(t *testing.T) {
	f := newFixture(t)
	f.subs.unsubRemoved = true

	w := f.do(http.MethodGet, "/api/unsubscribe?token=u1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unsubscribed")

	f.subs.unsubRemoved = false
	w = f.do(http.MethodGet, "/api/unsubscribe?token=u1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Invalid or expired link")
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	f.subs.statusConfirm = true

	w := f.do(http.MethodGet, "/api/status?email=a@b.co", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["confirmed"])
	assert.Equal(t, "a@b.co", f.subs.statusEmail)
}

func TestFeedbackClickRecordsAndRendersThanks(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/feedback?src=weekly&pid=Tool&v=up&e=abc", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thanks")

	require.Len(t, f.feedback.events, 1)
	ev := f.feedback.events[0]
	assert.Equal(t, "weekly", ev.Source)
	assert.Equal(t, "Tool", ev.Product)
	assert.Equal(t, "up", ev.Vote)
	assert.Equal(t, "abc", ev.EmailB64)
}

func TestFeedbackSubmitForm(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/feedback",
		"src=weekly&pid=Tool&v=down&comment=too+long",
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, f.feedback.events, 1)
	assert.Equal(t, "too long", f.feedback.events[0].Comment)
}

func TestAdminEndpointsRequireAPIKey(t *testing.T) {
	f := newFixture(t)
	f.pipeline.weekly = &pipeline.WeeklyResult{PeriodKey: "2026-W35"}

	w := f.do(http.MethodPost, "/api/generate/weekly", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/generate/weekly", "",
		map[string]string{"api-key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/generate/weekly", "",
		map[string]string{"api-key": "admin-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2026-W35")
}

func TestGenerateWeeklyForceFlag(t *testing.T) {
	f := newFixture(t)
	f.pipeline.weekly = &pipeline.WeeklyResult{}

	f.do(http.MethodPost, "/api/generate/weekly?force=1", "",
		map[string]string{"api-key": "admin-key"})
	assert.True(t, f.pipeline.forced)
}

func TestGenerateMonthlyEndpoint(t *testing.T) {
	f := newFixture(t)
	f.pipeline.monthly = &pipeline.SingleResult{PeriodKey: "2026-08", Source: "fresh", Product: "Tool"}

	w := f.do(http.MethodPost, "/api/generate/monthly", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/generate/monthly?force=1", "",
		map[string]string{"api-key": "admin-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2026-08")
	assert.True(t, f.pipeline.forced)
}

func TestDispatchDefaults(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/dispatch", "",
		map[string]string{"api-key": "admin-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, f.dispatch.periodKey)
	assert.True(t, f.dispatch.respect, "config default respects the weekday cohort")
}

func TestDispatchOverrides(t *testing.T) {
	f := newFixture(t)

	f.do(http.MethodPost, "/api/dispatch?period_key=2026-08-28&respect_day=0", "",
		map[string]string{"api-key": "admin-key"})
	assert.Equal(t, "2026-08-28", f.dispatch.periodKey)
	assert.False(t, f.dispatch.respect)
}

func TestListPicks(t *testing.T) {
	f := newFixture(t)
	f.picks.picks = []*models.Pick{{ID: 1, Category: models.CategoryDev, ProductName: "Tool"}}

	w := f.do(http.MethodGet, "/api/picks?period_key=2026-W35", "",
		map[string]string{"api-key": "admin-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Tool")
}

func TestListPicksBodyHTMLBehindFlag(t *testing.T) {
	f := newFixture(t)
	f.picks.picks = []*models.Pick{{ID: 1, Category: models.CategoryDev, ProductName: "Tool", BodyHTML: "<div>full body</div>"}}

	w := f.do(http.MethodGet, "/api/picks", "", map[string]string{"api-key": "admin-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "full body")

	f.picks.picks[0].BodyHTML = "<div>full body</div>"
	w = f.do(http.MethodGet, "/api/picks?include_html=1", "", map[string]string{"api-key": "admin-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "full body")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsExposed(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
