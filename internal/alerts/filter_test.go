package alerts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Aidin1998/tradealerts/internal/session"
	"github.com/Aidin1998/tradealerts/internal/trading/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockTradeServices struct {
	mock.Mock
}

func (m *mockTradeServices) GetClosedOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

type staticSettings struct{ enabled atomic.Bool }

func settings(enabled bool) *staticSettings {
	s := &staticSettings{}
	s.enabled.Store(enabled)
	return s
}

func (s *staticSettings) DisplayOrderAlerts() bool { return s.enabled.Load() }

type fakeSessions struct {
	session *session.Session
	err     error
}

func (f *fakeSessions) FromRequest(*http.Request) (*session.Session, error) {
	return f.session, f.err
}

func sessionFor(uid string) *fakeSessions {
	s := session.New("sid", time.Minute)
	s.Set(SessionUserKey, uid)
	return &fakeSessions{session: s}
}

func orders(n int) []*model.Order {
	out := make([]*model.Order, n)
	for i := range out {
		out[i] = &model.Order{ID: uuid.New(), UserID: "alice", Status: model.OrderStatusCompleted}
	}
	return out
}

type harness struct {
	filter *OrdersAlertFilter
	trade  *mockTradeServices
	logs   *observer.ObservedLogs
}

func newHarness(t *testing.T, enabled bool, sessions SessionSource, diag Diagnostics) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	trade := new(mockTradeServices)
	if sessions == nil {
		sessions = &fakeSessions{}
	}
	f := NewOrdersAlertFilter(zap.New(core), trade, settings(enabled), sessions, diag)
	f.Init(FilterConfig{Path: "/app"})
	return &harness{filter: f, trade: trade, logs: logs}
}

// run executes the filter and reports whether next was called
func (h *harness) run(req *http.Request) (*gin.Context, bool) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	called := false
	h.filter.Do(c, func(*gin.Context) { called = true })
	return c, called
}

func get(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/app?"+query, nil)
}

func TestDo_LoginUsesUIDParam(t *testing.T) {
	h := newHarness(t, true, sessionFor("bob"), Diagnostics{})
	want := orders(2)
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(want, nil).Once()

	c, called := h.run(get("action=login&uid=alice"))

	assert.True(t, called)
	got, ok := ClosedOrders(c)
	require.True(t, ok)
	assert.Len(t, got, 2)
	assert.Equal(t, want, got)
	h.trade.AssertExpectations(t)
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, "bob")
}

func TestDo_OtherActionsUseSessionUser(t *testing.T) {
	h := newHarness(t, true, sessionFor("uid:7"), Diagnostics{})
	want := orders(1)
	h.trade.On("GetClosedOrders", mock.Anything, "uid:7").Return(want, nil).Once()

	c, called := h.run(get("action=portfolio&uid=ignored"))

	assert.True(t, called)
	got, ok := ClosedOrders(c)
	require.True(t, ok)
	assert.Equal(t, want, got)
	h.trade.AssertExpectations(t)
}

func TestDo_NoSessionSkipsLookup(t *testing.T) {
	h := newHarness(t, true, &fakeSessions{}, Diagnostics{})

	c, called := h.run(get("action=view"))

	assert.True(t, called)
	_, exists := c.Get(ClosedOrdersKey)
	assert.False(t, exists)
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
}

func TestDo_SessionWithoutUserSkipsLookup(t *testing.T) {
	s := session.New("sid", time.Minute)
	h := newHarness(t, true, &fakeSessions{session: s}, Diagnostics{})

	_, called := h.run(get("action=home"))

	assert.True(t, called)
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
}

func TestDo_LogoutNeverQueries(t *testing.T) {
	for _, q := range []string{"action=logout", "action=%20logout%20", "action=logout&uid=alice"} {
		h := newHarness(t, true, sessionFor("alice"), Diagnostics{})

		c, called := h.run(get(q))

		assert.True(t, called, q)
		_, exists := c.Get(ClosedOrdersKey)
		assert.False(t, exists, q)
		h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
	}
}

func TestDo_MissingOrBlankActionSkips(t *testing.T) {
	for _, q := range []string{"", "uid=alice", "action=", "action=%20%20"} {
		h := newHarness(t, true, sessionFor("alice"), Diagnostics{})

		_, called := h.run(get(q))

		assert.True(t, called, q)
		h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
	}
}

func TestDo_ActionIsTrimmed(t *testing.T) {
	h := newHarness(t, true, sessionFor("bob"), Diagnostics{})
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(orders(1), nil).Once()

	_, called := h.run(get("action=%20login%20&uid=alice"))

	assert.True(t, called)
	h.trade.AssertExpectations(t)
}

func TestDo_BlankUIDSkips(t *testing.T) {
	h := newHarness(t, true, nil, Diagnostics{})

	_, called := h.run(get("action=login&uid=%20%20"))

	assert.True(t, called)
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
}

func TestDo_FormParameters(t *testing.T) {
	h := newHarness(t, true, nil, Diagnostics{})
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(orders(3), nil).Once()

	body := url.Values{"action": {"login"}, "uid": {"alice"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/app", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c, called := h.run(req)

	assert.True(t, called)
	got, ok := ClosedOrders(c)
	require.True(t, ok)
	assert.Len(t, got, 3)
}

func TestDo_DisabledNeverSetsAttribute(t *testing.T) {
	h := newHarness(t, false, sessionFor("alice"), Diagnostics{})

	for _, q := range []string{"action=login&uid=alice", "action=home", "action=logout"} {
		c, called := h.run(get(q))
		assert.True(t, called, q)
		_, exists := c.Get(ClosedOrdersKey)
		assert.False(t, exists, q)
	}
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
}

func TestDo_FlagIsReadPerRequest(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	trade := new(mockTradeServices)
	trade.On("GetClosedOrders", mock.Anything, "alice").Return(orders(1), nil)
	flag := settings(false)

	f := NewOrdersAlertFilter(zap.New(core), trade, flag, &fakeSessions{}, Diagnostics{})
	f.Init(FilterConfig{Path: "/app"})

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = get("action=login&uid=alice")
	f.Do(c, func(*gin.Context) {})
	_, exists := c.Get(ClosedOrdersKey)
	assert.False(t, exists)

	flag.enabled.Store(true)
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = get("action=login&uid=alice")
	f.Do(c, func(*gin.Context) {})
	_, exists = c.Get(ClosedOrdersKey)
	assert.True(t, exists)
}

func TestDo_EmptyOrNilResultLeavesNoAttribute(t *testing.T) {
	for name, result := range map[string][]*model.Order{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, true, nil, Diagnostics{})
			h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(result, nil).Once()

			c, called := h.run(get("action=login&uid=alice"))

			assert.True(t, called)
			_, exists := c.Get(ClosedOrdersKey)
			assert.False(t, exists)
			h.trade.AssertExpectations(t)
		})
	}
}

func TestDo_CollaboratorErrorIsSwallowed(t *testing.T) {
	h := newHarness(t, true, nil, Diagnostics{})
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(nil, errors.New("db down")).Once()

	c, called := h.run(get("action=login&uid=alice"))

	assert.True(t, called)
	_, exists := c.Get(ClosedOrdersKey)
	assert.False(t, exists)

	entries := h.logs.FilterMessage("Error checking for closed orders").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["error"], "db down")
}

func TestDo_CollaboratorPanicIsSwallowed(t *testing.T) {
	h := newHarness(t, true, nil, Diagnostics{})
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Run(func(mock.Arguments) {
		panic("nil pointer in service")
	}).Return(nil, nil)

	var called bool
	assert.NotPanics(t, func() {
		_, called = h.run(get("action=login&uid=alice"))
	})
	assert.True(t, called)
	assert.Equal(t, 1, h.logs.FilterMessage("Error checking for closed orders").Len())
}

func TestDo_SessionErrorIsSwallowed(t *testing.T) {
	h := newHarness(t, true, &fakeSessions{err: errors.New("redis: i/o timeout")}, Diagnostics{})

	_, called := h.run(get("action=home"))

	assert.True(t, called)
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
	assert.Equal(t, 1, h.logs.FilterMessage("Error checking for closed orders").Len())
}

func TestDo_TraceLogsLookup(t *testing.T) {
	h := newHarness(t, true, nil, Diagnostics{})
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(orders(2), nil).Once()

	h.run(get("action=login&uid=alice"))

	entries := h.logs.FilterMessage("Closed orders looked up").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].ContextMap()["user_id"])
	assert.EqualValues(t, 2, entries[0].ContextMap()["count"])
}

func TestDo_UninitializedPassesThrough(t *testing.T) {
	trade := new(mockTradeServices)
	f := NewOrdersAlertFilter(zap.NewNop(), trade, settings(true), &fakeSessions{}, Diagnostics{DriveLatency: 200})
	assert.False(t, f.Initialized())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = get("action=login&uid=alice")
	called := false
	start := time.Now()
	f.Do(c, func(*gin.Context) { called = true })

	assert.True(t, called)
	assert.Less(t, time.Since(start), 200*time.Millisecond, "diagnostics are skipped too")
	_, exists := c.Get(ClosedOrdersKey)
	assert.False(t, exists)
	trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
}

func TestDestroy_ReleasesConfig(t *testing.T) {
	h := newHarness(t, true, nil, Diagnostics{})
	require.True(t, h.filter.Initialized())

	h.filter.Destroy()
	assert.False(t, h.filter.Initialized())

	_, called := h.run(get("action=login&uid=alice"))
	assert.True(t, called)
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
}

func TestDo_DriveLatencyDelaysDelegation(t *testing.T) {
	h := newHarness(t, false, nil, Diagnostics{DriveLatency: 50})

	start := time.Now()
	var elapsed time.Duration
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = get("action=home")
	h.filter.Do(c, func(*gin.Context) { elapsed = time.Since(start) })

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestDo_CancelledPauseStillDelegates(t *testing.T) {
	h := newHarness(t, false, nil, Diagnostics{DriveLatency: 5000})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, called := h.run(get("action=home").WithContext(ctx))

	assert.True(t, called)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, h.logs.FilterMessage("Diagnostic latency pause interrupted").Len())
}

func TestNewOrdersAlertFilter_WarnsAboutDiagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	NewOrdersAlertFilter(zap.New(core), new(mockTradeServices), settings(true), &fakeSessions{},
		Diagnostics{DriveMemory: 1024, DriveLatency: 10})

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 2)
	assert.EqualValues(t, 1024, warnings[0].ContextMap()["drive_memory"])
	assert.EqualValues(t, 10, warnings[1].ContextMap()["drive_latency"])

	core, logs = observer.New(zapcore.WarnLevel)
	NewOrdersAlertFilter(zap.New(core), new(mockTradeServices), settings(true), &fakeSessions{}, Diagnostics{})
	assert.Zero(t, logs.Len())
}

func TestHandler_RunsInGinChain(t *testing.T) {
	h := newHarness(t, true, nil, Diagnostics{DriveMemory: 1 << 16})
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(orders(2), nil).Once()

	router := gin.New()
	router.Any("/app", h.filter.Handler(), func(c *gin.Context) {
		got, ok := ClosedOrders(c)
		if !ok {
			c.String(http.StatusOK, "none")
			return
		}
		c.String(http.StatusOK, "%d", len(got))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, get("action=login&uid=alice"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Body.String())
}
