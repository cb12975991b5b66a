package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frameclash/internal/arena"
	"frameclash/internal/combat"
	"frameclash/internal/config"
)

func testArena(t *testing.T) *arena.Arena {
	t.Helper()
	cat, err := combat.NewCatalog([]combat.ActionDef{
		{
			ID: "jab", DisplayName: "Jab",
			StartupFrames: 12, ActiveFrames: 6, RecoveryFrames: 18,
			CancelWindowStart: 8, CancelWindowEnd: 14,
			CancelInto: []combat.ActionID{"straight"},
			Priority:   combat.PriorityLight,
		},
		{
			ID: "straight", DisplayName: "Straight",
			StartupFrames: 10, ActiveFrames: 4, RecoveryFrames: 20,
			CancelWindowStart: 6, CancelWindowEnd: 12,
			Priority: combat.PriorityHeavy,
		},
	})
	require.NoError(t, err)
	// host loop not started: handlers drive the arena directly
	return arena.New(cat, nil, config.DefaultTiming(), config.DefaultLimits())
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	router := NewRouter(RouterConfig{
		Arena:          testArena(t),
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestFighterJoinAndState(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/api/fighter/join", map[string]string{"name": "ryu"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// duplicate join conflicts
	resp = postJSON(t, ts.URL+"/api/fighter/join", map[string]string{"name": "ryu"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap arena.Snapshot
	decode(t, resp, &snap)
	require.Len(t, snap.Fighters, 1)
	assert.Equal(t, "ryu", snap.Fighters[0].Name)
	assert.Equal(t, "C", snap.Fighters[0].StyleRating)
}

func TestFighterJoinValidation(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/api/fighter/join", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestFighterAction(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/api/fighter/join", map[string]string{"name": "ryu"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/fighter/action",
		map[string]string{"name": "ryu", "action": "jab"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Action  string `json:"action"`
		Started bool   `json:"started"`
	}
	decode(t, resp, &result)
	assert.Equal(t, "jab", result.Action)
	assert.True(t, result.Started)

	// unknown action is dropped, not an HTTP error
	resp = postJSON(t, ts.URL+"/api/fighter/action",
		map[string]string{"name": "ryu", "action": "phantom"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)
	assert.False(t, result.Started)

	// unknown fighter is
	resp = postJSON(t, ts.URL+"/api/fighter/action",
		map[string]string{"name": "ghost", "action": "jab"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestFighterStun(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/api/fighter/join", map[string]string{"name": "ryu"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/fighter/stun",
		map[string]interface{}{"name": "ryu", "seconds": 0.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Landed  bool    `json:"landed"`
		Seconds float64 `json:"seconds"`
	}
	decode(t, resp, &result)
	assert.True(t, result.Landed)
	assert.Equal(t, 0.5, result.Seconds)

	var snap arena.Snapshot
	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	decode(t, resp, &snap)
	assert.True(t, snap.Fighters[0].Stunned)
}

func TestGetActions(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/actions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listings []actionListing
	decode(t, resp, &listings)
	require.Len(t, listings, 2)
	assert.Equal(t, combat.ActionID("jab"), listings[0].ID)
	assert.Equal(t, 36, listings[0].TotalFrames)
	assert.Equal(t, []combat.ActionID{"straight"}, listings[0].CancelInto)
}

func TestRequestLatencyRecorded(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// at least the (GET, /api/state) series must exist now
	assert.GreaterOrEqual(t, testutil.CollectAndCount(requestLatency), 1)
}

func TestServerHonorsResourceLimits(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxRequestsPerSec = 1
	limits.RequestBurst = 1

	s := NewServer(testArena(t), limits)
	t.Cleanup(s.Stop)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// burst of 1 exhausted, the configured limit must reject the second hit
	resp, err = http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimiting(t *testing.T) {
	router := NewRouter(RouterConfig{
		Arena:          testArena(t),
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             1,
		},
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
