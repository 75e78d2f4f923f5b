package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sopflow/internal/export"
	"sopflow/internal/flowstore"
	"sopflow/internal/gateway/session"
	"sopflow/internal/llm"
	"sopflow/internal/settings"
	"sopflow/internal/types"
)

type harness struct {
	srv      *httptest.Server
	settings *settings.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mgr := settings.NewStaticManager(settings.Default())
	router := llm.NewOfflineRouter()
	sessions, err := session.New(8, func() *flowstore.Store { return flowstore.New(router, mgr) })
	require.NoError(t, err)
	dir := t.TempDir()
	svc := NewService(sessions, mgr, export.NewFileExporter(dir))
	srv := httptest.NewServer(svc.Routes(nil))
	t.Cleanup(srv.Close)
	return &harness{srv: srv, settings: mgr}
}

func (h *harness) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (h *harness) newSession(t *testing.T) string {
	t.Helper()
	var out struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/sessions", nil, &out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

type opResult struct {
	flowstore.Snapshot
	Error string `json:"error"`
}

func (h *harness) analyzed(t *testing.T) (string, opResult) {
	t.Helper()
	id := h.newSession(t)
	var res opResult
	code := h.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", llm.Source{Text: types.SampleSOP}, &res)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, res.Error)
	require.NotNil(t, res.Flow)
	return id, res
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	id, res := h.analyzed(t)

	assert.Len(t, res.Flow.SubProcesses, 3)
	require.Len(t, res.Transcript, 1)
	assert.Equal(t, types.RoleModel, res.Transcript[0].Role)
	assert.False(t, res.Loading.Flow)

	var chat opResult
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", map[string]string{"message": "Add a welcome lunch"}, &chat))
	assert.Empty(t, chat.Error)
	assert.Len(t, chat.Transcript, 3)

	before := res.Flow.StepCount()
	var added opResult
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/sessions/"+id+"/steps",
		map[string]string{"taskId": "task_1_1", "description": "Send the welcome email"}, &added))
	assert.Empty(t, added.Error)
	assert.Equal(t, before+1, added.Flow.StepCount())

	var doc opResult
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/sessions/"+id+"/document", nil, &doc))
	assert.Empty(t, doc.Error)
	assert.True(t, strings.HasPrefix(doc.Document, "# "))

	var exported struct {
		Location string `json:"location"`
	}
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/sessions/"+id+"/document/export", nil, &exported))
	assert.Equal(t, id, filepath.Base(filepath.Dir(exported.Location)))
	assert.True(t, strings.HasSuffix(exported.Location, ".md"))
	written, err := os.ReadFile(exported.Location)
	require.NoError(t, err)
	assert.Equal(t, doc.Document, string(written))

	var cleared flowstore.Snapshot
	require.Equal(t, http.StatusOK, h.do(t, http.MethodDelete, "/api/sessions/"+id+"/document", nil, &cleared))
	assert.Empty(t, cleared.Document)
	assert.NotNil(t, cleared.Flow)

	var errOut map[string]string
	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/api/sessions/"+id+"/document/export", nil, &errOut))
}

func TestDeleteSession(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	other := h.newSession(t)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/sessions/"+id, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/sessions/"+id, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/api/sessions/"+id, nil, nil))
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/sessions/"+other, nil, nil))
}

func TestModelFailuresAreReportedInline(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)

	var res opResult
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", llm.Source{}, &res))
	assert.Contains(t, res.Error, "no document source")
	require.Len(t, res.Transcript, 1)
	assert.Contains(t, res.Transcript[0].Content, "no document source")

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", map[string]string{"message": "hi"}, &res))
	assert.Contains(t, res.Error, "not initialized")
	assert.Nil(t, res.Flow)
}

func TestRequestValidation(t *testing.T) {
	h := newHarness(t)
	id, res := h.analyzed(t)
	base := "/api/sessions/" + id

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/sessions/3f2a1b9e-0000-4000-8000-000000000000", nil, nil))
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/sessions/nope", nil, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, base+"/chat", "{not json", nil))
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, base+"/chat", map[string]string{"message": "  "}, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, base+"/steps", map[string]string{"taskId": "task_1_1"}, nil))

	step := res.Flow.SubProcesses[0].Tasks[0].Steps[0]
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, base+"/steps/other", step, nil))

	bad := map[string]any{"id": step.ID, "name": "x", "automation_potential": "Extreme"}
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, base+"/steps/"+step.ID, bad, nil))

	missing := step
	missing.ID = "step_9_9_9"
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPut, base+"/steps/step_9_9_9", missing, nil))

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, base+"/reorder", map[string]any{"kind": "phase"}, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, base+"/reorder",
		map[string]any{"kind": "task", "sourceParentId": "sp_1", "sourceIndex": 7, "destParentId": "sp_1", "destIndex": 0}, nil))
}

func TestManualEdits(t *testing.T) {
	h := newHarness(t)
	id, res := h.analyzed(t)
	base := "/api/sessions/" + id

	step := res.Flow.SubProcesses[0].Tasks[0].Steps[0]
	step.Name = "Renamed step"
	step.AutomationPotential = types.PotentialNone
	var snap flowstore.Snapshot
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPut, base+"/steps/"+step.ID, step, &snap))
	assert.Equal(t, step, snap.Flow.SubProcesses[0].Tasks[0].Steps[0])
	assert.Contains(t, snap.Transcript[len(snap.Transcript)-1].Content, "Renamed step")

	tasks := res.Flow.SubProcesses[0].Tasks
	require.Len(t, tasks, 3)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, base+"/reorder",
		map[string]any{"kind": "task", "sourceParentId": "sp_1", "sourceIndex": 0, "destParentId": "sp_1", "destIndex": 2}, &snap))
	got := snap.Flow.SubProcesses[0].Tasks
	assert.Equal(t, []string{tasks[1].ID, tasks[2].ID, tasks[0].ID}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestFlowFilter(t *testing.T) {
	h := newHarness(t)
	id, _ := h.analyzed(t)

	var out struct {
		Flow       *types.ProcessFlow          `json:"processFlow"`
		Roles      []string                    `json:"roles"`
		Potentials []types.AutomationPotential `json:"potentials"`
	}
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/sessions/"+id+"/flow?potential=High", nil, &out))
	assert.NotEmpty(t, out.Roles)
	assert.Equal(t, types.AutomationPotentials(), out.Potentials)
	if out.Flow != nil {
		for _, sp := range out.Flow.SubProcesses {
			for _, task := range sp.Tasks {
				require.NotEmpty(t, task.Steps)
				for _, st := range task.Steps {
					assert.Equal(t, types.PotentialHigh, st.AutomationPotential)
				}
			}
		}
	}

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/sessions/"+id+"/flow?potential=Bogus", nil, nil))
}

func TestSettingsAreRedacted(t *testing.T) {
	h := newHarness(t)

	cfg := settings.Default()
	cfg.Gemini.APIKey = "secret-key"
	var saved settings.AiConfig
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPut, "/api/settings", cfg, &saved))
	assert.Equal(t, "********", saved.Gemini.APIKey)
	assert.Equal(t, "secret-key", h.settings.Current().Gemini.APIKey)

	// Sending the redacted value back keeps the stored key.
	saved.Provider = settings.ProviderOllama
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPut, "/api/settings", saved, &saved))
	assert.Equal(t, "secret-key", h.settings.Current().Gemini.APIKey)
	assert.Equal(t, settings.ProviderOllama, h.settings.Current().Provider)

	var got settings.AiConfig
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/settings", nil, &got))
	assert.Equal(t, "********", got.Gemini.APIKey)
}

func TestSampleAndHealth(t *testing.T) {
	h := newHarness(t)
	var sample map[string]string
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/sample", nil, &sample))
	assert.Equal(t, types.SampleSOP, sample["text"])
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", nil, nil))
}

func TestWebsocketStreamsSnapshots(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first wsOutbound
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, id, first.SessionID)
	require.NotNil(t, first.Snapshot)
	assert.Nil(t, first.Snapshot.Flow)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "ping"}))
	for {
		var msg wsOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "pong" {
			break
		}
	}

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", llm.Source{Text: types.SampleSOP}, nil))
	for {
		var msg wsOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "snapshot" && msg.Snapshot.Flow != nil && !msg.Snapshot.Loading.Flow {
			assert.Len(t, msg.Snapshot.Flow.SubProcesses, 3)
			break
		}
	}

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "dance"}))
	for {
		var msg wsOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "error" {
			assert.Equal(t, "invalid_argument", msg.Code)
			break
		}
	}
}
