package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
	"github.com/0xcro3dile/faqbot-go/internal/domain/usecases"
)

type fakeEngine struct {
	mu      sync.Mutex
	state   entities.EngineState
	reply   entities.Reply
	queries []string
}

func (f *fakeEngine) Answer(ctx context.Context, message string) entities.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, message)
	return f.reply
}

func (f *fakeEngine) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func (f *fakeEngine) State() entities.EngineState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func newTestServer(t *testing.T, engine *fakeEngine, cfg Config) *httptest.Server {
	t.Helper()
	log, _ := test.NewNullLogger()
	chat := usecases.NewChatUseCase(engine, usecases.WithPicker(func(int) int { return 0 }))

	srv := httptest.NewServer(NewServer(cfg, chat, engine, nil, log).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decodeReply(t *testing.T, resp *http.Response) askResponse {
	t.Helper()
	defer resp.Body.Close()
	var out askResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, Config{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Ready(t *testing.T) {
	engine := &fakeEngine{state: entities.StateUninitialized}
	srv := newTestServer(t, engine, Config{})

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	engine.mu.Lock()
	engine.state = entities.StateReady
	engine.mu.Unlock()

	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Index(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, Config{AssistantName: "Acme"})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestServer_AskForm(t *testing.T) {
	engine := &fakeEngine{reply: entities.Reply{Text: "We open at 9.", Kind: entities.ReplyAnswer}}
	srv := newTestServer(t, engine, Config{})

	resp, err := http.PostForm(srv.URL+"/ask", url.Values{"message": {"When do you open?"}})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeReply(t, resp)
	assert.Equal(t, "We open at 9.", out.Reply)
	assert.Equal(t, "answer", out.Kind)
	assert.Equal(t, []string{"When do you open?"}, engine.Queries())

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie should be set")
}

func TestServer_AskJSON(t *testing.T) {
	engine := &fakeEngine{reply: entities.Reply{Text: entities.RefusalMessage, Kind: entities.ReplyRefusal}}
	srv := newTestServer(t, engine, Config{})

	resp, err := http.Post(srv.URL+"/ask", "application/json; charset=utf-8", strings.NewReader(`{"message":"What is the meaning of life?"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entities.RefusalMessage, decodeReply(t, resp).Reply)
}

func TestServer_AskEmpty(t *testing.T) {
	engine := &fakeEngine{}
	srv := newTestServer(t, engine, Config{})

	for _, body := range []url.Values{{"message": {"   "}}, {}} {
		resp, err := http.PostForm(srv.URL+"/ask", body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Please enter a message.", decodeReply(t, resp).Reply)
	}
	assert.Empty(t, engine.Queries())
}

func TestServer_AskGreetingSkipsEngine(t *testing.T) {
	engine := &fakeEngine{}
	srv := newTestServer(t, engine, Config{})

	resp, err := http.PostForm(srv.URL+"/ask", url.Values{"message": {"Hello"}})
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I assist you today?", decodeReply(t, resp).Reply)
	assert.Empty(t, engine.Queries())
}

func TestServer_History(t *testing.T) {
	engine := &fakeEngine{reply: entities.Reply{Text: "Five days.", Kind: entities.ReplyAnswer}}
	srv := newTestServer(t, engine, Config{})

	resp, err := http.PostForm(srv.URL+"/ask", url.Values{"message": {"How long do refunds take?"}})
	require.NoError(t, err)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/history", nil)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}
	hist, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer hist.Body.Close()

	var body struct {
		History []historyEntry `json:"history"`
	}
	require.NoError(t, json.NewDecoder(hist.Body).Decode(&body))
	require.Len(t, body.History, 2)
	assert.Equal(t, "user", body.History[0].Role)
	assert.Equal(t, "How long do refunds take?", body.History[0].Content)
	assert.Equal(t, "bot", body.History[1].Role)
	assert.Equal(t, "Five days.", body.History[1].Content)
}

func TestServer_HistoryWithoutSession(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, Config{})

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string][]historyEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body["history"])
}

func TestServer_RateLimit(t *testing.T) {
	engine := &fakeEngine{reply: entities.Reply{Text: "ok", Kind: entities.ReplyAnswer}}
	srv := newTestServer(t, engine, Config{RateLimit: 1})

	statuses := map[int]int{}
	for i := 0; i < 5; i++ {
		resp, err := http.PostForm(srv.URL+"/ask", url.Values{"message": {"question"}})
		require.NoError(t, err)
		resp.Body.Close()
		statuses[resp.StatusCode]++
	}
	assert.Positive(t, statuses[http.StatusTooManyRequests])
}

func TestServer_WebSocket(t *testing.T) {
	engine := &fakeEngine{reply: entities.Reply{Text: "We ship worldwide.", Kind: entities.ReplyAnswer}}
	srv := newTestServer(t, engine, Config{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	resp.Body.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Do you ship abroad?"}`)))
	var out askResponse
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "We ship worldwide.", out.Reply)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("thanks")))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "You're welcome! 😊", out.Reply)
	assert.Equal(t, "canned", out.Kind)
}

func TestServer_AccessLog(t *testing.T) {
	log, hook := test.NewNullLogger()
	engine := &fakeEngine{}
	chat := usecases.NewChatUseCase(engine)
	srv := httptest.NewServer(NewServer(Config{}, chat, engine, nil, log).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/health", entry.Data["path"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}
