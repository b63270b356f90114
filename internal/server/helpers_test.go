package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"studyportal/internal/app"
	"studyportal/internal/ratelimit"
	"studyportal/pkg/auth"
	"studyportal/pkg/cache"
	"studyportal/pkg/queue"
	"studyportal/pkg/store"
)

type fakeGen struct {
	replies []string
	prompts []string
	err     error
}

func (g *fakeGen) GenerateText(_ context.Context, _, userPrompt string) (string, error) {
	g.prompts = append(g.prompts, userPrompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "ok", nil
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

type fakeStreamer struct {
	deltas []string
	err    error
}

func (s *fakeStreamer) GenerateTextStream(_ context.Context, _, _ string, emit func(string) error) error {
	if s.err != nil {
		return s.err
	}
	for _, d := range s.deltas {
		if err := emit(d); err != nil {
			return err
		}
	}
	return nil
}

type fakeObjects struct {
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return f.PublicURL(key), nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "http://objects.local/uploads-bucket/" + key
}

func (f *fakeObjects) KeyFromURL(link string) (string, error) {
	const prefix = "http://objects.local/uploads-bucket/"
	if !strings.HasPrefix(link, prefix) {
		return "", errors.New("link does not reference the uploads bucket")
	}
	return strings.TrimPrefix(link, prefix), nil
}

type fakeQueue struct {
	enqueued []string
}

func (q *fakeQueue) Enqueue(_ context.Context, uploadID string) (queue.JobStatus, error) {
	q.enqueued = append(q.enqueued, uploadID)
	return queue.JobStatus{ID: "job-1", UploadID: uploadID}, nil
}

type testServer struct {
	srv     *Server
	app     *app.App
	store   *store.MemoryStore
	objects *fakeObjects
	queue   *fakeQueue
	gen     *fakeGen
	stream  *fakeStreamer
	cache   *cache.RedisDocTextCache
}

func newTestServer(t *testing.T, limiter *ratelimit.FixedWindowLimiter) *testServer {
	t.Helper()

	redisSrv := miniredis.RunT(t)
	docCache := cache.NewRedisDocTextCache(redisSrv.Addr(), "", time.Minute)

	tokens, err := auth.NewTokenIssuer("test-secret-key", "studyportal", time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	ts := &testServer{
		store:   store.NewMemoryStore(),
		objects: newFakeObjects(),
		queue:   &fakeQueue{},
		gen:     &fakeGen{},
		stream:  &fakeStreamer{},
		cache:   docCache,
	}
	a, err := app.New(app.Config{
		Store:     ts.store,
		Objects:   ts.objects,
		Cache:     docCache,
		Queue:     ts.queue,
		Generator: ts.gen,
		Streamer:  ts.stream,
		Tokens:    tokens,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ts.app = a
	ts.srv = New(Config{App: a, Limiter: limiter})
	return ts
}

// signupUser registers a user through the app core and returns its
// token. The first call in a test gets the admin role.
func (ts *testServer) signupUser(t *testing.T, name, email string) string {
	t.Helper()
	_, token, err := ts.app.SignUp(name, email, "str0ng-passw0rd")
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return token
}

func (ts *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doMultipart(t *testing.T, target, token string, fields map[string]string, fileName string, fileData []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if fileName != "" {
		part, err := mw.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="file"; filename="` + fileName + `"`},
			"Content-Type":        {"application/pdf"},
		})
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

type sseEvent struct {
	event string
	data  string
}

// parseSSE splits a text/event-stream body into events. Events without
// an explicit "event:" line get the default "message" type.
func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		ev := sseEvent{event: "message"}
		var dataLines []string
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
			}
		}
		ev.data = strings.Join(dataLines, "\n")
		out = append(out, ev)
	}
	return out
}

func terminalEvents(events []sseEvent) []sseEvent {
	var out []sseEvent
	for _, e := range events {
		if e.event == "done" || e.event == "error" {
			out = append(out, e)
		}
	}
	return out
}
