package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"studyportal/pkg/auth"
	"studyportal/pkg/cache"
	"studyportal/pkg/queue"
	"studyportal/pkg/store"
)

// fakeGen returns canned replies in order and records prompts.
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

// fakeStreamer emits fixed deltas and records prompts.
type fakeStreamer struct {
	deltas  []string
	prompts []string
	err     error
}

func (s *fakeStreamer) GenerateTextStream(_ context.Context, _, userPrompt string, emit func(string) error) error {
	s.prompts = append(s.prompts, userPrompt)
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

// fakeObjects implements storage.ObjectStore in memory.
type fakeObjects struct {
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
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

// fakeQueue records enqueued upload IDs.
type fakeQueue struct {
	enqueued []string
	err      error
}

func (q *fakeQueue) Enqueue(_ context.Context, uploadID string) (queue.JobStatus, error) {
	if q.err != nil {
		return queue.JobStatus{}, q.err
	}
	q.enqueued = append(q.enqueued, uploadID)
	return queue.JobStatus{ID: fmt.Sprintf("job-%d", len(q.enqueued)), UploadID: uploadID}, nil
}

// recordSink captures SSE events for assertions.
type sinkEvent struct {
	event string
	data  string
}

type recordSink struct {
	events []sinkEvent
}

func (s *recordSink) Send(data string) error {
	s.events = append(s.events, sinkEvent{event: "message", data: data})
	return nil
}

func (s *recordSink) SendEvent(event, data string) error {
	s.events = append(s.events, sinkEvent{event: event, data: data})
	return nil
}

func (s *recordSink) terminalEvents() []sinkEvent {
	var out []sinkEvent
	for _, e := range s.events {
		if e.event == "done" || e.event == "error" {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordSink) words() []string {
	var out []string
	for _, e := range s.events {
		if e.event == "message" {
			out = append(out, e.data)
		}
	}
	return out
}

type testApp struct {
	app     *App
	store   *store.MemoryStore
	objects *fakeObjects
	queue   *fakeQueue
	gen     *fakeGen
	stream  *fakeStreamer
	cache   *cache.RedisDocTextCache
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	redisSrv := miniredis.RunT(t)
	docCache := cache.NewRedisDocTextCache(redisSrv.Addr(), "", time.Minute)

	tokens, err := auth.NewTokenIssuer("test-secret-key", "studyportal", time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	ta := &testApp{
		store:   store.NewMemoryStore(),
		objects: newFakeObjects(),
		queue:   &fakeQueue{},
		gen:     &fakeGen{},
		stream:  &fakeStreamer{},
		cache:   docCache,
	}
	a, err := New(Config{
		Store:     ta.store,
		Objects:   ta.objects,
		Cache:     docCache,
		Queue:     ta.queue,
		Generator: ta.gen,
		Streamer:  ta.stream,
		Tokens:    tokens,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ta.app = a
	return ta
}

func validUploadInput() CreateUploadInput {
	return CreateUploadInput{
		FileName:       "analyse exam 2023.pdf",
		ContentType:    "application/pdf",
		Data:           []byte("%PDF-1.4 fake"),
		Year:           "2",
		UniversityYear: "2023",
		Semester:       "1",
		Module:         "Analyse 1",
		Type:           "EMD",
	}
}
