package app

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"studyportal/pkg/domain"
)

func seedChatUpload(t *testing.T, ta *testApp, id string, universityYear int, text string) {
	t.Helper()
	u := domain.Upload{
		ID:             id,
		Link:           ta.objects.PublicURL("uploads/" + id + ".pdf"),
		Year:           2,
		UniversityYear: universityYear,
		Semester:       1,
		Module:         "Analyse 1",
		Type:           domain.TypeEMD,
		CreatedAt:      time.Now().UTC(),
	}
	if err := ta.store.CreateUpload(u); err != nil {
		t.Fatalf("seed upload %s: %v", id, err)
	}
	if err := ta.cache.SetText(context.Background(), id, text); err != nil {
		t.Fatalf("seed cache %s: %v", id, err)
	}
}

func chatReq(message string) ChatRequest {
	return ChatRequest{
		Message:  message,
		Year:     "2",
		Semester: "1",
		Module:   "Analyse 1",
		Type:     "EMD",
	}
}

func TestChatStreamEmitsWordsAndDone(t *testing.T) {
	ta := newTestApp(t)
	seedChatUpload(t, ta, "u1", 2023, "limits derivatives integrals and series expansions")
	ta.gen.replies = []string{"summary of analysis course"}
	ta.stream.deltas = []string{"The limit ", "equals 2"}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), chatReq("what is the limit?"), sink)

	words := sink.words()
	if len(words) != 4 || words[0] != "The" || words[3] != "2" {
		t.Fatalf("words = %v", words)
	}
	terms := sink.terminalEvents()
	if len(terms) != 1 || terms[0].event != "done" {
		t.Fatalf("terminal events = %v, want exactly one done", terms)
	}
	if !strings.Contains(terms[0].data, "**2**") {
		t.Fatalf("done payload should carry emphasized reply, got %q", terms[0].data)
	}
}

func TestChatStreamUsesTutorPromptWithContext(t *testing.T) {
	ta := newTestApp(t)
	seedChatUpload(t, ta, "u1", 2023, "limits derivatives integrals")
	ta.gen.replies = []string{"condensed overview"}
	ta.stream.deltas = []string{"answer"}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), chatReq("explain limits"), sink)

	if len(ta.gen.prompts) != 1 || !strings.HasPrefix(ta.gen.prompts[0], "Summarize the following content") {
		t.Fatalf("summarize prompt missing: %v", ta.gen.prompts)
	}
	if len(ta.stream.prompts) != 1 {
		t.Fatalf("stream prompts = %v", ta.stream.prompts)
	}
	prompt := ta.stream.prompts[0]
	if !strings.Contains(prompt, "You are an expert tutor in Analyse 1") {
		t.Fatalf("prompt = %q", prompt)
	}
	if !strings.Contains(prompt, "condensed overview") {
		t.Fatalf("prompt must embed the summary, got %q", prompt)
	}
	if !strings.Contains(prompt, "Question: explain limits") {
		t.Fatalf("prompt = %q", prompt)
	}
}

func TestChatStreamIncompleteFiltersUsesGenericPrompt(t *testing.T) {
	ta := newTestApp(t)
	seedChatUpload(t, ta, "u1", 2023, "content that must not be used")
	ta.stream.deltas = []string{"hello"}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), ChatRequest{Message: "hi", Year: "2"}, sink)

	if len(ta.gen.prompts) != 0 {
		t.Fatalf("no summarization expected: %v", ta.gen.prompts)
	}
	if len(ta.stream.prompts) != 1 || !strings.HasPrefix(ta.stream.prompts[0], "You are a knowledgeable assistant.") {
		t.Fatalf("prompt = %v", ta.stream.prompts)
	}
}

func TestChatStreamNoMatchesFallsBackToGeneric(t *testing.T) {
	ta := newTestApp(t)
	ta.stream.deltas = []string{"generic answer"}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), chatReq("anything"), sink)

	if len(ta.stream.prompts) != 1 || !strings.HasPrefix(ta.stream.prompts[0], "You are a knowledgeable assistant.") {
		t.Fatalf("prompt = %v", ta.stream.prompts)
	}
	terms := sink.terminalEvents()
	if len(terms) != 1 || terms[0].event != "done" {
		t.Fatalf("terminal events = %v", terms)
	}
}

func TestChatStreamCapsContextAtFiveNewestYears(t *testing.T) {
	ta := newTestApp(t)
	for i, year := range []int{2018, 2019, 2020, 2021, 2022, 2023} {
		seedChatUpload(t, ta, "u"+strconv.Itoa(i), year, "content-"+strconv.Itoa(year))
	}
	ta.gen.replies = []string{"summary"}
	ta.stream.deltas = []string{"ok"}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), chatReq("q"), sink)

	if len(ta.gen.prompts) != 1 {
		t.Fatalf("summarize prompt missing")
	}
	summaryInput := ta.gen.prompts[0]
	if strings.Contains(summaryInput, "content-2018") {
		t.Fatalf("oldest year must be dropped by the 5-document cap")
	}
	for _, year := range []int{2019, 2020, 2021, 2022, 2023} {
		if !strings.Contains(summaryInput, "content-"+strconv.Itoa(year)) {
			t.Fatalf("missing context for %d", year)
		}
	}
}

func TestChatStreamTruncatesLongDocuments(t *testing.T) {
	ta := newTestApp(t)
	seedChatUpload(t, ta, "u1", 2023, strings.Repeat("a", 6000))
	ta.gen.replies = []string{"summary"}
	ta.stream.deltas = []string{"ok"}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), chatReq("q"), sink)

	if len(ta.gen.prompts) != 1 {
		t.Fatalf("summarize prompt missing")
	}
	if strings.Contains(ta.gen.prompts[0], strings.Repeat("a", 5001)) {
		t.Fatalf("document not truncated to 5000 chars")
	}
	if !strings.Contains(ta.gen.prompts[0], strings.Repeat("a", 5000)) {
		t.Fatalf("truncated document missing from context")
	}
}

func TestChatStreamTruncationKeepsRunesIntact(t *testing.T) {
	ta := newTestApp(t)
	// 2000 three-byte runes: the 5000-byte cap lands mid-rune, so the
	// cut must back up to the previous boundary instead of emitting a
	// broken sequence.
	seedChatUpload(t, ta, "u1", 2023, strings.Repeat("ﻻ", 2000))
	ta.gen.replies = []string{"summary"}
	ta.stream.deltas = []string{"ok"}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), chatReq("q"), sink)

	if len(ta.gen.prompts) != 1 {
		t.Fatalf("summarize prompt missing")
	}
	if !utf8.ValidString(ta.gen.prompts[0]) {
		t.Fatalf("context contains an invalid UTF-8 sequence")
	}
	if !strings.Contains(ta.gen.prompts[0], strings.Repeat("ﻻ", 1666)) {
		t.Fatalf("truncated document missing from context")
	}
	if strings.Contains(ta.gen.prompts[0], strings.Repeat("ﻻ", 1667)) {
		t.Fatalf("document not truncated at the rune boundary")
	}
}

func TestChatStreamMissingMessage(t *testing.T) {
	ta := newTestApp(t)
	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), ChatRequest{}, sink)

	terms := sink.terminalEvents()
	if len(terms) != 1 || terms[0].event != "error" || terms[0].data != "Message is required" {
		t.Fatalf("terminal events = %v", terms)
	}
}

func TestChatStreamGeneratorFailureEmitsSingleError(t *testing.T) {
	ta := newTestApp(t)
	ta.stream.err = contextErr{}

	sink := &recordSink{}
	ta.app.ChatStream(context.Background(), ChatRequest{Message: "hi"}, sink)

	terms := sink.terminalEvents()
	if len(terms) != 1 || terms[0].event != "error" || terms[0].data != "Failed to process request" {
		t.Fatalf("terminal events = %v", terms)
	}
}

type contextErr struct{}

func (contextErr) Error() string { return "upstream unavailable" }

func TestChatJSONReturnsEmphasizedReply(t *testing.T) {
	ta := newTestApp(t)
	ta.gen.replies = []string{"the answer is 42"}

	reply, err := ta.app.ChatJSON(context.Background(), ChatRequest{Message: "what is the answer?"})
	if err != nil {
		t.Fatalf("chat json: %v", err)
	}
	if !strings.Contains(reply, "**42**") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestChatJSONMissingMessage(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.app.ChatJSON(context.Background(), ChatRequest{})
	if err == nil || !IsValidation(err) || err.Error() != "Message is required" {
		t.Fatalf("err = %v", err)
	}
}
