package app

import (
	"context"
	"testing"
)

func TestExplainPDFNoFile(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.app.ExplainPDF(context.Background(), nil)
	if err == nil || !IsValidation(err) || err.Error() != "No file uploaded" {
		t.Fatalf("err = %v", err)
	}
}

func TestExplainPDFUnreadable(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.app.ExplainPDF(context.Background(), []byte("not a pdf at all"))
	if err == nil || !IsValidation(err) || err.Error() != "PDF is empty or unreadable" {
		t.Fatalf("err = %v", err)
	}
}

func TestExplainPDFStreamUnreadableEmitsSingleError(t *testing.T) {
	ta := newTestApp(t)
	sink := &recordSink{}
	ta.app.ExplainPDFStream(context.Background(), []byte("garbage"), sink)

	terms := sink.terminalEvents()
	if len(terms) != 1 || terms[0].event != "error" || terms[0].data != "PDF is empty or unreadable" {
		t.Fatalf("terminal events = %v", terms)
	}
}

func TestCreateUploadStreamValidationAsErrorEvent(t *testing.T) {
	ta := newTestApp(t)
	in := validUploadInput()
	in.Type = "Quiz"
	sink := &recordSink{}
	ta.app.CreateUploadStream(context.Background(), in, sink)

	terms := sink.terminalEvents()
	if len(terms) != 1 || terms[0].event != "error" || terms[0].data != "Invalid type. Must be one of: Course, TD, EMD" {
		t.Fatalf("terminal events = %v", terms)
	}
	if len(ta.objects.objects) != 0 {
		t.Fatalf("validation failure must not store the object")
	}
}

func TestExplainPromptShortInputIsConversational(t *testing.T) {
	p := explainPrompt("hi")
	if p == "" || p[:14] != `The user said:` {
		t.Fatalf("prompt = %q", p)
	}
	p = explainPrompt("a much longer piece of extracted content")
	if p[:14] == `The user said:` {
		t.Fatalf("long content must use the explain prompt")
	}
}
