package app

import (
	"context"
	"fmt"

	"studyportal/pkg/ai"
	"studyportal/pkg/extract"
)

// explainPrompt turns extracted PDF text into the generator prompt. Very
// short input is treated as small talk rather than content.
func explainPrompt(text string) string {
	if len(text) < extract.MinUsableLen {
		return fmt.Sprintf(`The user said: "%s". Respond conversationally, as if starting a friendly chat. For example, if the user says "hi", reply with something like "Hello! How can I assist you today?"`, text)
	}
	return "Please explain this content clearly and concisely:\n\n" + text
}

// ExplainPDF extracts a PDF's text and returns a buffered explanation.
func (a *App) ExplainPDF(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", validation(ErrNoFile)
	}
	text := a.extractText(ctx, data)
	if !extract.Usable(text) {
		return "", validation(ErrUnreadablePDF)
	}
	explanation, err := a.gen.GenerateText(ctx, "", explainPrompt(text))
	if err != nil {
		return "", fmt.Errorf("generate explanation: %w", err)
	}
	return ai.EmphasizeHeadingsAndMath(explanation), nil
}

// ExplainPDFStream streams the explanation word by word; the terminal
// done event carries the [DONE] sentinel.
func (a *App) ExplainPDFStream(ctx context.Context, data []byte, sink EventSink) {
	if len(data) == 0 {
		_ = sink.SendEvent("error", ErrNoFile.Error())
		return
	}
	text := a.extractText(ctx, data)
	if !extract.Usable(text) {
		_ = sink.SendEvent("error", ErrUnreadablePDF.Error())
		return
	}
	if _, err := a.streamWords(ctx, explainPrompt(text), sink); err != nil {
		_ = sink.SendEvent("error", "Failed to process request")
		return
	}
	_ = sink.SendEvent("done", "[DONE]")
}
