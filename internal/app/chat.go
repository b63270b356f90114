package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"studyportal/internal/util"
	"studyportal/pkg/ai"
	"studyportal/pkg/domain"
)

// contextDocLimit caps how many uploads feed one chat answer; the most
// recent exam years win.
const contextDocLimit = 5

// contextDocMaxChars truncates each document before it enters the
// context buffer.
const contextDocMaxChars = 5000

// EventSink receives server-sent events for one streaming response.
// Send emits a default message event; SendEvent emits a named event.
type EventSink interface {
	Send(data string) error
	SendEvent(event, data string) error
}

// ChatRequest carries the user's message and the optional course
// filters. Numeric fields arrive as strings straight from the query or
// form; empty means unset.
type ChatRequest struct {
	Message    string
	Year       string
	Semester   string
	Module     string
	Type       string
	Speciality string
}

func (r ChatRequest) filtersComplete() bool {
	return r.Year != "" && r.Semester != "" && r.Module != "" && r.Type != ""
}

func (r ChatRequest) uploadFilter() (domain.UploadFilter, error) {
	year, err := atoiField(r.Year)
	if err != nil {
		return domain.UploadFilter{}, validation(ErrInvalidYear)
	}
	semester, err := atoiField(r.Semester)
	if err != nil {
		return domain.UploadFilter{}, validation(ErrInvalidSemester)
	}
	f := domain.UploadFilter{
		Year:             &year,
		Semester:         &semester,
		Module:           r.Module,
		Type:             domain.UploadType(r.Type),
		ByUniversityYear: true,
		Limit:            contextDocLimit,
	}
	if r.Speciality != "" {
		f.Speciality = domain.Speciality(r.Speciality)
	}
	return f, nil
}

// ChatStream answers a chat message over SSE: words as message events,
// then exactly one terminal event (done with the emphasized full reply,
// or error).
func (a *App) ChatStream(ctx context.Context, req ChatRequest, sink EventSink) {
	if strings.TrimSpace(req.Message) == "" {
		_ = sink.SendEvent("error", ErrMessageRequired.Error())
		return
	}

	prompt, err := a.buildChatPrompt(ctx, req)
	if err != nil {
		util.LoggerFromContext(ctx).Error("build chat prompt", "error", err)
		_ = sink.SendEvent("error", "Failed to process request")
		return
	}

	reply, err := a.streamWords(ctx, prompt, sink)
	if err != nil {
		util.LoggerFromContext(ctx).Error("chat stream", "error", err)
		_ = sink.SendEvent("error", "Failed to process request")
		return
	}
	_ = sink.SendEvent("done", ai.EmphasizeHeadingsAndMath(reply))
}

// ChatJSON runs the same pipeline buffered and returns the full reply.
func (a *App) ChatJSON(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", validation(ErrMessageRequired)
	}
	prompt, err := a.buildChatPrompt(ctx, req)
	if err != nil {
		return "", err
	}
	reply, err := a.gen.GenerateText(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return ai.EmphasizeHeadingsAndMath(reply), nil
}

// buildChatPrompt gathers document context when the filter tuple is
// complete, summarizes it, and renders the tutor or generic prompt.
func (a *App) buildChatPrompt(ctx context.Context, req ChatRequest) (string, error) {
	var docContext string
	if req.filtersComplete() {
		var err error
		docContext, err = a.gatherContext(ctx, req)
		if err != nil {
			return "", err
		}
	}

	if docContext != "" {
		summary, err := a.gen.GenerateText(ctx, "",
			"Summarize the following content into a concise overview (max 500 words):\n"+docContext)
		if err != nil {
			return "", fmt.Errorf("summarize context: %w", err)
		}
		docContext = summary
	}

	if docContext == "" {
		return fmt.Sprintf("You are a knowledgeable assistant. Answer the user's question conversationally and accurately. Format math in LaTeX (e.g., $x^2$) and code in markdown code blocks if applicable.\n\nQuestion: %s", req.Message), nil
	}
	module := req.Module
	if module == "" {
		module = "the relevant subject"
	}
	return fmt.Sprintf("You are an expert tutor in %s. Answer the user's question based on the provided PDF content. If the content is insufficient, use your general knowledge but note any assumptions. Format math in LaTeX (e.g., $x^2$) and code in markdown code blocks.\n\nPDF Content:\n%s\n\nQuestion: %s", module, docContext, req.Message), nil
}

// gatherContext pulls text from the most relevant uploads. Per-document
// failures are logged and skipped; only a filter/store failure is an
// error. The whole phase shares one fetch deadline.
func (a *App) gatherContext(ctx context.Context, req ChatRequest) (string, error) {
	filter, err := req.uploadFilter()
	if err != nil {
		// Malformed numeric filters degrade to generic mode; the message
		// itself is still answerable.
		util.LoggerFromContext(ctx).Warn("chat filters ignored", "error", err)
		return "", nil
	}
	uploads, err := a.store.ListUploads(filter)
	if err != nil {
		return "", fmt.Errorf("list uploads: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	logger := util.LoggerFromContext(ctx)
	var b strings.Builder
	for _, u := range uploads {
		text, err := a.documentText(fetchCtx, u)
		if err != nil {
			logger.Warn("skip context document", "upload_id", u.ID, "link", u.Link, "error", err)
			continue
		}
		text = truncateOnRuneBoundary(text, contextDocMaxChars)
		fmt.Fprintf(&b, "\n\nPDF Content (%s - %s):\n%s", u.Module, u.Type, text)
	}
	return b.String(), nil
}

// streamWords streams the generator's output word by word into sink and
// returns the accumulated reply.
func (a *App) streamWords(ctx context.Context, prompt string, sink EventSink) (string, error) {
	var buf strings.Builder
	err := a.streamer.GenerateTextStream(ctx, "", prompt, func(delta string) error {
		buf.WriteString(delta)
		for _, word := range strings.Fields(delta) {
			if err := sink.Send(word); err != nil {
				return err
			}
			if a.wordDelay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(a.wordDelay):
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncateOnRuneBoundary caps text at max bytes without splitting a
// multibyte rune; OCR output in Arabic or accented French routinely
// carries them.
func truncateOnRuneBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func atoiField(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
