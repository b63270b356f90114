package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"studyportal/internal/util"
	"studyportal/pkg/domain"
)

// fallbackQuestions is substituted whenever the generator's response
// cannot be parsed as a JSON array.
var fallbackQuestions = []string{
	"What are the main topics covered in this document?",
	"Can you explain the key concepts in this PDF?",
	"What are some practice problems related to this content?",
}

// QuestionRequest selects the uploads whose content seeds the questions.
// Year, semester, module and type are all required.
type QuestionRequest struct {
	Year       string
	Semester   string
	Module     string
	Type       string
	Speciality string
}

// RecommendedQuestions gathers text from every matching upload and asks
// the generator for 3-5 study questions. No matching content returns an
// empty list, not an error.
func (a *App) RecommendedQuestions(ctx context.Context, req QuestionRequest) ([]string, error) {
	if req.Year == "" || req.Semester == "" || req.Module == "" || req.Type == "" {
		return nil, validation(ErrQuestionFilterRequired)
	}
	year, err := atoiField(req.Year)
	if err != nil {
		return nil, validation(ErrInvalidYear)
	}
	semester, err := atoiField(req.Semester)
	if err != nil {
		return nil, validation(ErrInvalidSemester)
	}

	filter := domain.UploadFilter{
		Year:     &year,
		Semester: &semester,
		Module:   req.Module,
		Type:     domain.UploadType(req.Type),
	}
	if req.Speciality != "" {
		filter.Speciality = domain.Speciality(req.Speciality)
	}
	uploads, err := a.store.ListUploads(filter)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	logger := util.LoggerFromContext(ctx)
	var b strings.Builder
	for _, u := range uploads {
		text, err := a.documentText(fetchCtx, u)
		if err != nil {
			logger.Warn("skip question source", "upload_id", u.ID, "error", err)
			continue
		}
		fmt.Fprintf(&b, "\n\nPDF Content (%s - %s):\n%s", u.Module, u.Type, text)
	}
	if b.Len() == 0 {
		return []string{}, nil
	}
	return a.questionsForText(ctx, req.Module, req.Type, b.String()), nil
}

// questionsForText asks the generator for questions about content and
// parses the response, substituting the fixed fallback on parse failure.
func (a *App) questionsForText(ctx context.Context, module, typ, content string) []string {
	prompt := fmt.Sprintf("Based on the following PDF content for %s (%s):\n%s\n\nGenerate 3-5 relevant questions that a student might ask about this content. Return the questions as a JSON array, e.g., [\"Question 1\", \"Question 2\", \"Question 3\"].", module, typ, content)
	resp, err := a.gen.GenerateText(ctx, "", prompt)
	if err != nil {
		util.LoggerFromContext(ctx).Error("generate questions", "error", err)
		return fallbackQuestions
	}
	return parseQuestions(resp)
}

// parseQuestions extracts a JSON string array from the model response.
// Models often wrap the array in prose, so a bracketed substring is
// tried before giving up.
func parseQuestions(resp string) []string {
	var questions []string
	trimmed := strings.TrimSpace(resp)
	if err := json.Unmarshal([]byte(trimmed), &questions); err == nil && len(questions) > 0 {
		return questions
	}
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &questions); err == nil && len(questions) > 0 {
			return questions
		}
	}
	return fallbackQuestions
}
