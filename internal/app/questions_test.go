package app

import (
	"context"
	"strings"
	"testing"
)

func TestRecommendedQuestionsRequiresFilters(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.app.RecommendedQuestions(context.Background(), QuestionRequest{Year: "2"})
	if err == nil || !IsValidation(err) || err.Error() != "Year, semester, module, and type are required" {
		t.Fatalf("err = %v", err)
	}
}

func TestRecommendedQuestionsNoContentReturnsEmptyList(t *testing.T) {
	ta := newTestApp(t)
	questions, err := ta.app.RecommendedQuestions(context.Background(), QuestionRequest{
		Year: "2", Semester: "1", Module: "Analyse 1", Type: "EMD",
	})
	if err != nil {
		t.Fatalf("recommended questions: %v", err)
	}
	if questions == nil || len(questions) != 0 {
		t.Fatalf("questions = %v, want empty list", questions)
	}
	if len(ta.gen.prompts) != 0 {
		t.Fatalf("generator must not be called without content")
	}
}

func TestRecommendedQuestionsFromContent(t *testing.T) {
	ta := newTestApp(t)
	seedChatUpload(t, ta, "u1", 2023, "eigenvalues and eigenvectors of matrices")
	ta.gen.replies = []string{`["What is an eigenvalue?", "How do you diagonalize a matrix?", "When is a matrix invertible?", "What is the characteristic polynomial?"]`}

	questions, err := ta.app.RecommendedQuestions(context.Background(), QuestionRequest{
		Year: "2", Semester: "1", Module: "Analyse 1", Type: "EMD",
	})
	if err != nil {
		t.Fatalf("recommended questions: %v", err)
	}
	if len(questions) != 4 || questions[0] != "What is an eigenvalue?" {
		t.Fatalf("questions = %v", questions)
	}
	if len(ta.gen.prompts) != 1 || !strings.Contains(ta.gen.prompts[0], "Generate 3-5 relevant questions") {
		t.Fatalf("prompts = %v", ta.gen.prompts)
	}
}

func TestParseQuestionsBracketedInProse(t *testing.T) {
	resp := `Sure! Here are some questions:
["Q1", "Q2", "Q3"]
Let me know if you need more.`
	got := parseQuestions(resp)
	if len(got) != 3 || got[0] != "Q1" {
		t.Fatalf("got = %v", got)
	}
}

func TestParseQuestionsGarbageFallsBack(t *testing.T) {
	got := parseQuestions("I cannot produce JSON right now")
	if len(got) != 3 || got[0] != "What are the main topics covered in this document?" {
		t.Fatalf("got = %v", got)
	}
}
