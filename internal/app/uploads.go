package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"studyportal/internal/util"
	"studyportal/pkg/domain"
	"studyportal/pkg/extract"
)

const solutionLinkPrefix = "https://drive.google.com/"

// CreateUploadInput carries one multipart upload. Numeric fields arrive
// as raw form strings so missing and malformed values stay
// distinguishable.
type CreateUploadInput struct {
	FileName    string
	ContentType string
	Data        []byte

	Year           string
	UniversityYear string
	Semester       string
	Module         string
	Type           string
	Speciality     string
	Solution       string
}

type uploadFields struct {
	year           int
	universityYear int
	semester       int
	speciality     domain.Speciality
}

// validate checks every field before any side effect. Each failure has
// its own user-facing message.
func (in CreateUploadInput) validate(now time.Time) (uploadFields, error) {
	var f uploadFields
	if len(in.Data) == 0 || in.Year == "" || in.UniversityYear == "" ||
		in.Semester == "" || in.Module == "" || in.Type == "" {
		return f, validation(ErrMissingUploadFields)
	}
	if in.ContentType != "application/pdf" {
		return f, validation(ErrNotPDF)
	}
	if !domain.ValidUploadType(domain.UploadType(in.Type)) {
		return f, validation(ErrInvalidType)
	}
	semester, err := strconv.Atoi(in.Semester)
	if err != nil || (semester != 1 && semester != 2) {
		return f, validation(ErrInvalidSemester)
	}
	year, err := strconv.Atoi(in.Year)
	if err != nil || year < 1 || year > 5 {
		return f, validation(ErrInvalidYear)
	}
	maxUniversityYear := now.Year() + 5
	universityYear, err := strconv.Atoi(in.UniversityYear)
	if err != nil || universityYear < 2000 || universityYear > maxUniversityYear {
		return f, validation(universityYearError{max: maxUniversityYear})
	}
	if year == 4 && !domain.ValidSpeciality(domain.Speciality(in.Speciality)) {
		return f, validation(ErrInvalidSpeciality)
	}
	if year != 4 && in.Speciality != "" {
		return f, validation(ErrSpecialityNotAllowed)
	}
	if in.Solution != "" && !strings.HasPrefix(in.Solution, solutionLinkPrefix) {
		return f, validation(ErrInvalidSolution)
	}
	f.year = year
	f.universityYear = universityYear
	f.semester = semester
	if year == 4 {
		f.speciality = domain.Speciality(in.Speciality)
	}
	return f, nil
}

// CreateUpload validates, stores the PDF, persists the metadata row and
// enqueues background question generation.
func (a *App) CreateUpload(ctx context.Context, in CreateUploadInput) (domain.Upload, error) {
	fields, err := in.validate(time.Now())
	if err != nil {
		return domain.Upload{}, err
	}

	key := storageKey(in.FileName)
	if err := a.objects.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), "application/pdf"); err != nil {
		return domain.Upload{}, fmt.Errorf("store pdf: %w", err)
	}

	upload := domain.Upload{
		ID:             util.NewID(),
		Link:           a.objects.PublicURL(key),
		Year:           fields.year,
		UniversityYear: fields.universityYear,
		Semester:       fields.semester,
		Module:         in.Module,
		Type:           domain.UploadType(in.Type),
		Speciality:     fields.speciality,
		Solution:       in.Solution,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.CreateUpload(upload); err != nil {
		return domain.Upload{}, fmt.Errorf("save upload: %w", err)
	}

	if a.queue != nil {
		if _, err := a.queue.Enqueue(ctx, upload.ID); err != nil {
			util.LoggerFromContext(ctx).Error("enqueue question generation", "upload_id", upload.ID, "error", err)
		}
	}
	return upload, nil
}

// CreateUploadStream is the SSE variant: validation failures and
// processing errors become error events, the explanation is streamed
// word by word, and the terminal done event carries the persisted upload
// plus its recommended questions.
func (a *App) CreateUploadStream(ctx context.Context, in CreateUploadInput, sink EventSink) {
	fields, err := in.validate(time.Now())
	if err != nil {
		_ = sink.SendEvent("error", err.Error())
		return
	}

	key := storageKey(in.FileName)
	if err := a.objects.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), "application/pdf"); err != nil {
		util.LoggerFromContext(ctx).Error("store pdf", "error", err)
		_ = sink.SendEvent("error", fmt.Sprintf("Failed to process PDF: %v", err))
		return
	}

	text := a.extractText(ctx, in.Data)
	if !extract.Usable(text) {
		_ = sink.SendEvent("error", ErrUnreadablePDF.Error())
		return
	}

	upload := domain.Upload{
		ID:             util.NewID(),
		Link:           a.objects.PublicURL(key),
		Year:           fields.year,
		UniversityYear: fields.universityYear,
		Semester:       fields.semester,
		Module:         in.Module,
		Type:           domain.UploadType(in.Type),
		Speciality:     fields.speciality,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.CreateUpload(upload); err != nil {
		util.LoggerFromContext(ctx).Error("save upload", "error", err)
		_ = sink.SendEvent("error", fmt.Sprintf("Failed to process PDF: %v", err))
		return
	}

	questions := a.questionsForText(ctx, upload.Module, string(upload.Type), text)
	if err := a.store.SetUploadQuestions(upload.ID, questions); err != nil {
		util.LoggerFromContext(ctx).Error("save questions", "upload_id", upload.ID, "error", err)
	}
	upload.Questions = questions

	if _, err := a.streamWords(ctx, explainPrompt(text), sink); err != nil {
		util.LoggerFromContext(ctx).Error("stream explanation", "upload_id", upload.ID, "error", err)
		_ = sink.SendEvent("error", "Failed to process request")
		return
	}

	payload, err := json.Marshal(map[string]any{"upload": upload, "questions": questions})
	if err != nil {
		_ = sink.SendEvent("error", "Failed to process request")
		return
	}
	_ = sink.SendEvent("done", string(payload))
}

// ListUploads applies the given filter, newest first.
func (a *App) ListUploads(f domain.UploadFilter) ([]domain.Upload, error) {
	return a.store.ListUploads(f)
}

// DeleteUpload removes the metadata row and best-effort deletes the
// stored object. A link whose storage key cannot be derived never blocks
// the delete.
func (a *App) DeleteUpload(ctx context.Context, id string) error {
	upload, ok, err := a.store.GetUpload(id)
	if err != nil {
		return fmt.Errorf("fetch upload: %w", err)
	}
	if !ok {
		return ErrUploadNotFound
	}

	logger := util.LoggerFromContext(ctx)
	if key, err := a.objects.KeyFromURL(upload.Link); err != nil {
		logger.Warn("cannot derive storage key", "upload_id", id, "link", upload.Link, "error", err)
	} else if err := a.objects.Delete(ctx, key); err != nil {
		logger.Warn("delete stored pdf", "upload_id", id, "key", key, "error", err)
	}
	if a.cache != nil {
		if err := a.cache.DeleteText(ctx, id); err != nil {
			logger.Warn("evict cached text", "upload_id", id, "error", err)
		}
	}
	if err := a.store.DeleteUpload(id); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// GenerateUploadQuestions is the background job body: extract the stored
// PDF's text and persist 3-5 recommended questions.
func (a *App) GenerateUploadQuestions(ctx context.Context, uploadID string) error {
	upload, ok, err := a.store.GetUpload(uploadID)
	if err != nil {
		return fmt.Errorf("fetch upload: %w", err)
	}
	if !ok {
		// Deleted before the job ran; nothing to do.
		return nil
	}
	text, err := a.documentText(ctx, upload)
	if err != nil {
		return fmt.Errorf("extract upload text: %w", err)
	}
	questions := a.questionsForText(ctx, upload.Module, string(upload.Type), text)
	if err := a.store.SetUploadQuestions(uploadID, questions); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return nil
}

func storageKey(fileName string) string {
	return fmt.Sprintf("uploads/pdf_%d_%s", time.Now().UnixMilli(), sanitizeFileName(fileName))
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	unsafeCharsRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

func sanitizeFileName(name string) string {
	name = whitespaceRe.ReplaceAllString(name, "_")
	return unsafeCharsRe.ReplaceAllString(name, "")
}
