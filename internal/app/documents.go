package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"studyportal/internal/util"
	"studyportal/pkg/domain"
	"studyportal/pkg/extract"
)

// maxFetchBytes bounds how much of a stored PDF is read back for
// extraction.
const maxFetchBytes = 50 << 20

// documentText returns usable extracted text for an upload. It consults
// the cache first, otherwise fetches the stored PDF, extracts natively
// and falls back to OCR. The result is cached on success.
func (a *App) documentText(ctx context.Context, u domain.Upload) (string, error) {
	if a.cache != nil {
		if text, ok, err := a.cache.GetText(ctx, u.ID); err == nil && ok {
			return text, nil
		}
	}

	data, err := a.fetchPDF(ctx, u.Link)
	if err != nil {
		return "", err
	}
	text := a.extractText(ctx, data)
	if !extract.Usable(text) {
		return "", ErrUnreadablePDF
	}

	if a.cache != nil {
		if err := a.cache.SetText(ctx, u.ID, text); err != nil {
			util.LoggerFromContext(ctx).Warn("cache document text", "upload_id", u.ID, "error", err)
		}
	}
	return text, nil
}

// extractText applies the extraction policy: native parse first, OCR when
// the native result is missing or too short.
func (a *App) extractText(ctx context.Context, data []byte) string {
	text, err := extract.Text(data)
	if err != nil || len(text) < extract.MinNativeLen {
		if err != nil {
			util.LoggerFromContext(ctx).Warn("native pdf extraction failed, trying ocr", "error", err)
		}
		text = a.ocr.Text(ctx, data)
	}
	return extract.Normalize(text)
}

func (a *App) fetchPDF(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch pdf: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	return data, nil
}
