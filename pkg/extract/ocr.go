package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/semaphore"

	"studyportal/internal/util"
)

// Tool names are variables so tests can point them at nonexistent
// binaries.
var (
	pdftoppmBin  = "pdftoppm"
	tesseractBin = "tesseract"
)

const (
	defaultLanguages     = "eng+fra+ara"
	defaultDensity       = 150
	defaultMaxConcurrent = 2
)

// OCR rasterizes PDF pages and runs text recognition on each page.
// A weighted semaphore caps simultaneous jobs per process; OCR is
// CPU/IO-heavy and must not run unbounded.
type OCR struct {
	languages string
	density   int
	sem       *semaphore.Weighted
}

// NewOCR builds an OCR runner. languages is a tesseract language pack
// spec such as "eng+fra+ara"; density is the rasterization DPI.
func NewOCR(languages string, density, maxConcurrent int) *OCR {
	if strings.TrimSpace(languages) == "" {
		languages = defaultLanguages
	}
	if density <= 0 {
		density = defaultDensity
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &OCR{
		languages: languages,
		density:   density,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Text rasterizes each page of the PDF and recognizes text page by page.
// Per-page failures are logged and skipped; a single corrupt page
// degrades output, it does not fail the document. Total failure returns
// the empty string so callers can treat "no text" uniformly.
func (o *OCR) Text(ctx context.Context, data []byte) string {
	logger := util.LoggerFromContext(ctx)

	if err := o.sem.Acquire(ctx, 1); err != nil {
		logger.Warn("ocr canceled while waiting for slot", "err", err)
		return ""
	}
	defer o.sem.Release(1)

	tempDir, err := os.MkdirTemp("", "studyportal-ocr-*")
	if err != nil {
		logger.Error("ocr temp dir", "err", err)
		return ""
	}
	// Intermediate artifacts are removed on success and failure alike.
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		logger.Error("ocr write temp pdf", "err", err)
		return ""
	}

	pages, err := o.rasterize(ctx, tempDir, pdfPath)
	if err != nil {
		logger.Warn("ocr rasterize failed", "err", err)
		return ""
	}
	if len(pages) == 0 {
		logger.Warn("ocr produced no page images")
		return ""
	}

	var b strings.Builder
	for _, page := range pages {
		text, err := o.recognize(ctx, page)
		if err != nil {
			logger.Warn("ocr page failed", "page", filepath.Base(page), "err", err)
			continue
		}
		text = Normalize(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	return b.String()
}

func (o *OCR) rasterize(ctx context.Context, dir, pdfPath string) ([]string, error) {
	if _, err := exec.LookPath(pdftoppmBin); err != nil {
		return nil, fmt.Errorf("%s not found: %w", pdftoppmBin, err)
	}
	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, pdftoppmBin, "-png", "-r", strconv.Itoa(o.density), pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", pdftoppmBin, err, strings.TrimSpace(string(out)))
	}
	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sortByPageNumber(images)
	return images, nil
}

func (o *OCR) recognize(ctx context.Context, imagePath string) (string, error) {
	if _, err := exec.LookPath(tesseractBin); err != nil {
		return "", fmt.Errorf("%s not found: %w", tesseractBin, err)
	}
	cmd := exec.CommandContext(ctx, tesseractBin, imagePath, "stdout", "-l", o.languages)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", tesseractBin, err)
	}
	return string(out), nil
}

var pageNumberRe = regexp.MustCompile(`-(\d+)\.png$`)

// sortByPageNumber orders rasterized page files numerically so page-10
// sorts after page-9, not after page-1.
func sortByPageNumber(images []string) {
	sort.Slice(images, func(i, j int) bool {
		return pageNumber(images[i]) < pageNumber(images[j])
	})
}

func pageNumber(path string) int {
	m := pageNumberRe.FindStringSubmatch(path)
	if len(m) != 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
