package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	docx "github.com/lukasjarosch/go-docx"
	"github.com/rs/zerolog"

	"github.com/projeto-mae/redacao-api/internal/models"
)

var (
	// ErrTemplateNotFound indicates the base template asset is missing.
	ErrTemplateNotFound = errors.New("report template not found")
	// ErrTemplateIncompatible indicates the template cannot be parsed or
	// lacks part of the expected placeholder set.
	ErrTemplateIncompatible = errors.New("report template incompatible with placeholder set")
)

// Renderer fills the base docx template with grading results. The template
// bytes are read once at construction and every render opens a fresh copy,
// so rendering is deterministic and never touches the filesystem.
type Renderer struct {
	template []byte
	logger   zerolog.Logger
}

// NewRenderer loads and validates the template at the given path.
func NewRenderer(templatePath string, logger zerolog.Logger) (*Renderer, error) {
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	}

	renderer := &Renderer{
		template: template,
		logger:   logger.With().Str("component", "report_renderer").Logger(),
	}

	if err := renderer.validate(); err != nil {
		return nil, err
	}

	return renderer, nil
}

// validate opens a scratch copy and checks the parsed placeholder set, so an
// incompatible template fails at startup rather than on the first grading.
func (r *Renderer) validate() error {
	doc, err := docx.OpenBytes(r.template)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateIncompatible, err)
	}

	names, err := doc.GetPlaceHoldersList()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateIncompatible, err)
	}

	// GetPlaceHoldersList returns the raw placeholder text including the
	// {} delimiters.
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[strings.Trim(name, "{}")] = true
	}

	for _, key := range requiredPlaceholders {
		if !present[key] {
			return fmt.Errorf("%w: missing placeholder {%s}", ErrTemplateIncompatible, key)
		}
	}

	return nil
}

// Render produces the report document for one grading result. The result is
// expected to satisfy its completeness invariant already; scores are
// rendered as-is without range re-validation.
func (r *Renderer) Render(result models.GradingResult) (models.Report, error) {
	doc, err := docx.OpenBytes(r.template)
	if err != nil {
		return models.Report{}, fmt.Errorf("%w: %v", ErrTemplateIncompatible, err)
	}

	values := PlaceholderValues(result)

	replaceMap := make(docx.PlaceholderMap, len(values))
	for key, value := range values {
		replaceMap[key] = value
	}

	// ReplaceAll skips placeholders absent from the template, which keeps
	// the optional ones optional; required ones were verified at startup.
	if err := doc.ReplaceAll(replaceMap); err != nil {
		return models.Report{}, fmt.Errorf("%w: %v", ErrTemplateIncompatible, err)
	}

	buf := &bytes.Buffer{}
	if err := doc.Write(buf); err != nil {
		return models.Report{}, fmt.Errorf("%w: %v", ErrTemplateIncompatible, err)
	}

	report := models.Report{
		FileName: ReportFileName(result),
		Data:     buf.Bytes(),
	}

	r.logger.Info().
		Str("file_name", report.FileName).
		Int("size_bytes", len(report.Data)).
		Msg("report rendered")

	return report, nil
}
