package report

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// requiredPlaceholders is the contract between the renderer and the docx
// template. A template missing any of these is rejected at startup.
var requiredPlaceholders = []string{
	"NOME_ALUNO",
	"TEMA",
	"NOTA_FINAL",
	"COMENTARIOS",
	"NOTA_C1", "NOTA_C2", "NOTA_C3", "NOTA_C4", "NOTA_C5",
	"ANALISE_C1", "ANALISE_C2", "ANALISE_C3", "ANALISE_C4", "ANALISE_C5",
}

// optionalPlaceholders may be absent from the template without failing
// rendering.
var optionalPlaceholders = []string{
	"DATA_REDACAO",
	"ALERTA_ORIGINALIDADE",
}

var sanitizePolicy = bluemonday.StrictPolicy()

// PlaceholderValues maps a grading result onto the template placeholder set.
// The function is pure: the same result always yields the same map, which is
// what makes report rendering deterministic for a fixed input.
func PlaceholderValues(result models.GradingResult) map[string]string {
	values := map[string]string{
		"NOME_ALUNO":           cleanText(fallback(result.StudentName, "Não identificado")),
		"TEMA":                 cleanText(result.Theme),
		"DATA_REDACAO":         cleanText(result.EssayDate),
		"NOTA_FINAL":           strconv.Itoa(result.FinalScore),
		"COMENTARIOS":          cleanText(result.GeneralComments),
		"ALERTA_ORIGINALIDADE": cleanText(result.OriginalityAlert),
	}

	for i, review := range result.Reviews() {
		values[fmt.Sprintf("NOTA_C%d", i+1)] = strconv.Itoa(review.Score)
		values[fmt.Sprintf("ANALISE_C%d", i+1)] = cleanText(review.Analysis)
	}

	return values
}

// ReportFileName derives the download name for a rendered report from the
// student name the model extracted.
func ReportFileName(result models.GradingResult) string {
	name := strings.TrimSpace(result.StudentName)
	if name == "" {
		name = "Aluno"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("Correcao_%s.docx", name)
}

// cleanText strips any markup the model slipped into free-text commentary.
// Markdown bold markers show up often enough that they get removed too, as
// they have no meaning inside a Word document.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	return html.UnescapeString(sanitizePolicy.Sanitize(text))
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
