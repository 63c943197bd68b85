package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// gradingSchema is the contract the model must honour. Every field the
// report template consumes is required; a response missing any of them is
// rejected outright instead of being patched into a partial result.
const gradingSchema = `{
  "type": "object",
  "required": [
    "nome_aluno",
    "tema_redacao",
    "nota_final",
    "comentarios_gerais",
    "analise_competencias"
  ],
  "properties": {
    "nome_aluno": {"type": "string"},
    "tema_redacao": {"type": "string"},
    "data_redacao": {"type": "string"},
    "nota_final": {"type": "integer"},
    "comentarios_gerais": {"type": "string", "minLength": 1},
    "alerta_originalidade": {"type": ["string", "null"]},
    "analise_competencias": {
      "type": "object",
      "required": ["c1", "c2", "c3", "c4", "c5"],
      "properties": {
        "c1": {"$ref": "#/$defs/competencia"},
        "c2": {"$ref": "#/$defs/competencia"},
        "c3": {"$ref": "#/$defs/competencia"},
        "c4": {"$ref": "#/$defs/competencia"},
        "c5": {"$ref": "#/$defs/competencia"}
      }
    }
  },
  "$defs": {
    "competencia": {
      "type": "object",
      "required": ["nota", "analise"],
      "properties": {
        "nota": {"type": "integer"},
        "analise": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var compiledGradingSchema = jsonschema.MustCompileString("grading.schema.json", gradingSchema)

const maxCompetencyScore = 200

// decodeGradingResult turns raw model output into a validated GradingResult.
// The content is parsed as JSON, checked against the grading schema and only
// then decoded into the typed struct, so an incomplete response can never
// escape as a partial result.
func decodeGradingResult(content string) (models.GradingResult, error) {
	content = stripCodeFences(strings.TrimSpace(content))
	if content == "" {
		return models.GradingResult{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return models.GradingResult{}, fmt.Errorf("%w: invalid json: %v", ErrMalformedResponse, err)
	}

	if err := compiledGradingSchema.Validate(raw); err != nil {
		return models.GradingResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var result models.GradingResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return models.GradingResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	normalizeScores(&result)
	return result, nil
}

// normalizeScores clamps each competency score to the ENEM 0..200 range and
// recomputes the final score from the competency sum when the model left it
// at zero.
func normalizeScores(result *models.GradingResult) {
	for _, review := range []*models.CompetencyReview{
		&result.Competencies.C1,
		&result.Competencies.C2,
		&result.Competencies.C3,
		&result.Competencies.C4,
		&result.Competencies.C5,
	} {
		if review.Score < 0 {
			review.Score = 0
		}
		if review.Score > maxCompetencyScore {
			review.Score = maxCompetencyScore
		}
	}

	if result.FinalScore == 0 {
		result.FinalScore = result.CompetencySum()
	}
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models emit even in JSON response mode.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
