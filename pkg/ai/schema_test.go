package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const validVerdict = `{
	"nome_aluno": "Maria Silva",
	"tema_redacao": "Desafios da educação digital",
	"data_redacao": "12/03/2025",
	"nota_final": 760,
	"comentarios_gerais": "Texto bem estruturado com bons argumentos.",
	"alerta_originalidade": null,
	"analise_competencias": {
		"c1": {"nota": 160, "analise": "Bom domínio da norma culta."},
		"c2": {"nota": 160, "analise": "Compreendeu o tema proposto."},
		"c3": {"nota": 120, "analise": "Argumentação consistente."},
		"c4": {"nota": 160, "analise": "Boa coesão textual."},
		"c5": {"nota": 160, "analise": "Proposta de intervenção completa."}
	}
}`

func TestDecodeGradingResultSuccess(t *testing.T) {
	result, err := decodeGradingResult(validVerdict)
	require.NoError(t, err)

	require.Equal(t, "Maria Silva", result.StudentName)
	require.Equal(t, 760, result.FinalScore)
	require.Equal(t, 160, result.Competencies.C1.Score)
	require.Equal(t, "Proposta de intervenção completa.", result.Competencies.C5.Analysis)

	for i, review := range result.Reviews() {
		require.NotEmptyf(t, review.Analysis, "competency %d analysis must be populated", i+1)
	}
}

func TestDecodeGradingResultStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validVerdict + "\n```"
	result, err := decodeGradingResult(fenced)
	require.NoError(t, err)
	require.Equal(t, 760, result.FinalScore)
}

func TestDecodeGradingResultRejectsMissingCompetencies(t *testing.T) {
	_, err := decodeGradingResult(`{"nota_final": 760}`)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeGradingResultRejectsPartialCompetencies(t *testing.T) {
	partial := `{
		"nome_aluno": "Maria",
		"tema_redacao": "Tema",
		"nota_final": 320,
		"comentarios_gerais": "ok",
		"analise_competencias": {
			"c1": {"nota": 160, "analise": "ok"},
			"c2": {"nota": 160, "analise": "ok"}
		}
	}`
	_, err := decodeGradingResult(partial)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeGradingResultRejectsEmptyAnalysis(t *testing.T) {
	verdict := `{
		"nome_aluno": "Maria",
		"tema_redacao": "Tema",
		"nota_final": 800,
		"comentarios_gerais": "ok",
		"analise_competencias": {
			"c1": {"nota": 160, "analise": ""},
			"c2": {"nota": 160, "analise": "ok"},
			"c3": {"nota": 160, "analise": "ok"},
			"c4": {"nota": 160, "analise": "ok"},
			"c5": {"nota": 160, "analise": "ok"}
		}
	}`
	_, err := decodeGradingResult(verdict)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeGradingResultRejectsInvalidJSON(t *testing.T) {
	cases := []string{
		"",
		"not json at all",
		`{"nome_aluno": "Maria"`,
		"A nota final é 760.",
	}
	for _, content := range cases {
		_, err := decodeGradingResult(content)
		require.ErrorIsf(t, err, ErrMalformedResponse, "content %q", content)
	}
}

func TestDecodeGradingResultClampsScores(t *testing.T) {
	verdict := fmt.Sprintf(`{
		"nome_aluno": "Maria",
		"tema_redacao": "Tema",
		"nota_final": 900,
		"comentarios_gerais": "ok",
		"analise_competencias": {
			"c1": {"nota": %d, "analise": "ok"},
			"c2": {"nota": -40, "analise": "ok"},
			"c3": {"nota": 160, "analise": "ok"},
			"c4": {"nota": 160, "analise": "ok"},
			"c5": {"nota": 160, "analise": "ok"}
		}
	}`, 500)

	result, err := decodeGradingResult(verdict)
	require.NoError(t, err)
	require.Equal(t, 200, result.Competencies.C1.Score)
	require.Equal(t, 0, result.Competencies.C2.Score)
}

func TestDecodeGradingResultComputesFinalScoreWhenZero(t *testing.T) {
	verdict := `{
		"nome_aluno": "Maria",
		"tema_redacao": "Tema",
		"nota_final": 0,
		"comentarios_gerais": "ok",
		"analise_competencias": {
			"c1": {"nota": 120, "analise": "ok"},
			"c2": {"nota": 120, "analise": "ok"},
			"c3": {"nota": 120, "analise": "ok"},
			"c4": {"nota": 120, "analise": "ok"},
			"c5": {"nota": 120, "analise": "ok"}
		}
	}`

	result, err := decodeGradingResult(verdict)
	require.NoError(t, err)
	require.Equal(t, 600, result.FinalScore)
}
