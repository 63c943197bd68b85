package models

// EssayImage holds the raw bytes of a photographed handwritten essay.
// Instances are created on upload or folder-poll discovery and discarded
// once grading finishes.
type EssayImage struct {
	Name string
	MIME string
	Data []byte
}

// CompetencyReview is the model's verdict for a single ENEM competency.
type CompetencyReview struct {
	Score    int    `json:"nota"`
	Analysis string `json:"analise"`
}

// Competencies groups the five fixed ENEM competency reviews. All five
// must be populated for a GradingResult to be valid.
type Competencies struct {
	C1 CompetencyReview `json:"c1"`
	C2 CompetencyReview `json:"c2"`
	C3 CompetencyReview `json:"c3"`
	C4 CompetencyReview `json:"c4"`
	C5 CompetencyReview `json:"c5"`
}

// GradingResult is the structured output of one grading attempt. The JSON
// tags mirror the wire format the model is instructed to produce.
type GradingResult struct {
	StudentName      string       `json:"nome_aluno"`
	Theme            string       `json:"tema_redacao"`
	EssayDate        string       `json:"data_redacao"`
	FinalScore       int          `json:"nota_final"`
	GeneralComments  string       `json:"comentarios_gerais"`
	OriginalityAlert string       `json:"alerta_originalidade,omitempty"`
	Competencies     Competencies `json:"analise_competencias"`
}

// Reviews returns the five competency reviews in order c1..c5.
func (g GradingResult) Reviews() [5]CompetencyReview {
	return [5]CompetencyReview{
		g.Competencies.C1,
		g.Competencies.C2,
		g.Competencies.C3,
		g.Competencies.C4,
		g.Competencies.C5,
	}
}

// CompetencySum adds up the five competency scores.
func (g GradingResult) CompetencySum() int {
	total := 0
	for _, review := range g.Reviews() {
		total += review.Score
	}
	return total
}

// Report is a rendered grading document held entirely in memory.
type Report struct {
	FileName string
	Data     []byte
}
