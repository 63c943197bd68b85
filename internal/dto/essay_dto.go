package dto

import (
	"time"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// GradingRecordResponse is the API view of one grading history entry.
type GradingRecordResponse struct {
	ID          uint      `json:"id"`
	Source      string    `json:"source"`
	SourceName  string    `json:"source_name"`
	StudentName string    `json:"student_name"`
	Theme       string    `json:"theme"`
	FinalScore  int       `json:"final_score"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	ArchiveURL  string    `json:"archive_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewGradingRecordResponse converts a persisted record into its API shape.
func NewGradingRecordResponse(record models.GradingRecord) GradingRecordResponse {
	return GradingRecordResponse{
		ID:          record.ID,
		Source:      record.Source,
		SourceName:  record.SourceName,
		StudentName: record.StudentName,
		Theme:       record.Theme,
		FinalScore:  record.FinalScore,
		Status:      record.Status,
		Error:       record.Error,
		ArchiveURL:  record.ArchiveURL,
		CreatedAt:   record.CreatedAt,
	}
}

// NewGradingRecordResponses maps a slice of records.
func NewGradingRecordResponses(records []models.GradingRecord) []GradingRecordResponse {
	responses := make([]GradingRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewGradingRecordResponse(record))
	}
	return responses
}
