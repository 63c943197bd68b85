package models

import "time"

// GradingRecord is the persisted history row for one grading attempt,
// whether it came from the interactive API or the batch runner.
type GradingRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Source       string    `gorm:"size:16;not null" json:"source"`
	SourceFileID string    `gorm:"size:128;index" json:"source_file_id"`
	SourceName   string    `gorm:"size:255" json:"source_name"`
	StudentName  string    `gorm:"size:255" json:"student_name"`
	Theme        string    `gorm:"size:512" json:"theme"`
	FinalScore   int       `json:"final_score"`
	Status       string    `gorm:"size:16;not null" json:"status"`
	Error        string    `gorm:"type:text" json:"error,omitempty"`
	ArchiveURL   string    `gorm:"size:512" json:"archive_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	// GradingSourceInteractive marks records produced by the HTTP upload path.
	GradingSourceInteractive = "api"
	// GradingSourceBatch marks records produced by the folder poller.
	GradingSourceBatch = "batch"

	// GradingStatusCompleted indicates a report was rendered for the essay.
	GradingStatusCompleted = "completed"
	// GradingStatusFailed indicates the attempt aborted before a report existed.
	GradingStatusFailed = "failed"
)

// ProcessedFile is the durable marker preventing reprocessing of an already
// graded source file in batch mode. It is written only after a report has
// been uploaded to the output folder.
type ProcessedFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SourceFileID string    `gorm:"size:128;uniqueIndex;not null" json:"source_file_id"`
	SourceName   string    `gorm:"size:255" json:"source_name"`
	ReportFileID string    `gorm:"size:128;not null" json:"report_file_id"`
	ProcessedAt  time.Time `json:"processed_at"`
}
