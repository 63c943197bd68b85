package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/projeto-mae/redacao-api/internal/models"
	"github.com/projeto-mae/redacao-api/pkg/ai"
	"github.com/projeto-mae/redacao-api/pkg/drive"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type folderStub struct {
	files       []drive.File
	contents    map[string][]byte
	listErr     error
	downloadErr map[string]error
	uploadErr   error
	uploads     []string
}

func (f *folderStub) ListImages(ctx context.Context, folderID string) ([]drive.File, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *folderStub) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := f.downloadErr[fileID]; err != nil {
		return nil, err
	}
	return f.contents[fileID], nil
}

func (f *folderStub) UploadReport(ctx context.Context, folderID, name string, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, name)
	return "report-" + name, nil
}

type markerStub struct {
	processed map[string]bool
	markErr   error
}

func newMarkerStub() *markerStub {
	return &markerStub{processed: map[string]bool{}}
}

func (m *markerStub) IsProcessed(ctx context.Context, sourceFileID string) (bool, error) {
	return m.processed[sourceFileID], nil
}

func (m *markerStub) MarkProcessed(ctx context.Context, marker *models.ProcessedFile) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.processed[marker.SourceFileID] = true
	return nil
}

type graderStub struct {
	err    error
	failOn string
	calls  int
}

func (g *graderStub) Grade(ctx context.Context, input ai.GradingInput) (models.GradingResult, error) {
	g.calls++
	if g.err != nil {
		return models.GradingResult{}, g.err
	}
	if g.failOn != "" && g.failOn == input.Image.Name {
		return models.GradingResult{}, ai.ErrMalformedResponse
	}
	return models.GradingResult{
		StudentName: "Maria Silva",
		Theme:       "Educação digital",
		FinalScore:  760,
		Competencies: models.Competencies{
			C1: models.CompetencyReview{Score: 160, Analysis: "ok"},
			C2: models.CompetencyReview{Score: 160, Analysis: "ok"},
			C3: models.CompetencyReview{Score: 120, Analysis: "ok"},
			C4: models.CompetencyReview{Score: 160, Analysis: "ok"},
			C5: models.CompetencyReview{Score: 160, Analysis: "ok"},
		},
		GeneralComments: "Bom texto.",
	}, nil
}

type rendererStub struct {
	err error
}

func (r *rendererStub) Render(result models.GradingResult) (models.Report, error) {
	if r.err != nil {
		return models.Report{}, r.err
	}
	return models.Report{FileName: "Correcao_Maria_Silva.docx", Data: []byte("docx")}, nil
}

type historyStub struct {
	records []models.GradingRecord
}

func (h *historyStub) Create(ctx context.Context, record *models.GradingRecord) error {
	h.records = append(h.records, *record)
	return nil
}

func (h *historyStub) ListRecent(ctx context.Context, limit int) ([]models.GradingRecord, error) {
	return h.records, nil
}

func newTestRunner(folder *folderStub, markers *markerStub, grader *graderStub, renderer *rendererStub, history *historyStub) *Runner {
	return NewRunner(folder, markers, grader, renderer, history, "rubrica", "src-folder", "out-folder", testLogger())
}

func TestRunOnceProcessesNewFiles(t *testing.T) {
	folder := &folderStub{
		files: []drive.File{
			{ID: "f1", Name: "redacao1.jpg", MIME: "image/jpeg"},
			{ID: "f2", Name: "redacao2.png", MIME: "image/png"},
		},
		contents: map[string][]byte{"f1": []byte("img1"), "f2": []byte("img2")},
	}
	markers := newMarkerStub()
	grader := &graderStub{}
	history := &historyStub{}

	runner := newTestRunner(folder, markers, grader, &rendererStub{}, history)

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Listed)
	require.Equal(t, 2, summary.Processed)
	require.Zero(t, summary.Failed)

	require.Len(t, folder.uploads, 2)
	require.True(t, markers.processed["f1"])
	require.True(t, markers.processed["f2"])
	require.Len(t, history.records, 2)
	require.Equal(t, models.GradingSourceBatch, history.records[0].Source)
	require.Equal(t, models.GradingStatusCompleted, history.records[0].Status)
}

func TestRunOnceSkipsProcessedFiles(t *testing.T) {
	folder := &folderStub{
		files:    []drive.File{{ID: "f1", Name: "redacao1.jpg", MIME: "image/jpeg"}},
		contents: map[string][]byte{"f1": []byte("img1")},
	}
	markers := newMarkerStub()
	markers.processed["f1"] = true
	grader := &graderStub{}

	runner := newTestRunner(folder, markers, grader, &rendererStub{}, &historyStub{})

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Zero(t, summary.Processed)
	require.Zero(t, grader.calls, "an already processed file must not reach the model")
}

func TestRunOnceIsolatesFileFailures(t *testing.T) {
	folder := &folderStub{
		files: []drive.File{
			{ID: "f1", Name: "bad.jpg", MIME: "image/jpeg"},
			{ID: "f2", Name: "good.png", MIME: "image/png"},
		},
		contents: map[string][]byte{"f1": []byte("img1"), "f2": []byte("img2")},
	}
	markers := newMarkerStub()
	grader := &graderStub{failOn: "bad.jpg"}
	history := &historyStub{}

	runner := newTestRunner(folder, markers, grader, &rendererStub{}, history)

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Processed)

	require.False(t, markers.processed["f1"], "failed file must stay eligible for retry")
	require.True(t, markers.processed["f2"])

	require.Len(t, history.records, 2)
	var failed *models.GradingRecord
	for i := range history.records {
		if history.records[i].Status == models.GradingStatusFailed {
			failed = &history.records[i]
		}
	}
	require.NotNil(t, failed)
	require.Equal(t, "f1", failed.SourceFileID)
	require.NotEmpty(t, failed.Error)
}

func TestRunOnceDoesNotMarkWhenUploadFails(t *testing.T) {
	folder := &folderStub{
		files:     []drive.File{{ID: "f1", Name: "redacao1.jpg", MIME: "image/jpeg"}},
		contents:  map[string][]byte{"f1": []byte("img1")},
		uploadErr: errors.New("quota exceeded"),
	}
	markers := newMarkerStub()

	runner := newTestRunner(folder, markers, &graderStub{}, &rendererStub{}, &historyStub{})

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.False(t, markers.processed["f1"], "marker must only be written after a successful upload")
}

func TestRunOnceListFailureAbortsCycle(t *testing.T) {
	folder := &folderStub{listErr: drive.ErrStorage}
	runner := newTestRunner(folder, newMarkerStub(), &graderStub{}, &rendererStub{}, &historyStub{})

	_, err := runner.RunOnce(context.Background())
	require.ErrorIs(t, err, drive.ErrStorage)
}

func TestRunOnceHonorsContextCancellation(t *testing.T) {
	folder := &folderStub{
		files:    []drive.File{{ID: "f1", Name: "redacao1.jpg", MIME: "image/jpeg"}},
		contents: map[string][]byte{"f1": []byte("img1")},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newTestRunner(folder, newMarkerStub(), &graderStub{}, &rendererStub{}, &historyStub{})

	_, err := runner.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
