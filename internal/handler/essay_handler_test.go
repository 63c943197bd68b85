package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/projeto-mae/redacao-api/internal/dto"
	"github.com/projeto-mae/redacao-api/internal/handler"
	"github.com/projeto-mae/redacao-api/internal/models"
	"github.com/projeto-mae/redacao-api/internal/service"
	"github.com/projeto-mae/redacao-api/pkg/ai"
)

type mockGradingService struct {
	outcome service.GradeOutcome
	err     error
	history []dto.GradingRecordResponse
	limit   int
}

func (m *mockGradingService) GradeUpload(_ context.Context, file *multipart.FileHeader) (service.GradeOutcome, error) {
	if m.err != nil {
		return service.GradeOutcome{}, m.err
	}
	return m.outcome, nil
}

func (m *mockGradingService) GradeImage(_ context.Context, image models.EssayImage) (service.GradeOutcome, error) {
	if m.err != nil {
		return service.GradeOutcome{}, m.err
	}
	return m.outcome, nil
}

func (m *mockGradingService) ListHistory(_ context.Context, limit int) ([]dto.GradingRecordResponse, error) {
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func newEssayApp(svc service.GradingService) *fiber.App {
	app := fiber.New()
	handler.NewEssayHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/essays"))
	return app
}

func multipartUpload(t *testing.T, fieldName, fileName string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/essays/grade", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestEssayHandler_GradeSuccess(t *testing.T) {
	svc := &mockGradingService{outcome: service.GradeOutcome{
		Result: models.GradingResult{StudentName: "Maria Silva", FinalScore: 760},
		Report: models.Report{FileName: "Correcao_Maria_Silva.docx", Data: []byte("docx-bytes")},
	}}
	app := newEssayApp(svc)

	resp, err := app.Test(multipartUpload(t, "file", "redacao.jpg", []byte("jpeg")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "Correcao_Maria_Silva.docx")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "docx-bytes", string(body))
}

func TestEssayHandler_GradeArchiveHeader(t *testing.T) {
	svc := &mockGradingService{outcome: service.GradeOutcome{
		Report:     models.Report{FileName: "Correcao_Maria_Silva.docx", Data: []byte("docx")},
		ArchiveURL: "https://cdn.example.com/Correcao_Maria_Silva.docx",
	}}
	app := newEssayApp(svc)

	resp, err := app.Test(multipartUpload(t, "file", "redacao.jpg", []byte("jpeg")))
	require.NoError(t, err)
	require.Equal(t, svc.outcome.ArchiveURL, resp.Header.Get("X-Report-Archive-Url"))
}

func TestEssayHandler_GradeMissingFile(t *testing.T) {
	app := newEssayApp(&mockGradingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/essays/grade", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEssayHandler_GradeServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "too_large", err: service.ErrEssayTooLarge, statusCode: fiber.StatusRequestEntityTooLarge},
		{name: "unsupported_type", err: service.ErrUnsupportedImage, statusCode: fiber.StatusUnsupportedMediaType},
		{name: "malformed_verdict", err: ai.ErrMalformedResponse, statusCode: fiber.StatusUnprocessableEntity},
		{name: "model_down", err: ai.ErrModelUnavailable, statusCode: fiber.StatusBadGateway},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newEssayApp(&mockGradingService{err: tc.err})

			resp, err := app.Test(multipartUpload(t, "file", "redacao.jpg", []byte("jpeg")))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestEssayHandler_History(t *testing.T) {
	svc := &mockGradingService{history: []dto.GradingRecordResponse{
		{ID: 1, StudentName: "Maria Silva", FinalScore: 760, Status: models.GradingStatusCompleted},
	}}
	app := newEssayApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/essays/history?limit=5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 5, svc.limit)

	var response struct {
		Success bool                        `json:"success"`
		Data    []dto.GradingRecordResponse `json:"data"`
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &response))
	require.True(t, response.Success)
	require.Len(t, response.Data, 1)
	require.Equal(t, "Maria Silva", response.Data[0].StudentName)
}

func TestEssayHandler_HistoryBadLimit(t *testing.T) {
	app := newEssayApp(&mockGradingService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/essays/history?limit=abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
