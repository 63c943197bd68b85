package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrStorage indicates a folder read or write against Google Drive failed.
var ErrStorage = errors.New("drive storage failure")

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// File identifies one remote file in a watched folder.
type File struct {
	ID   string
	Name string
	MIME string
}

// Client wraps the Drive v3 API for the batch runner: listing essay photos
// in the source folder, downloading their bytes and uploading reports to the
// output folder.
type Client struct {
	service *drive.Service
	logger  zerolog.Logger
}

// NewClient authenticates against Drive with the given service-account
// credentials file.
func NewClient(ctx context.Context, credentialsFile string, logger zerolog.Logger) (*Client, error) {
	service, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize drive client: %w", err)
	}

	return &Client{
		service: service,
		logger:  logger.With().Str("component", "drive").Logger(),
	}, nil
}

// ListImages returns the jpeg/png files currently present in the folder,
// ignoring trashed entries.
func (c *Client) ListImages(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf(
		"'%s' in parents and (mimeType='image/jpeg' or mimeType='image/png') and trashed=false",
		folderID,
	)

	result, err := c.service.Files.List().
		Q(query).
		Fields("files(id, name, mimeType)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: list folder %s: %v", ErrStorage, folderID, err)
	}

	files := make([]File, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, File{ID: f.Id, Name: f.Name, MIME: f.MimeType})
	}

	c.logger.Debug().Str("folder_id", folderID).Int("count", len(files)).Msg("listed pending images")
	return files, nil
}

// Download fetches the content of one file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrStorage, fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, fileID, err)
	}

	return data, nil
}

// UploadReport writes a rendered docx into the output folder and returns the
// new file's ID.
func (c *Client) UploadReport(ctx context.Context, folderID, name string, data []byte) (string, error) {
	meta := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	created, err := c.service.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(docxMIME)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", ErrStorage, name, err)
	}

	c.logger.Info().Str("file_name", name).Str("file_id", created.Id).Msg("report uploaded")
	return created.Id, nil
}
