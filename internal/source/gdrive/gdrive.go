// Package gdrive implements source.Source on the Google Drive v3 API.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lumadocs/driveline/internal/domain"
	"github.com/lumadocs/driveline/internal/source"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// PageSize is the number of files to fetch per request
	PageSize = 100
)

// supportedMimeTypes are the document types the engine ingests.
// Folders always pass; other types are filtered out at listing time.
var supportedMimeTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
}

// IsSupportedMimeType reports whether the engine ingests this file type
func IsSupportedMimeType(mimeType string) bool {
	return supportedMimeTypes[mimeType]
}

// Client implements source.Source for Google Drive
type Client struct {
	service *drive.Service
}

// New creates a Drive client using the stored OAuth token
func New(ctx context.Context, clientID, clientSecret, tokenPath string) (*Client, error) {
	auth := NewAuthenticator(clientID, clientSecret, tokenPath)

	token, err := auth.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	httpClient := auth.Config().Client(ctx, token)

	service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{service: service}, nil
}

// NewWithToken creates a Drive client from an existing token
func NewWithToken(ctx context.Context, token *oauth2.Token, oauthConfig *oauth2.Config) (*Client, error) {
	httpClient := oauthConfig.Client(ctx, token)

	service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{service: service}, nil
}

// ListChildren returns the immediate children of a folder. Files with
// unsupported MIME types are dropped; folders are always returned.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]domain.RemoteEntry, error) {
	var result []domain.RemoteEntry
	pageToken := ""

	for {
		query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryString(folderID))
		call := c.service.Files.List().
			Q(query).
			PageSize(PageSize).
			Fields("nextPageToken, files(id, name, mimeType, size, modifiedTime, md5Checksum)")

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Context(ctx).Do()
		if err != nil {
			return nil, mapError(err)
		}

		for _, f := range fileList.Files {
			if f.MimeType != MimeTypeFolder && !IsSupportedMimeType(f.MimeType) {
				continue
			}
			result = append(result, entryFromDrive(f))
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}

// Download streams the content of a file
func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Body, nil
}

// escapeQueryString escapes special characters in Drive query strings
func escapeQueryString(s string) string {
	// Escape backslash first, then single quote
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// entryFromDrive converts a Drive file to a domain.RemoteEntry
func entryFromDrive(file *drive.File) domain.RemoteEntry {
	kind := domain.KindFile
	if file.MimeType == MimeTypeFolder {
		kind = domain.KindFolder
	}

	modTime := time.Time{}
	if file.ModifiedTime != "" {
		modTime, _ = time.Parse(time.RFC3339, file.ModifiedTime)
	}

	return domain.RemoteEntry{
		ID:             file.Id,
		Name:           file.Name,
		Kind:           kind,
		MimeType:       file.MimeType,
		ModifiedTime:   modTime,
		Size:           file.Size,
		RemoteChecksum: file.Md5Checksum,
	}
}

// mapError converts Google API errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if ok := errors.As(err, &apiErr); ok {
		switch apiErr.Code {
		case 404:
			return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		case 403:
			return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
		case 429:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
		if apiErr.Code >= 500 {
			return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
		}
	}

	// Fallback to string matching for non-googleapi errors
	errStr := err.Error()
	if strings.Contains(errStr, "notFound") {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	return err
}

// Compile-time interface check
var _ source.Source = (*Client)(nil)
