// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// AllowedExtensions are the document types the knowledge base ingests.
var AllowedExtensions = []string{".pdf", ".md", ".txt"}

// MaxUploadSize caps a single upload.
const MaxUploadSize = 20 * 1024 * 1024

func filesPath(assistantID int64) string {
	return assistantPath(assistantID) + "/files"
}

// ListFiles returns the files uploaded to an assistant.
func (c *Client) ListFiles(ctx context.Context, assistantID int64) ([]File, error) {
	var out []File
	if err := c.do(ctx, call{
		method: http.MethodGet,
		path:   filesPath(assistantID),
		route:  "/help-assistant/:id/files",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckUpload validates a local file before upload: allowed extension,
// regular file, within MaxUploadSize.
func CheckUpload(path string) (os.FileInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("unsupported type %q, allowed: %s", ext, strings.Join(AllowedExtensions, ", ")),
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ValidationError{Field: "file", Reason: err.Error()}
	}
	if !info.Mode().IsRegular() {
		return nil, &ValidationError{Field: "file", Reason: "not a regular file"}
	}
	if info.Size() > MaxUploadSize {
		return nil, &ValidationError{
			Field: "file",
			Reason: fmt.Sprintf("%s exceeds the %s limit",
				humanize.IBytes(uint64(info.Size())), humanize.IBytes(MaxUploadSize)),
		}
	}
	return info, nil
}

// UploadFile sends a local document to an assistant's knowledge base.
func (c *Client) UploadFile(ctx context.Context, assistantID int64, path string) (*File, error) {
	if _, err := CheckUpload(path); err != nil {
		return nil, err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect content type: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", mt.String())
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var out File
	if err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        filesPath(assistantID),
		route:       "/help-assistant/:id/files",
		raw:         &body,
		contentType: mw.FormDataContentType(),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFile removes an uploaded file.
func (c *Client) DeleteFile(ctx context.Context, assistantID, fileID int64) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   fmt.Sprintf("%s/%d", filesPath(assistantID), fileID),
		route:  "/help-assistant/:id/files/:fileId",
	}, nil)
}

// DownloadURL returns a link that downloads a file without headers, with
// the token in the query string. It must not be logged or shared.
func (c *Client) DownloadURL(assistantID, fileID int64) (string, error) {
	token := c.currentToken()
	if token == "" {
		return "", ErrNotAuthenticated
	}
	q := url.Values{"token": {token}}
	return fmt.Sprintf("%s%s/%d/download?%s", c.baseURL, filesPath(assistantID), fileID, q.Encode()), nil
}

// DownloadFile streams a file's contents into w and returns the byte count.
func (c *Client) DownloadFile(ctx context.Context, assistantID, fileID int64, w io.Writer) (int64, error) {
	cl := call{
		method: http.MethodGet,
		path:   fmt.Sprintf("%s/%d/download", filesPath(assistantID), fileID),
		route:  "/help-assistant/:id/files/:fileId/download",
	}
	resp, err := c.send(ctx, cl)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := readResponse(resp)
		return 0, c.errorFor(cl, resp.StatusCode, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &NetworkError{Op: cl.method + " " + cl.route, Err: err}
	}
	return n, nil
}
