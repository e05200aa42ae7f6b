package gateway

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Form is a multipart payload for UploadFile.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// FormFile is one file part of a Form.
type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// encode renders the form and returns the body with the matching Content-Type.
func (f Form) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, f.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("gateway: write form field %s: %w", k, err)
		}
	}

	for _, file := range f.Files {
		field := strings.TrimSpace(file.Field)
		if field == "" {
			field = "file"
		}
		if file.Content == nil {
			return nil, "", fmt.Errorf("gateway: form file %s has no content", field)
		}

		var (
			part io.Writer
			err  error
		)
		if file.ContentType == "" {
			part, err = w.CreateFormFile(field, file.Name)
		} else {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(file.Name)))
			header.Set("Content-Type", file.ContentType)
			part, err = w.CreatePart(header)
		}
		if err != nil {
			return nil, "", fmt.Errorf("gateway: create form file %s: %w", field, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("gateway: copy form file %s: %w", field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("gateway: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
