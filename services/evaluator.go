package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"ecoxchange/models"
)

// DocumentField is the multipart field carrying the uploaded certificate.
const DocumentField = "document"

const maxEvaluationBody = 1 << 20

// Evaluator classifies an uploaded certificate and prices its payout.
type Evaluator interface {
	Evaluate(ctx context.Context, file models.PendingFile) (models.EvaluationResult, error)
}

// UploadError is returned for any failed evaluation: transport failure,
// non-2xx status or an unusable response body. Callers show one generic
// message regardless of Cause.
type UploadError struct {
	Cause error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Cause)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// HTTPEvaluator posts the document to an external evaluation endpoint.
type HTTPEvaluator struct {
	URL    string
	Client *http.Client
}

func NewHTTPEvaluator(url string, client *http.Client) *HTTPEvaluator {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPEvaluator{URL: url, Client: client}
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, file models.PendingFile) (models.EvaluationResult, error) {
	body, contentType, err := encodeDocument(file)
	if err != nil {
		return models.EvaluationResult{}, &UploadError{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, body)
	if err != nil {
		return models.EvaluationResult{}, &UploadError{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return models.EvaluationResult{}, &UploadError{Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEvaluationBody))
	if err != nil {
		return models.EvaluationResult{}, &UploadError{Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.EvaluationResult{}, &UploadError{Cause: fmt.Errorf("evaluator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	result, err := decodeEvaluation(raw)
	if err != nil {
		return models.EvaluationResult{}, &UploadError{Cause: err}
	}
	return result, nil
}

func encodeDocument(file models.PendingFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	var part io.Writer
	var err error
	if file.ContentType != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, DocumentField, file.Name))
		h.Set("Content-Type", file.ContentType)
		part, err = w.CreatePart(h)
	} else {
		part, err = w.CreateFormFile(DocumentField, file.Name)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeEvaluation(raw []byte) (models.EvaluationResult, error) {
	var body struct {
		Type   *string  `json:"type"`
		Payout *models.Money `json:"payout"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return models.EvaluationResult{}, fmt.Errorf("malformed evaluation response: %w", err)
	}
	if body.Type == nil {
		return models.EvaluationResult{}, errors.New("evaluation response missing type")
	}
	if body.Payout == nil {
		return models.EvaluationResult{}, errors.New("evaluation response missing payout")
	}
	if *body.Payout < 0 || *body.Payout > models.MaxAmount {
		return models.EvaluationResult{}, fmt.Errorf("evaluation payout %s out of range", *body.Payout)
	}
	return models.EvaluationResult{
		CertificateType: *body.Type,
		Payout:          *body.Payout,
	}, nil
}
