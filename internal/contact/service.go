// Package contact submits storefront contact forms through the gateway.
package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/gustavop-dev/rainy-project/internal/gateway"
	"github.com/gustavop-dev/rainy-project/internal/platform/requestctx"
)

const (
	// ErrSubmittingForm is reported when the backend supplies no message of its own.
	ErrSubmittingForm = "Error submitting form"

	contactPath = "contact/"
)

// ErrNoReceipt is returned by Result.Receipt for failed or empty results.
var ErrNoReceipt = errors.New("contact: result carries no receipt")

// Creator is the part of the gateway the service depends on.
type Creator interface {
	Create(ctx context.Context, path string, body any) (*gateway.Response, error)
}

// Submission is one contact form. It is not retained after Submit returns.
type Submission struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Message       string `json:"message"`
	AcceptPrivacy bool   `json:"acceptPrivacy"`
}

type wirePayload struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Message       string `json:"message"`
	AcceptPrivacy bool   `json:"accept_privacy"`
}

// Result is the normalised outcome of Submit.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Status  int             `json:"status"`
}

// Receipt is the record the backend returns for an accepted submission.
type Receipt struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// Receipt decodes the success payload.
func (r Result) Receipt() (Receipt, error) {
	if !r.Success || len(r.Data) == 0 {
		return Receipt{}, ErrNoReceipt
	}
	var receipt Receipt
	if err := json.Unmarshal(r.Data, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("contact: decode receipt: %w", err)
	}
	return receipt, nil
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service submits contact forms. Loading and Err describe the most recent call only.
type Service struct {
	creator Creator
	logger  *zap.Logger

	mu      sync.RWMutex
	loading bool
	err     string
}

// NewService constructs a Service over creator.
func NewService(creator Creator, opts ...Option) *Service {
	s := &Service{
		creator: creator,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit posts form and normalises the outcome. It never returns an error; failures
// are reported through Result and Err.
func (s *Service) Submit(ctx context.Context, form Submission) Result {
	logger := requestctx.LoggerOr(ctx, s.logger)

	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	resp, err := s.creator.Create(ctx, contactPath, wirePayload{
		Name:          form.Name,
		Phone:         form.Phone,
		Email:         form.Email,
		Message:       form.Message,
		AcceptPrivacy: form.AcceptPrivacy,
	})
	if err != nil {
		msg := gateway.MessageOr(err, ErrSubmittingForm)
		status, ok := gateway.StatusOf(err)
		if !ok {
			status = http.StatusInternalServerError
		}

		s.mu.Lock()
		s.err = msg
		s.mu.Unlock()

		logger.Warn("contact submission failed", zap.Int("status", status), zap.String("message", msg))
		return Result{Success: false, Error: msg, Status: status}
	}

	logger.Info("contact submission accepted", zap.Int("status", resp.Status))
	result := Result{Success: true, Status: resp.Status}
	if json.Valid(resp.Body) {
		result.Data = json.RawMessage(append([]byte(nil), resp.Body...))
	}
	return result
}

// Loading reports whether a submission is in progress.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the message of the last failed submission, or "".
func (s *Service) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
