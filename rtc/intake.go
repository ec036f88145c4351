package rtc

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// Stage is one step of a resource's intake lifecycle. Each submission moves
// through the stages in order; modeling them as an explicit enum keeps
// illegal combinations unrepresentable.
type Stage string

const (
	StageSelected     Stage = "selected"
	StageValidated    Stage = "validated"
	StageEncoded      Stage = "encoded"
	StageSubmitted    Stage = "submitted"
	StageAcknowledged Stage = "acknowledged"
	StageFailed       Stage = "failed"
)

// Remote capability addressed by the intake pipeline.
const (
	ServiceFileProcessor = "file_processor"
	ActionUploadFile     = "upload_file"
)

// Resource is a user-supplied binary artifact that completed the intake
// pipeline. Immutable once created.
type Resource struct {
	Name       string    `json:"name"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	Payload    string    `json:"payload"`
	RemoteID   string    `json:"remoteId,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Intake validates and encodes local binary resources and hands them to the
// dispatcher. Acknowledged resources are retained in a read-only ordered
// list; failed submissions retain nothing. Submissions are independent; no
// cross-resource ordering is guaranteed.
type Intake struct {
	mu         sync.RWMutex
	dispatcher Dispatcher
	convlog    *Log
	logger     *Logger
	maxSize    int64
	allowed    []string
	resources  []Resource
}

// IntakeOption configures the intake pipeline.
type IntakeOption func(*Intake)

// WithMaxResourceSize sets the size ceiling in bytes.
func WithMaxResourceSize(n int64) IntakeOption {
	return func(p *Intake) {
		if n > 0 {
			p.maxSize = n
		}
	}
}

// WithAllowedMimePatterns sets the MIME allow-set. Patterns are exact types
// or a type family like "image/*".
func WithAllowedMimePatterns(patterns []string) IntakeOption {
	return func(p *Intake) {
		if len(patterns) > 0 {
			p.allowed = patterns
		}
	}
}

// WithIntakeLogger sets the logger used by the pipeline.
func WithIntakeLogger(l *Logger) IntakeOption {
	return func(p *Intake) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewIntake creates an intake pipeline that submits through the given
// dispatcher and narrates outcomes to the conversation log.
func NewIntake(d Dispatcher, convlog *Log, opts ...IntakeOption) *Intake {
	p := &Intake{
		dispatcher: d,
		convlog:    convlog,
		logger:     GetLogger(),
		maxSize:    DefaultMaxResourceSize,
		allowed:    DefaultAllowedMimePatterns(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Submit runs one resource through the pipeline:
// selected -> validated -> encoded -> submitted -> acknowledged | failed.
// Validation failures (TooLarge, ReadFailed, UnsupportedType) are local and
// never reach the dispatcher. Submission failures inherit the gateway's
// failure modes and are surfaced unchanged.
func (p *Intake) Submit(ctx context.Context, r io.Reader, name, mimeType string) (*Resource, error) {
	stage := StageSelected
	p.logger.Debug("intake", "stage", stage, "name", name)

	if !p.mimeAllowed(mimeType) {
		return nil, &IntakeError{Code: CodeUnsupportedType, Name: name}
	}

	// Read one byte past the ceiling to distinguish at-limit from over.
	raw, err := io.ReadAll(io.LimitReader(r, p.maxSize+1))
	if err != nil {
		return nil, &IntakeError{Code: CodeReadFailed, Name: name, Err: err}
	}
	if int64(len(raw)) > p.maxSize {
		return nil, &IntakeError{Code: CodeTooLarge, Name: name}
	}

	stage = StageValidated
	p.logger.Debug("intake", "stage", stage, "name", name, "size", len(raw))

	payload := base64.StdEncoding.EncodeToString(raw)
	stage = StageEncoded
	p.logger.Debug("intake", "stage", stage, "name", name)

	stage = StageSubmitted
	p.logger.Debug("intake", "stage", stage, "name", name)

	result, err := p.dispatcher.Dispatch(ctx, ServiceFileProcessor, ActionUploadFile,
		Arg{Name: "filename", Value: name},
		Arg{Name: "mime_type", Value: mimeType},
		Arg{Name: "payload", Value: payload},
	)
	if err != nil {
		stage = StageFailed
		p.logger.Warn("intake", "stage", stage, "name", name, "error", err)
		p.convlog.System(fmt.Sprintf("Upload of %q failed: %v", name, err))
		return nil, err
	}

	stage = StageAcknowledged
	p.logger.Info("intake", "stage", stage, "name", name)

	res := Resource{
		Name:       name,
		MimeType:   mimeType,
		SizeBytes:  int64(len(raw)),
		Payload:    payload,
		RemoteID:   gjson.GetBytes(result, "file_id").String(),
		UploadedAt: time.Now(),
	}

	p.mu.Lock()
	p.resources = append(p.resources, res)
	p.mu.Unlock()

	p.convlog.System(fmt.Sprintf("Uploaded %q (%d bytes)", name, res.SizeBytes))
	return &res, nil
}

// SubmitFile reads a local file and submits it. The MIME type is declared
// from the file extension, falling back to application/octet-stream.
func (p *Intake) SubmitFile(ctx context.Context, path string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IntakeError{Code: CodeReadFailed, Name: filepath.Base(path), Err: err}
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return p.Submit(ctx, f, filepath.Base(path), mimeType)
}

// Resources returns the acknowledged resources in submission-settle order.
// The returned slice is a copy.
func (p *Intake) Resources() []Resource {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Resource, len(p.resources))
	copy(out, p.resources)
	return out
}

// Count returns the number of acknowledged resources.
func (p *Intake) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.resources)
}

func (p *Intake) mimeAllowed(mimeType string) bool {
	for _, pattern := range p.allowed {
		if pattern == mimeType {
			return true
		}
		if family, ok := strings.CutSuffix(pattern, "/*"); ok {
			if strings.HasPrefix(mimeType, family+"/") {
				return true
			}
		}
	}
	return false
}
