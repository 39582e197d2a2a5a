package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JonMunkholm/fileintake/internal/config"
	"github.com/JonMunkholm/fileintake/internal/storage"
)

// DefaultUploadTimeout bounds a single upload or import when no timeout is configured.
const DefaultUploadTimeout = 5 * time.Minute

// Service coordinates the acceptance policy, the namer, the blob store and
// metadata persistence. It holds no per-request state.
type Service struct {
	policy  *Policy
	namer   *Namer
	store   storage.Store
	files   FileRepository
	records RecordSink
	limiter *UploadLimiter

	publicBaseURL string
	timeout       time.Duration
	now           func() time.Time
}

// NewService wires a Service from configuration. records may be nil, in
// which case accepted import records are discarded after validation.
func NewService(cfg *config.Config, store storage.Store, files FileRepository, records RecordSink) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("core: nil config")
	}
	if store == nil {
		return nil, errors.New("core: nil blob store")
	}
	if files == nil {
		return nil, errors.New("core: nil file repository")
	}
	if records == nil {
		records = DiscardRecords{}
	}

	timeout := cfg.Upload.Timeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}

	return &Service{
		policy:        PolicyFromConfig(cfg.Upload),
		namer:         NewNamer(),
		store:         store,
		files:         files,
		records:       records,
		limiter:       NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		publicBaseURL: strings.TrimRight(cfg.Storage.PublicBaseURL, "/"),
		timeout:       timeout,
		now:           time.Now,
	}, nil
}

// Policy returns the acceptance policy in force.
func (s *Service) Policy() *Policy {
	return s.policy
}

// AccessURL returns the public URL a stored file is served from.
func (s *Service) AccessURL(storageID string) string {
	return s.publicBaseURL + "/uploads/files/" + storageID
}

// UploadLimiterStatus returns the current limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight uploads and imports finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
