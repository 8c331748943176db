package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

const (
	// MaxSubmissionAttempts caps ANAF uploads per submission across the
	// worker and the poller.
	MaxSubmissionAttempts = 5
	uploadAttemptsPerRun  = 3
)

// ErrAttemptsExhausted is returned for submissions that reached
// MaxSubmissionAttempts. They are never uploaded again; a new submission
// has to be created instead.
var ErrAttemptsExhausted = errors.New("upload attempts exhausted")

// ANAF is satisfied by *infra.ANAFClient.
type ANAF interface {
	Upload(ctx context.Context, token, cif string, doc []byte, test bool) (string, error)
	Status(ctx context.Context, token, index string, test bool) (*infra.ANAFStatus, error)
	BreakerState() infra.CBState
}

// EFacturaWorker uploads stored UBL documents to ANAF SPV.
type EFacturaWorker struct {
	anaf      ANAF
	repo      repository.EFacturaRepository
	companies repository.CompanyRepository
	storage   infra.Storage
	metrics   *infra.Metrics
}

func NewEFacturaWorker(
	anaf ANAF,
	repo repository.EFacturaRepository,
	companies repository.CompanyRepository,
	storage infra.Storage,
	metrics *infra.Metrics,
) *EFacturaWorker {
	return &EFacturaWorker{anaf: anaf, repo: repo, companies: companies, storage: storage, metrics: metrics}
}

// Process handles an efactura_submit job.
func (w *EFacturaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EFacturaPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("efactura_worker: invalid payload: %w", err)
	}
	id, err := uuid.Parse(payload.SubmissionID)
	if err != nil {
		return fmt.Errorf("efactura_worker: invalid submission_id: %w", err)
	}
	sub, err := w.repo.FindSubmission(ctx, id)
	if err != nil {
		return fmt.Errorf("efactura_worker: load submission: %w", err)
	}
	if sub.Status != model.SubmissionPending && sub.Status != model.SubmissionError {
		log.Info().Str("submission_id", payload.SubmissionID).Str("status", sub.Status).
			Msg("efactura_worker: submission already handled, skipping")
		return nil
	}
	return w.Submit(ctx, sub)
}

// Submit uploads one submission and records the outcome. It returns an error
// only when the submission has used up its attempts.
func (w *EFacturaWorker) Submit(ctx context.Context, sub *model.EFacturaSubmission) error {
	if sub.Attempts >= MaxSubmissionAttempts {
		return fmt.Errorf("efactura_worker: submission %s after %d attempts: %w", sub.ID, sub.Attempts, ErrAttemptsExhausted)
	}
	company, err := w.companies.FindByID(ctx, sub.CompanyID)
	if err != nil {
		return fmt.Errorf("efactura_worker: load company: %w", err)
	}
	doc, err := w.storage.Get(ctx, sub.XMLKey)
	if err != nil {
		sub.Attempts++
		return w.finish(ctx, sub, "", fmt.Errorf("read stored xml: %w", err))
	}
	var token string
	if cfg, err := w.repo.GetConfig(ctx, sub.CompanyID); err == nil {
		token = cfg.AccessToken
	}

	var index string
	var lastErr error
	err = withRetry(ctx, uploadAttemptsPerRun, func(attempt int) error {
		if sub.Attempts >= MaxSubmissionAttempts {
			return permanent(fmt.Errorf("%w: %v", ErrAttemptsExhausted, lastErr))
		}
		sub.Attempts++
		idx, err := w.anaf.Upload(ctx, token, company.CUI, doc, sub.TestMode)
		if errors.Is(err, infra.ErrANAFRejected) || errors.Is(err, infra.ErrCircuitOpen) {
			return permanent(err)
		}
		if err != nil {
			lastErr = err
			w.metrics.Job(JobEFacturaSubmit, "retry")
			log.Warn().Err(err).Int("attempt", sub.Attempts).Str("submission_id", sub.ID.String()).
				Msg("efactura_worker: upload failed, retrying")
			return err
		}
		index = idx
		return nil
	})
	return w.finish(ctx, sub, index, err)
}

func (w *EFacturaWorker) finish(ctx context.Context, sub *model.EFacturaSubmission, index string, uploadErr error) error {
	now := time.Now().UTC()
	var msg string
	switch {
	case uploadErr == nil:
		sub.Status = model.SubmissionUploaded
		sub.UploadIndex = &index
		sub.SubmittedAt = &now
		sub.LastError = nil
		msg = "upload index " + index
	case errors.Is(uploadErr, infra.ErrANAFRejected):
		sub.Status = model.SubmissionRejected
		msg = uploadErr.Error()
		sub.LastError = &msg
	default:
		sub.Status = model.SubmissionError
		msg = uploadErr.Error()
		sub.LastError = &msg
	}

	if err := w.repo.UpdateSubmission(ctx, sub); err != nil {
		return fmt.Errorf("efactura_worker: save submission: %w", err)
	}
	RecordLog(ctx, w.repo, sub, "upload", msg)

	log.Info().Str("submission_id", sub.ID.String()).Str("status", sub.Status).Int("attempts", sub.Attempts).
		Msg("efactura_worker: upload finished")

	if sub.Status == model.SubmissionError && sub.Attempts >= MaxSubmissionAttempts {
		return fmt.Errorf("upload failed after %d attempts: %w", sub.Attempts, uploadErr)
	}
	return nil
}

// RecordLog appends an audit entry; failures are logged and ignored.
func RecordLog(ctx context.Context, repo repository.EFacturaRepository, sub *model.EFacturaSubmission, action, message string) {
	entry := &model.EFacturaLog{
		CompanyID:    sub.CompanyID,
		SubmissionID: &sub.ID,
		Action:       action,
		Status:       sub.Status,
		Message:      message,
	}
	if err := repo.CreateLog(ctx, entry); err != nil {
		log.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("efactura: failed to write log entry")
	}
}
