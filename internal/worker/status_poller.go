package worker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

const pollBatchSize = 20

// StatusPoller asks ANAF for the verdict on uploaded submissions and gives
// failed uploads another try.
type StatusPoller struct {
	anaf     ANAF
	repo     repository.EFacturaRepository
	uploader *EFacturaWorker
	rdb      *redis.Client
}

func NewStatusPoller(anaf ANAF, repo repository.EFacturaRepository, uploader *EFacturaWorker, rdb *redis.Client) *StatusPoller {
	return &StatusPoller{anaf: anaf, repo: repo, uploader: uploader, rdb: rdb}
}

// Start schedules Poll on a cron spec such as "@every 1m". Overlapping runs
// are skipped. Stop the returned cron on shutdown.
func (p *StatusPoller) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, func() { p.Poll(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("spec", spec).Msg("status_poller: started")
	return c, nil
}

// Poll processes one batch.
func (p *StatusPoller) Poll(ctx context.Context) {
	if p.anaf.BreakerState() == infra.CBOpen {
		log.Debug().Msg("status_poller: circuit breaker is open, skipping tick")
		return
	}

	subs, err := p.repo.ListPollable(ctx, pollBatchSize, MaxSubmissionAttempts)
	if err != nil {
		log.Error().Err(err).Msg("status_poller: failed to query submissions")
		return
	}
	if len(subs) == 0 {
		return
	}
	log.Info().Int("count", len(subs)).Msg("status_poller: processing submissions")

	for i := range subs {
		sub := &subs[i]
		// the breaker may trip mid-batch
		if p.anaf.BreakerState() == infra.CBOpen {
			log.Debug().Msg("status_poller: circuit breaker opened mid-batch, stopping")
			return
		}
		if sub.Status == model.SubmissionError {
			p.retry(ctx, sub)
			continue
		}
		p.check(ctx, sub)
	}
}

func (p *StatusPoller) retry(ctx context.Context, sub *model.EFacturaSubmission) {
	if err := p.uploader.Submit(ctx, sub); err != nil {
		payload, _ := json.Marshal(EFacturaPayload{SubmissionID: sub.ID.String()})
		SendToDLQ(ctx, p.rdb, QueueEFactura, JobEFacturaSubmit, payload, err.Error(), sub.Attempts)
	}
}

func (p *StatusPoller) check(ctx context.Context, sub *model.EFacturaSubmission) {
	if sub.UploadIndex == nil {
		return
	}
	var token string
	if cfg, err := p.repo.GetConfig(ctx, sub.CompanyID); err == nil {
		token = cfg.AccessToken
	}

	now := time.Now().UTC()
	sub.LastCheckedAt = &now

	st, err := p.anaf.Status(ctx, token, *sub.UploadIndex, sub.TestMode)
	if err != nil {
		log.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("status_poller: stareMesaj failed")
		if err := p.repo.UpdateSubmission(ctx, sub); err != nil {
			log.Error().Err(err).Msg("status_poller: failed to save submission")
		}
		return
	}

	previous := sub.Status
	var msg string
	switch st.State {
	case infra.ANAFStateOK:
		sub.Status = model.SubmissionAccepted
		if st.DownloadID != "" {
			sub.DownloadID = &st.DownloadID
		}
		msg = "accepted, download id " + st.DownloadID
	case infra.ANAFStateNOK, infra.ANAFStateXMLErrors:
		sub.Status = model.SubmissionRejected
		msg = st.State
		if len(st.Errors) > 0 {
			msg = strings.Join(st.Errors, "; ")
		}
		sub.LastError = &msg
	case infra.ANAFStateProcessing:
		sub.Status = model.SubmissionProcessing
		msg = st.State
	default:
		log.Warn().Str("state", st.State).Str("submission_id", sub.ID.String()).Msg("status_poller: unknown state")
		msg = st.State
	}

	if err := p.repo.UpdateSubmission(ctx, sub); err != nil {
		log.Error().Err(err).Str("submission_id", sub.ID.String()).Msg("status_poller: failed to save submission")
		return
	}
	if sub.Status != previous {
		RecordLog(ctx, p.repo, sub, "status", msg)
		log.Info().Str("submission_id", sub.ID.String()).Str("from", previous).Str("to", sub.Status).
			Msg("status_poller: submission state changed")
	}
}
