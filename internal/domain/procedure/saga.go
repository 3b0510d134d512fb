package procedure

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cliniops/cliniops/internal/domain/product"
	"github.com/cliniops/cliniops/internal/platform/artifact"
	"github.com/cliniops/cliniops/internal/platform/metrics"
)

// Transactor opens one relational transaction around fn. The transaction
// travels in fn's context so repositories and the ledger pick it up.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Attachment fields a request may carry a file for.
const (
	FieldBeforeImage = "before_image"
	FieldAfterImage  = "after_image"
)

// Attachment is a validated evidence file from the incoming request. Size and
// content type have already passed artifact.ValidateUpload by the time the
// saga sees it.
type Attachment struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Saga request states.
type sagaState string

const (
	stateStagingArtifacts sagaState = "STAGING_ARTIFACTS"
	stateInTransaction    sagaState = "IN_TRANSACTION"
	stateCommitted        sagaState = "COMMITTED"
	stateAborting         sagaState = "ABORTING"
	stateFailed           sagaState = "FAILED"
)

// Saga coordinates one procedure write across the blob store, the procedure
// repository, and the inventory ledger.
//
// Artifacts are staged before the relational transaction opens, under paths
// nothing references yet. If the transaction commits, the staged paths become
// the procedure's artifact references; if it fails, every staged path is
// deleted best-effort and the original error is surfaced unchanged. The
// transaction is never held open across blob I/O.
type Saga struct {
	tx        Transactor
	repo      Repository
	ledger    product.Ledger
	artifacts artifact.Store
	sweeper   *ArtifactSweeper
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewSaga(tx Transactor, repo Repository, ledger product.Ledger, artifacts artifact.Store,
	sweeper *ArtifactSweeper, m *metrics.Metrics, logger zerolog.Logger) *Saga {
	return &Saga{
		tx:        tx,
		repo:      repo,
		ledger:    ledger,
		artifacts: artifacts,
		sweeper:   sweeper,
		metrics:   m,
		logger:    logger,
	}
}

// Create schedules a new procedure, inserting its consumption rows in the
// same transaction when products are supplied. No artifacts are staged on
// create.
func (s *Saga) Create(ctx context.Context, treatmentID uuid.UUID, req CreateRequest) (*Detail, error) {
	if !validKind(req.Kind) {
		return nil, fmt.Errorf("%w: kind must be %q or %q", ErrInvalidInput, KindCosmetic, KindPodiatric)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.Products != nil {
		if err := validateItems(*req.Products); err != nil {
			return nil, err
		}
	}

	p := &Procedure{
		TreatmentID:     treatmentID,
		PractitionerID:  req.PractitionerID,
		Kind:            req.Kind,
		Code:            req.Code,
		Name:            req.Name,
		Area:            req.Area,
		ScheduledAt:     req.ScheduledAt,
		Recommendations: req.Recommendations,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		if req.Products != nil {
			return s.repo.ReplaceConsumedProducts(ctx, p.ID, *req.Products)
		}
		return nil
	})
	if err != nil {
		s.metrics.SagaOutcome("create", "failed")
		return nil, err
	}

	s.metrics.SagaOutcome("create", "committed")
	return s.repo.GetDetail(ctx, treatmentID, p.ID)
}

// Update applies partial field changes, staging any incoming attachments
// first and compensating them if the transaction fails. A nil Products
// pointer leaves existing consumption untouched; an empty slice clears it.
func (s *Saga) Update(ctx context.Context, treatmentID, procedureID uuid.UUID, req UpdateRequest, attachments []Attachment) (*Detail, error) {
	if req.Products != nil {
		if err := validateItems(*req.Products); err != nil {
			return nil, err
		}
	}

	run := s.newRun("update", procedureID)
	refs, err := run.stage(ctx, attachments)
	if err != nil {
		s.metrics.SagaOutcome("update", "failed")
		return nil, err
	}
	// A staged file beats a textual reference for the same field.
	if ref, ok := refs[FieldBeforeImage]; ok {
		req.BeforeImage = &ref
	}
	if ref, ok := refs[FieldAfterImage]; ok {
		req.AfterImage = &ref
	}

	err = run.inTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, treatmentID, procedureID, req); err != nil {
			return err
		}
		if req.Products != nil {
			return s.repo.ReplaceConsumedProducts(ctx, procedureID, *req.Products)
		}
		return nil
	})
	if err != nil {
		s.metrics.SagaOutcome("update", "failed")
		return nil, err
	}

	s.metrics.SagaOutcome("update", "committed")
	return s.repo.GetDetail(ctx, treatmentID, procedureID)
}

// Execute marks the procedure performed: stages attachments, then in one
// transaction applies the execution fields, replaces consumption rows when
// supplied, and decrements stock once per line item. Decrements clamp at
// zero and skip unknown products, so inventory bookkeeping never fails the
// clinical record.
func (s *Saga) Execute(ctx context.Context, treatmentID, procedureID uuid.UUID, req ExecuteRequest, attachments []Attachment) (*Detail, error) {
	if req.ConsumedProducts != nil {
		if err := validateItems(*req.ConsumedProducts); err != nil {
			return nil, err
		}
	}

	run := s.newRun("execute", procedureID)
	refs, err := run.stage(ctx, attachments)
	if err != nil {
		s.metrics.SagaOutcome("execute", "failed")
		return nil, err
	}
	if ref, ok := refs[FieldBeforeImage]; ok {
		req.BeforeImage = &ref
	}
	if ref, ok := refs[FieldAfterImage]; ok {
		req.AfterImage = &ref
	}

	exec := Execution{
		ExecutedAt:     time.Now().UTC(),
		PractitionerID: req.PractitionerID,
		Result:         req.Result,
		BeforeImage:    req.BeforeImage,
		AfterImage:     req.AfterImage,
	}
	if req.ExecutedAt != nil {
		exec.ExecutedAt = *req.ExecutedAt
	}

	err = run.inTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.ApplyExecution(ctx, treatmentID, procedureID, exec); err != nil {
			return err
		}
		if req.ConsumedProducts == nil {
			return nil
		}
		items := *req.ConsumedProducts
		if err := s.repo.ReplaceConsumedProducts(ctx, procedureID, items); err != nil {
			return err
		}
		for _, item := range items {
			if item.Quantity <= 0 {
				continue
			}
			if _, _, err := s.ledger.Decrement(ctx, item.ProductID, item.Quantity, procedureID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.SagaOutcome("execute", "failed")
		return nil, err
	}

	s.metrics.SagaOutcome("execute", "committed")
	return s.repo.GetDetail(ctx, treatmentID, procedureID)
}

// Get returns the full procedure detail.
func (s *Saga) Get(ctx context.Context, treatmentID, procedureID uuid.UUID) (*Detail, error) {
	return s.repo.GetDetail(ctx, treatmentID, procedureID)
}

// List pages through a treatment's procedures.
func (s *Saga) List(ctx context.Context, treatmentID uuid.UUID, limit, offset int) ([]*Procedure, int, error) {
	return s.repo.ListByTreatment(ctx, treatmentID, limit, offset)
}

func validateItems(items []ConsumedProductInput) error {
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return fmt.Errorf("%w: product_id is required", ErrInvalidInput)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Saga run state machine
// ---------------------------------------------------------------------------

// sagaRun tracks one request through its states and owns the staged paths so
// compensation is reached on every transaction exit other than commit.
type sagaRun struct {
	saga        *Saga
	operation   string
	procedureID uuid.UUID
	state       sagaState
	staged      []string
}

func (s *Saga) newRun(operation string, procedureID uuid.UUID) *sagaRun {
	return &sagaRun{
		saga:        s,
		operation:   operation,
		procedureID: procedureID,
		state:       stateStagingArtifacts,
	}
}

// stage writes each attachment to the blob store under a fresh candidate path
// and returns the resulting references keyed by field. A put failure aborts
// the request before any relational write begins; paths staged earlier in the
// same request are compensated immediately.
func (run *sagaRun) stage(ctx context.Context, attachments []Attachment) (map[string]string, error) {
	refs := make(map[string]string, len(attachments))
	for _, att := range attachments {
		key := path.Join("procedures", run.procedureID.String(),
			fmt.Sprintf("%s_%s%s", att.Field, uuid.New().String(), path.Ext(att.Filename)))

		ref, err := run.saga.artifacts.Put(ctx, key, att.Content, att.ContentType)
		if err != nil {
			run.fail(ctx)
			return nil, fmt.Errorf("staging %s: %w", att.Field, err)
		}
		run.staged = append(run.staged, key)
		run.saga.metrics.ArtifactStaged()
		refs[att.Field] = ref
	}
	return refs, nil
}

// inTransaction runs fn inside one relational transaction. Commit retains the
// staged artifacts; any other exit compensates them and returns the original
// error unchanged.
func (run *sagaRun) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	run.state = stateInTransaction
	if err := run.saga.tx.RunInTx(ctx, fn); err != nil {
		run.fail(ctx)
		return err
	}
	run.state = stateCommitted
	return nil
}

// fail moves the run to its terminal failed state, deleting every staged
// artifact on the way. Deletion failures are logged and handed to the sweeper
// for a later retry; they never change the error the caller sees.
func (run *sagaRun) fail(ctx context.Context) {
	if len(run.staged) > 0 {
		run.state = stateAborting
		for _, key := range run.staged {
			if err := run.saga.artifacts.Delete(ctx, key); err != nil {
				run.saga.metrics.CompensationFailure()
				run.saga.logger.Warn().
					Err(err).
					Str("operation", run.operation).
					Str("procedure_id", run.procedureID.String()).
					Str("path", key).
					Msg("compensation failed: staged artifact not deleted")
				if run.saga.sweeper != nil {
					run.saga.sweeper.Add(key)
				}
				continue
			}
			run.saga.metrics.ArtifactCompensated()
		}
		run.staged = nil
	}
	run.state = stateFailed
}
