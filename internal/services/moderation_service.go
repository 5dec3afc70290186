// Package services: ModerationService
//
// This file implements the moderation workflow: creators submit films for
// review, admins approve or reject them. Reviews are guarded state
// transitions driven through the idempotent executor, keyed by the
// moderation request ID, so a double-submitted review decision lands on the
// same transaction record instead of flipping the request twice. Approved
// and rejected are terminal; nothing transitions out of them.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/repo"
)

// TransactionKindModeration tags executor records created by reviews.
const TransactionKindModeration = "moderation"

// ModerationService implements the use-cases around moderation requests.
type ModerationService struct {
	// DB is the database handle used for all moderation operations.
	DB *gorm.DB
	// Guard authorizes submissions and reviews.
	Guard *Guard
	// Executor applies review transitions exactly once per request.
	Executor *Executor
	// Notifier tells the submitter about the outcome (best effort).
	Notifier *Notifier
	// TitleMaxLen caps stored film titles by rune length.
	TitleMaxLen int
}

// NewModerationService constructs a ModerationService with sane defaults.
func NewModerationService(db *gorm.DB, guard *Guard, exec *Executor, notifier *Notifier) *ModerationService {
	return &ModerationService{
		DB:          db,
		Guard:       guard,
		Executor:    exec,
		Notifier:    notifier,
		TitleMaxLen: 255,
	}
}

// Submit creates a pending moderation request for caller's film.
func (s *ModerationService) Submit(ctx context.Context, caller *domain.Identity, filmTitle string) (*domain.ModerationRequest, error) {
	if err := s.Guard.Authorize(ctx, caller, ActionSubmitModeration); err != nil {
		return nil, err
	}
	filmTitle = strings.TrimSpace(filmTitle)
	if filmTitle == "" {
		filmTitle = "Untitled"
	}
	if r := []rune(filmTitle); s.TitleMaxLen > 0 && len(r) > s.TitleMaxLen {
		filmTitle = string(r[:s.TitleMaxLen])
	}
	return repo.CreateModerationRequest(ctx, s.DB, caller.ID, filmTitle)
}

// ListPage returns a page of the pending review queue and the total count.
// It applies defaults for invalid page/pageSize.
func (s *ModerationService) ListPage(ctx context.Context, caller *domain.Identity, page, pageSize int) ([]domain.ModerationRequest, int64, error) {
	if err := s.Guard.Authorize(ctx, caller, ActionListModeration); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountModerationRequests(ctx, s.DB, domain.ModerationPending)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ModerationRequest{}, 0, nil
	}

	items, err := repo.ListModerationRequestsPage(ctx, s.DB, domain.ModerationPending, offset, pageSize)
	return items, total, err
}

// Review moves requestID to approved or rejected on behalf of caller.
//
// Semantics:
//   - The request must exist; otherwise ErrModerationNotFound.
//   - The request must be pending; approved and rejected are terminal and
//     yield ErrModerationReviewed.
//   - The caller must pass the guard for the matching action.
//   - The transition itself runs through the executor keyed by the request
//     ID, so concurrent reviews of one request settle to exactly one
//     applied transition; the loser sees ErrTransactionInFlight or an
//     idempotent replay of the winner's record.
//
// On success the submitter is notified of the outcome.
func (s *ModerationService) Review(ctx context.Context, caller *domain.Identity, requestID string, approve bool, reason string) (*domain.ModerationRequest, error) {
	req, err := repo.GetModerationRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModerationNotFound
		}
		return nil, err
	}

	next := domain.ModerationApproved
	action := ActionApproveModeration
	event := EventModerationApproved
	if !approve {
		next = domain.ModerationRejected
		action = ActionRejectModeration
		event = EventModerationRejected
	}

	if !req.CanTransition(next) {
		return nil, ErrModerationReviewed
	}
	if err := s.Guard.Authorize(ctx, caller, action); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, replayed, err := s.Executor.Apply(ctx, "moderation:"+requestID, TransactionKindModeration, func(tx *gorm.DB) error {
		err := repo.ReviewModerationRequest(ctx, tx, requestID, next, caller.ID, reason, now)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Reviewed between our read and the transition.
			return ErrModerationReviewed
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTransitionFailed) && strings.Contains(err.Error(), ErrModerationReviewed.Error()) {
			return nil, ErrModerationReviewed
		}
		return nil, err
	}

	if !replayed {
		s.Notifier.Notify(req.IdentityID, event, map[string]string{
			"film_title": req.FilmTitle,
			"reason":     reason,
		})
	}

	return repo.GetModerationRequest(ctx, s.DB, requestID)
}
