package faq

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Public lists answered questions, newest first.
func (s *Service) Public(ctx context.Context, limit, offset int) ([]*FAQ, int, error) {
	answered := true
	items, total, err := s.repo.List(ctx, Filter{Answered: &answered}, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "faq")
	}
	return items, total, nil
}

// Submit records a question. pr is nil for anonymous visitors.
func (s *Service) Submit(ctx context.Context, pr *auth.Principal, in SubmitInput) (*FAQ, error) {
	q := strings.TrimSpace(in.Question)
	if q == "" {
		return nil, apperr.Required("question")
	}
	f := &FAQ{Question: q}
	if pr != nil {
		id := pr.UserID
		f.AskedBy = &id
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, apperr.Wrap(err, "faq")
	}
	s.logger.Info().Str("faq_id", f.ID.String()).Bool("anonymous", pr == nil).Msg("faq question submitted")
	return f, nil
}

func (s *Service) List(ctx context.Context, pr auth.Principal, f Filter, limit, offset int) ([]*FAQ, int, error) {
	if !auth.Can(pr.Role, auth.ActionFAQListAll) {
		return nil, 0, auth.Forbidden(auth.ActionFAQListAll)
	}
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "faq")
	}
	return items, total, nil
}

// Answer sets or replaces the answer. Re-answering is allowed and moves answeredAt.
func (s *Service) Answer(ctx context.Context, pr auth.Principal, id uuid.UUID, in AnswerInput) (*FAQ, error) {
	if !auth.Can(pr.Role, auth.ActionFAQAnswer) {
		return nil, auth.Forbidden(auth.ActionFAQAnswer)
	}
	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return nil, apperr.Required("answer")
	}
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "faq")
	}
	now := s.now().UTC()
	by := pr.UserID
	f.Answer = &answer
	f.AnsweredBy = &by
	f.AnsweredAt = &now
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, apperr.Wrap(err, "faq")
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, pr auth.Principal, id uuid.UUID) error {
	if !auth.Can(pr.Role, auth.ActionFAQDelete) {
		return auth.Forbidden(auth.ActionFAQDelete)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "faq")
	}
	return nil
}
