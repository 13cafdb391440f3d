package history

import (
	"context"
	"strings"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) Show(ctx context.Context, id string) (RunDetail, error) {
	if s.store == nil {
		return RunDetail{}, ErrJournalDisabled
	}
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return RunDetail{}, ErrRunIDRequired
	}
	return s.store.GetRun(ctx, id)
}
