package history

import "context"

type Store interface {
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id string) (RunDetail, error)
}
