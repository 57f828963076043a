package ports

import (
	"context"

	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

// TriggerUseCase is the driving port for one trigger run.
type TriggerUseCase interface {
	Execute(ctx context.Context, run domain.Run) (domain.Outcome, error)
}
