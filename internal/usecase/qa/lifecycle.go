package qa

import (
	"go.uber.org/zap"

	domqa "github.com/kailas-cloud/unihelp/internal/domain/qa"
)

// lifecycle tracks one question through its states.
type lifecycle struct {
	state  domqa.State
	logger *zap.Logger
}

func newLifecycle(logger *zap.Logger) *lifecycle {
	logger.Debug("Question state", zap.String("state", string(domqa.Received)))
	return &lifecycle{state: domqa.Received, logger: logger}
}

func (l *lifecycle) advance(to domqa.State) {
	if !domqa.CanTransition(l.state, to) {
		l.logger.Error("Illegal question state transition",
			zap.String("from", string(l.state)),
			zap.String("to", string(to)),
		)
	}
	l.logger.Debug("Question state",
		zap.String("from", string(l.state)),
		zap.String("state", string(to)),
	)
	l.state = to
}
