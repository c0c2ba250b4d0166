package sdk

import (
	"context"
	"time"

	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
)

// Hooks allows callers to observe run lifecycle and persistence behavior.
// OnEvent runs on the draining goroutine and must not block.
type Hooks struct {
	OnRunStart   func(ctx context.Context, runID string, req droid.Request)
	OnEvent      func(ctx context.Context, runID string, evt droid.Event)
	OnRunEnd     func(ctx context.Context, runID string, res *droid.Result, err error, elapsed time.Duration)
	OnStoreError func(ctx context.Context, runID string, evt executor.Event, err error)
}
