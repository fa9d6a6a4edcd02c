package poll

import (
	"context"

	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
	"competitor-ad-studio/internal/infra/metrics"
)

// FetchFunc fetches the current backend status for one job.
type FetchFunc func(ctx context.Context) (adapter.JobStatus, error)

// HandleFunc observes a JobHandle after a tick mutated it.
type HandleFunc func(h *model.JobHandle)

// ApplyStatus folds a backend-reported status into a handle, honoring the
// monotonic transition rules. A stale report that would regress the state is
// ignored.
func ApplyStatus(h *model.JobHandle, st adapter.JobStatus) error {
	switch st.State {
	case model.JobStateSucceeded:
		return h.Succeed(st.ResultURL)
	case model.JobStateFailed:
		msg := st.Error
		if msg == "" {
			msg = "job failed"
		}
		return h.Fail(msg)
	case model.JobStateRunning:
		return h.Advance(model.JobStateRunning)
	case model.JobStatePending:
		return nil
	default:
		return h.Advance(st.State)
	}
}

// JobTick adapts a JobHandle plus a status fetch into a TickFunc.
//
// Fetch failures are transient: logged and retried on the next tick. A
// definitive transport error instead synthesizes a failed state so the loop
// does not retry silently forever. The tick that observes a terminal state
// invokes onTick then onTerminal and reports done.
func JobTick(h *model.JobHandle, fetch FetchFunc, onTick, onTerminal HandleFunc, log *zerolog.Logger) TickFunc {
	return func(ctx context.Context) bool {
		st, err := fetch(ctx)
		if err != nil {
			if adapter.IsDefinitive(err) {
				metrics.IncPollTransportError("definitive")
				log.Error().Err(err).Str("job_id", h.ID).Msg("definitive transport error, failing job")
				_ = h.Fail(err.Error())
				if onTick != nil {
					onTick(h)
				}
				if onTerminal != nil {
					onTerminal(h)
				}
				return true
			}
			metrics.IncPollTransportError("transient")
			log.Warn().Err(err).Str("job_id", h.ID).Msg("transient poll failure, will retry")
			return false
		}

		if err := ApplyStatus(h, st); err != nil {
			log.Warn().Err(err).
				Str("job_id", h.ID).
				Str("reported", string(st.State)).
				Str("current", string(h.State)).
				Msg("ignoring stale status report")
		}
		if onTick != nil {
			onTick(h)
		}
		if h.State.Terminal() {
			if onTerminal != nil {
				onTerminal(h)
			}
			return true
		}
		return false
	}
}
