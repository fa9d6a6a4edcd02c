package model

// OverallStatus is the rollup of a batch of jobs. "completed" requires every
// member succeeded, "failed" requires every member failed, "mixed" is any
// other all-terminal combination; anything else is still in progress.
type OverallStatus string

const (
	OverallInProgress OverallStatus = "in_progress"
	OverallCompleted  OverallStatus = "completed"
	OverallFailed     OverallStatus = "failed"
	OverallMixed      OverallStatus = "mixed"
)

// BatchSummary is a pure function of current member states; it is recomputed
// on every poll tick, never patched incrementally.
type BatchSummary struct {
	Total     int
	Pending   int
	Running   int
	Succeeded int
	Failed    int
	Overall   OverallStatus
}

// TaskAggregator tracks a set of JobHandles submitted as one batch.
type TaskAggregator struct {
	BatchID string
	ids     []string
	members map[string]*JobHandle
}

func NewTaskAggregator(batchID string, handles []*JobHandle) *TaskAggregator {
	a := &TaskAggregator{BatchID: batchID, members: make(map[string]*JobHandle, len(handles))}
	for _, h := range handles {
		if h == nil {
			continue
		}
		a.ids = append(a.ids, h.ID)
		a.members[h.ID] = h
	}
	return a
}

func (a *TaskAggregator) Member(id string) *JobHandle { return a.members[id] }

func (a *TaskAggregator) MemberIDs() []string {
	return append([]string(nil), a.ids...)
}

// Done reports whether every member reached a terminal state. This is the
// universal stop condition for aggregate polling: mixed batches stop too.
func (a *TaskAggregator) Done() bool {
	for _, h := range a.members {
		if !h.State.Terminal() {
			return false
		}
	}
	return true
}

func (a *TaskAggregator) Summary() BatchSummary {
	s := BatchSummary{Total: len(a.ids)}
	for _, h := range a.members {
		switch h.State {
		case JobStatePending:
			s.Pending++
		case JobStateRunning:
			s.Running++
		case JobStateSucceeded:
			s.Succeeded++
		case JobStateFailed:
			s.Failed++
		}
	}
	switch {
	case s.Succeeded == s.Total:
		s.Overall = OverallCompleted
	case s.Failed == s.Total && s.Total > 0:
		s.Overall = OverallFailed
	case s.Succeeded+s.Failed == s.Total:
		s.Overall = OverallMixed
	default:
		s.Overall = OverallInProgress
	}
	return s
}
