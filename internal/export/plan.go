package export

import (
	"time"

	"github.com/fulmenhq/chatporter/internal/render"
)

// StepKind identifies a pipeline step.
type StepKind string

const (
	StepRawArchive StepKind = "raw-archive"
	StepSidecar    StepKind = "sidecar"
	StepHTMLMax    StepKind = "html-max"
	StepHTMLMid    StepKind = "html-mid"
	StepHTMLMin    StepKind = "html-min"
	StepMarkdown   StepKind = "markdown"
)

// StepState tracks a step through its lifecycle.
type StepState string

const (
	StatePending   StepState = "pending"
	StateRunning   StepState = "running"
	StateDone      StepState = "done"
	StateFailed    StepState = "failed"
	StateCancelled StepState = "cancelled"
)

// Step is one unit of the run plan. A step stages one or more artifacts
// and publishes them together before the next step starts.
type Step struct {
	Kind StepKind

	// Artifacts rendered by this step, in publish order. Empty for the
	// raw-archive step, which stages via tree copy instead of a renderer.
	Artifacts []render.Kind
}

// StepProgress is the externally visible record of one step's execution.
type StepProgress struct {
	Kind      StepKind      `json:"kind"`
	State     StepState     `json:"state"`
	StartedAt time.Time     `json:"started_at,omitzero"`
	Duration  time.Duration `json:"duration"`
	Err       string        `json:"error,omitempty"`
}

// RunPlan is the ordered list of steps a run will execute. The order is
// fixed: the raw archive and sidecar land before any variant that
// references them.
type RunPlan struct {
	Steps []Step
}

// BuildRunPlan maps an artifact selection onto the fixed step order.
func BuildRunPlan(sel ArtifactSelection) *RunPlan {
	plan := &RunPlan{}
	if sel.RawArchive {
		plan.Steps = append(plan.Steps, Step{Kind: StepRawArchive})
	}
	if sel.Sidecar {
		plan.Steps = append(plan.Steps, Step{
			Kind:      StepSidecar,
			Artifacts: []render.Kind{render.KindSidecarAssets, render.KindSidecarHTML},
		})
	}
	if sel.HTMLMax {
		plan.Steps = append(plan.Steps, Step{Kind: StepHTMLMax, Artifacts: []render.Kind{render.KindHTMLMax}})
	}
	if sel.HTMLMid {
		plan.Steps = append(plan.Steps, Step{Kind: StepHTMLMid, Artifacts: []render.Kind{render.KindHTMLMid}})
	}
	if sel.HTMLMin {
		plan.Steps = append(plan.Steps, Step{Kind: StepHTMLMin, Artifacts: []render.Kind{render.KindHTMLMin}})
	}
	if sel.Markdown {
		plan.Steps = append(plan.Steps, Step{Kind: StepMarkdown, Artifacts: []render.Kind{render.KindMarkdown}})
	}
	return plan
}
