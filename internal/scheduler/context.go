package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// newRunContext builds the pipeline context for one scheduled dispatch. Each
// trigger gets a fresh run id; the schedule's identity and the trigger time
// ride along as metadata for operators that care.
func newRunContext(graphName string, sched *schedule.Schedule, triggeredAt time.Time) *asset.PipelineContext {
	pctx := asset.NewPipelineContext(graphName, uuid.NewString())
	pctx.SetMetadata("schedule_id", sched.ID)
	pctx.SetMetadata("schedule_name", sched.Name)
	pctx.SetMetadata("triggered_at", triggeredAt.UTC().Format(time.RFC3339))
	return pctx
}
