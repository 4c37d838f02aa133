package syncer

import "time"

// WorkUnit is one independently fetchable item in a sync run, usually a
// player or fixture id paired with the cursor to fetch from.
type WorkUnit struct {
	ID     string
	Cursor time.Time
}

// PlanMode selects how a run's work units are executed.
type PlanMode string

const (
	// ModeSequential processes batches one after another on the calling
	// goroutine.
	ModeSequential PlanMode = "sequential"

	// ModeFanout splits the units into shards processed concurrently.
	ModeFanout PlanMode = "fanout"
)

// PlanOptions tunes how work units are grouped for execution.
type PlanOptions struct {
	// BatchSize is the number of units processed between pauses in
	// sequential mode.
	BatchSize int

	// FanoutThreshold is the unit count above which a run switches from
	// sequential batches to concurrent shards.
	FanoutThreshold int

	// ShardSize is the number of units per concurrent shard in fan-out
	// mode.
	ShardSize int

	// InterBatchDelay is the pause between sequential batches, giving the
	// upstream API room to breathe.
	InterBatchDelay time.Duration
}

// DefaultPlanOptions returns the planner defaults.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		BatchSize:       5,
		FanoutThreshold: 20,
		ShardSize:       10,
		InterBatchDelay: time.Second,
	}
}

// Plan is the execution layout for one run: either sequential batches or
// concurrent shards, never both.
type Plan struct {
	Mode    PlanMode
	Batches [][]WorkUnit
	Shards  [][]WorkUnit
}

// Units returns the total number of work units in the plan.
func (p *Plan) Units() int {
	total := 0
	for _, b := range p.Batches {
		total += len(b)
	}
	for _, s := range p.Shards {
		total += len(s)
	}
	return total
}

// BuildPlan lays out units for execution. At or below the fan-out threshold
// the units are chunked into sequential batches; above it they are chunked
// into shards for concurrent execution. A trailing partial chunk is kept.
func BuildPlan(units []WorkUnit, opts PlanOptions) *Plan {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultPlanOptions().BatchSize
	}
	if opts.ShardSize <= 0 {
		opts.ShardSize = DefaultPlanOptions().ShardSize
	}
	if opts.FanoutThreshold <= 0 {
		opts.FanoutThreshold = DefaultPlanOptions().FanoutThreshold
	}

	if len(units) > opts.FanoutThreshold {
		return &Plan{
			Mode:   ModeFanout,
			Shards: chunk(units, opts.ShardSize),
		}
	}

	return &Plan{
		Mode:    ModeSequential,
		Batches: chunk(units, opts.BatchSize),
	}
}

func chunk(units []WorkUnit, size int) [][]WorkUnit {
	if len(units) == 0 {
		return nil
	}

	chunks := make([][]WorkUnit, 0, (len(units)+size-1)/size)
	for start := 0; start < len(units); start += size {
		end := start + size
		if end > len(units) {
			end = len(units)
		}
		chunks = append(chunks, units[start:end])
	}
	return chunks
}
