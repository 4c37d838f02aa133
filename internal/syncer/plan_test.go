package syncer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeUnits(n int) []WorkUnit {
	units := make([]WorkUnit, n)
	for i := range units {
		units[i] = WorkUnit{ID: fmt.Sprintf("unit-%02d", i)}
	}
	return units
}

func TestBuildPlan_SequentialBelowThreshold(t *testing.T) {
	plan := BuildPlan(makeUnits(15), DefaultPlanOptions())

	assert.Equal(t, ModeSequential, plan.Mode)
	require.Len(t, plan.Batches, 3)
	for _, batch := range plan.Batches {
		assert.Len(t, batch, 5)
	}
	assert.Empty(t, plan.Shards)
	assert.Equal(t, 15, plan.Units())
}

func TestBuildPlan_FanoutAboveThreshold(t *testing.T) {
	plan := BuildPlan(makeUnits(25), DefaultPlanOptions())

	assert.Equal(t, ModeFanout, plan.Mode)
	require.Len(t, plan.Shards, 3)
	assert.Len(t, plan.Shards[0], 10)
	assert.Len(t, plan.Shards[1], 10)
	assert.Len(t, plan.Shards[2], 5, "trailing partial shard is kept as-is")
	assert.Empty(t, plan.Batches)
}

func TestBuildPlan_PartialBatchKept(t *testing.T) {
	plan := BuildPlan(makeUnits(7), DefaultPlanOptions())

	require.Len(t, plan.Batches, 2)
	assert.Len(t, plan.Batches[0], 5)
	assert.Len(t, plan.Batches[1], 2)
}

func TestBuildPlan_ExactThresholdStaysSequential(t *testing.T) {
	plan := BuildPlan(makeUnits(20), DefaultPlanOptions())

	// Fan-out kicks in only past the threshold; a run of exactly threshold
	// size keeps the sequential batching and its inter-batch pauses.
	assert.Equal(t, ModeSequential, plan.Mode)
	require.Len(t, plan.Batches, 4)
	assert.Empty(t, plan.Shards)

	plan = BuildPlan(makeUnits(21), DefaultPlanOptions())
	assert.Equal(t, ModeFanout, plan.Mode)
}

func TestBuildPlan_OrderPreserved(t *testing.T) {
	units := makeUnits(12)
	plan := BuildPlan(units, DefaultPlanOptions())

	var flat []WorkUnit
	for _, batch := range plan.Batches {
		flat = append(flat, batch...)
	}
	assert.Equal(t, units, flat)
}

func TestBuildPlan_Empty(t *testing.T) {
	plan := BuildPlan(nil, DefaultPlanOptions())

	assert.Equal(t, ModeSequential, plan.Mode)
	assert.Empty(t, plan.Batches)
	assert.Zero(t, plan.Units())
}

func TestBuildPlan_ZeroOptionsFallBackToDefaults(t *testing.T) {
	plan := BuildPlan(makeUnits(25), PlanOptions{})

	assert.Equal(t, ModeFanout, plan.Mode)
	require.Len(t, plan.Shards, 3)
}
