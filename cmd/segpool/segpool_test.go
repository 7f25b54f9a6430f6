package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcdev/xylose-sub000/internal/workload"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return <-done, fnErr
}

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func resetGlobals() {
	quiet = false
	verbose = false
	jsonOut = false
	logJSON = false

	def := workload.DefaultConfig()
	stressConfig = ""
	stressOps = def.Ops
	stressWorkers = def.Workers
	stressSeed = def.Seed
	stressRatio = def.AllocRatio
	stressSegmentSize = def.SegmentSize
	stressNoOp = def.NoOpDealloc
	stressMapped = def.Mapped
	stressResetCapacity = def.ResetCapacity
	stressCheck = def.Check
	stressMetrics = false

	vectorCount = 10_000
	vectorSegmentSize = 0
	vectorEraseEvery = 0
	vectorSeed = 1
	vectorSort = false
	vectorMapped = false
}

func TestStressSettings(t *testing.T) {
	resetGlobals()
	path := filepath.Join(t.TempDir(), "w.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ops: 700\nworkers: 3\nseed: 9\n"), 0o644))

	stressConfig = path
	stressOps = 50
	stressWorkers = 8

	// Only flags that were set override the file.
	cfg, err := stressSettings(changedSet("ops"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Ops)
	assert.Equal(t, 3, cfg.Workers)
	assert.EqualValues(t, 9, cfg.Seed)

	stressRatio = 2
	_, err = stressSettings(changedSet("ratio"))
	require.ErrorIs(t, err, workload.ErrInvalidConfig)
}

func TestStressCommand(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		changed     []string
		wantContain []string
		wantJSON    bool
	}{
		{
			name:        "text report",
			setup:       func() { stressOps = 3000; stressSegmentSize = 64 },
			changed:     []string{"ops", "segment-size"},
			wantContain: []string{"Workload: 3000 ops", "Allocations:", "segments of 64", "Checks:"},
		},
		{
			name: "metrics",
			setup: func() {
				stressOps = 2000
				stressWorkers = 2
				stressMetrics = true
			},
			changed: []string{"ops", "workers"},
			wantContain: []string{
				"# TYPE segpool_live_objects gauge",
				`segpool_live_objects{mapped="false",mode="reclaim"`,
				"segpool_resets_total",
				`type="workload.Record"`,
			},
		},
		{
			name:        "json",
			setup:       func() { stressOps = 1000; stressNoOp = true; jsonOut = true },
			changed:     []string{"ops", "noop"},
			wantContain: []string{`"Allocs"`, `"NoOpDealloc": true`},
			wantJSON:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobals()
			tt.setup()

			output, err := captureOutput(t, func() error {
				return runStress(context.Background(), changedSet(tt.changed...))
			})
			require.NoError(t, err)

			if tt.wantJSON {
				var v map[string]any
				require.NoError(t, json.Unmarshal([]byte(output), &v))
			}
			for _, s := range tt.wantContain {
				assert.Contains(t, output, s)
			}
		})
	}
}

func TestVectorCommand(t *testing.T) {
	resetGlobals()
	vectorCount = 5000
	vectorSegmentSize = 100
	vectorEraseEvery = 2
	vectorSort = true
	jsonOut = true

	output, err := captureOutput(t, runVector)
	require.NoError(t, err)

	var rep VectorReport
	require.NoError(t, json.Unmarshal([]byte(output), &rep))
	assert.Equal(t, 5000, rep.Pushed)
	assert.Equal(t, rep.Pushed-rep.Erased, rep.Len)
	assert.True(t, rep.Sorted)
	assert.Equal(t, 100, rep.SegmentSize)
	assert.Equal(t, (rep.Len+99)/100, rep.Segments)
	assert.EqualValues(t, 1, rep.Min%2)
	assert.EqualValues(t, 1, rep.Max%2)
}

func TestVectorCommand_Mapped(t *testing.T) {
	resetGlobals()
	vectorCount = 2000
	vectorMapped = true

	output, err := captureOutput(t, runVector)
	require.NoError(t, err)
	assert.Contains(t, output, "Len:       2000")
	assert.Contains(t, output, "Mapped:")
}

func TestVectorCommand_BadCount(t *testing.T) {
	resetGlobals()
	vectorCount = -1
	_, err := captureOutput(t, runVector)
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	resetGlobals()
	output, err := captureOutput(t, func() error {
		versionCmd.Run(versionCmd, nil)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "segpool dev"))
}
