package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurobot/internal/storage/status"
)

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := status.NewStore(filepath.Join(t.TempDir(), "status.json"), logger)
	return New(store, logger)
}

func runTimes(m *Monitor, total, failed int) {
	for i := 0; i < total; i++ {
		m.Start()
		m.Complete(i >= failed, 0, nil)
	}
}

func TestHealth_UnknownBeforeFirstRun(t *testing.T) {
	m := newTestMonitor(t)

	assert.Equal(t, "Unknown", m.Health(30*time.Minute))
}

func TestHealth_HighFailureRateIsUnhealthy(t *testing.T) {
	m := newTestMonitor(t)

	runTimes(m, 10, 4)

	assert.Equal(t, "Unhealthy - High error rate", m.Health(30*time.Minute))
}

func TestHealth_LowFailureRateIsHealthy(t *testing.T) {
	m := newTestMonitor(t)

	runTimes(m, 10, 1)

	assert.Equal(t, "Healthy", m.Health(30*time.Minute))
}

func TestHealth_StaleLastRunIsUnhealthy(t *testing.T) {
	m := newTestMonitor(t)

	started := time.Now()
	m.now = func() time.Time { return started }
	m.Start()
	m.Complete(true, 0, nil)

	m.now = func() time.Time { return started.Add(61 * time.Minute) }

	assert.Equal(t, "Unhealthy - Last run too long ago", m.Health(30*time.Minute))
}

func TestComplete_UpdatesCountersAndStatuses(t *testing.T) {
	m := newTestMonitor(t)

	m.Start()
	m.Complete(true, 3, map[string]string{"site": "OK (3 items)"})

	assert.Equal(t, 1, m.record.TotalRuns)
	assert.Equal(t, 1, m.record.SuccessfulRuns)
	assert.Equal(t, 0, m.record.FailedRuns)
	assert.Equal(t, 3, m.record.PostsCount)
	assert.Equal(t, "OK (3 items)", m.record.SourcesStatus["site"])
}

func TestComplete_MergesRunErrorsNewestFirst(t *testing.T) {
	m := newTestMonitor(t)

	m.Start()
	m.RecordError("old-source", "old error")
	m.Complete(false, 0, nil)

	m.Start()
	m.RecordError("new-source", "new error")
	m.Complete(false, 0, nil)

	require.Len(t, m.record.Errors, 2)
	assert.Equal(t, "new-source", m.record.Errors[0].Source)
	assert.Equal(t, "old-source", m.record.Errors[1].Source)
}

func TestComplete_CapsStoredErrors(t *testing.T) {
	m := newTestMonitor(t)

	m.Start()
	for i := 0; i < 60; i++ {
		m.RecordError("src", fmt.Sprintf("error %d", i))
	}
	m.Complete(false, 0, nil)

	assert.Len(t, m.record.Errors, maxStoredErrors)
}

func TestStart_ResetsRunErrorBuffer(t *testing.T) {
	m := newTestMonitor(t)

	m.Start()
	m.RecordError("src", "error from aborted run")

	m.Start()
	m.Complete(true, 0, nil)

	assert.Empty(t, m.record.Errors)
}

func TestStart_ReturnsUniqueRunIDs(t *testing.T) {
	m := newTestMonitor(t)

	first := m.Start()
	second := m.Start()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestRecordSurvivesRestart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	path := filepath.Join(t.TempDir(), "status.json")

	m := New(status.NewStore(path, logger), logger)
	runTimes(m, 3, 1)

	reloaded := New(status.NewStore(path, logger), logger)

	assert.Equal(t, 3, reloaded.record.TotalRuns)
	assert.Equal(t, 1, reloaded.record.FailedRuns)
}

func TestReport_ContainsSnapshot(t *testing.T) {
	m := newTestMonitor(t)

	m.Start()
	m.RecordError("flaky-site", "connection refused")
	m.Complete(false, 2, map[string]string{"flaky-site": "No data"})

	report := m.Report(30 * time.Minute)

	assert.Contains(t, report, "*Health:*")
	assert.Contains(t, report, "*Total runs:* 1")
	assert.Contains(t, report, "*Failed:* 1")
	assert.Contains(t, report, "*Posts made:* 2")
	assert.Contains(t, report, "- flaky-site: No data")
	assert.Contains(t, report, "connection refused")
}

func TestReport_ShowsAtMostFiveErrors(t *testing.T) {
	m := newTestMonitor(t)

	m.Start()
	for i := 0; i < 8; i++ {
		m.RecordError("src", fmt.Sprintf("error %d", i))
	}
	m.Complete(false, 0, nil)

	report := m.Report(30 * time.Minute)

	assert.Contains(t, report, "5. ")
	assert.NotContains(t, report, "6. ")
}
