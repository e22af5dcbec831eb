package queue

import (
	"testing"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []*models.QueueItem) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func seedFilterQueue(t *testing.T) *Manager {
	t.Helper()
	m, _ := newTestManager(t)

	items := []*models.QueueItem{
		{ID: "fall", Type: models.ItemTypeAlert, Category: "fall", Severity: models.SeverityUrgent, Title: "Fall detected", DueAt: testNow},
		{ID: "meds", Type: models.ItemTypeMedication, Severity: models.SeverityHigh, Title: "Verify medication dose: Lisinopril", DueAt: testNow.Add(30 * time.Minute), AssigneeID: "me"},
		{ID: "memory", Type: models.ItemTypeTask, Severity: models.SeverityMedium, Title: "Memory exercise session", DueAt: testNow.Add(3 * 24 * time.Hour)},
		{ID: "groceries", Type: models.ItemTypeTask, Severity: models.SeverityLow, Title: "Buy groceries", DueAt: testNow.Add(4 * time.Hour), AssigneeID: "me"},
		{ID: "late", Type: models.ItemTypeCheckIn, Severity: models.SeverityLow, Title: "Wellness check-in", DueAt: testNow.Add(-2 * time.Hour)},
	}
	for _, item := range items {
		require.NoError(t, m.AddItem(item))
	}
	return m
}

func TestGetFilteredItems_SortOrder(t *testing.T) {
	m := seedFilterQueue(t)

	all := m.GetFilteredItems(models.QueueFilters{}, "")
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Priority, all[i].Priority)
	}
	assert.Equal(t, "fall", all[0].ID)
}

func TestGetFilteredItems_Filters(t *testing.T) {
	m := seedFilterQueue(t)

	tests := []struct {
		name    string
		filters models.QueueFilters
		actor   string
		want    []string
	}{
		{"urgent only", models.QueueFilters{UrgentOnly: true}, "", []string{"fall"}},
		{"assigned to me", models.QueueFilters{AssignedToMe: true}, "me", []string{"meds", "groceries"}},
		{"assigned to me without actor", models.QueueFilters{AssignedToMe: true}, "", nil},
		{"by type", models.QueueFilters{Types: []models.ItemType{models.ItemTypeTask}}, "", []string{"memory", "groceries"}},
		{"medication category", models.QueueFilters{Categories: []string{"medication"}}, "", []string{"meds"}},
		{"cognitive category", models.QueueFilters{Categories: []string{"cognitive"}}, "", []string{"memory"}},
		{"safety category", models.QueueFilters{Categories: []string{"safety"}}, "", []string{"fall"}},
		{"and semantics", models.QueueFilters{AssignedToMe: true, Types: []models.ItemType{models.ItemTypeTask}}, "me", []string{"groceries"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.GetFilteredItems(tt.filters, tt.actor)
			assert.ElementsMatch(t, tt.want, ids(got))
		})
	}
}

func TestGetFilteredItems_DueTodayIncludesOverdue(t *testing.T) {
	m := seedFilterQueue(t)
	got := m.GetFilteredItems(models.QueueFilters{DueToday: true}, "")
	assert.ElementsMatch(t, []string{"fall", "meds", "groceries", "late"}, ids(got))
}

func TestGetFilteredItems_ExcludesCompleted(t *testing.T) {
	m := seedFilterQueue(t)
	_, err := m.TransitionStatus("groceries", models.StatusInProgress)
	require.NoError(t, err)
	_, err = m.TransitionStatus("groceries", models.StatusCompleted)
	require.NoError(t, err)

	assert.NotContains(t, ids(m.GetFilteredItems(models.QueueFilters{}, "")), "groceries")
	assert.Contains(t, ids(m.Items()), "groceries")
}

func TestLessItems_TieBreakers(t *testing.T) {
	a := &models.QueueItem{ID: "a", Priority: 50, Severity: models.SeverityHigh, DueAt: testNow}
	b := &models.QueueItem{ID: "b", Priority: 50, Severity: models.SeverityMedium, DueAt: testNow}
	assert.True(t, lessItems(a, b))

	c := &models.QueueItem{ID: "c", Priority: 50, Severity: models.SeverityHigh, DueAt: testNow.Add(time.Hour)}
	assert.True(t, lessItems(a, c))

	d := &models.QueueItem{ID: "d", Priority: 50, Severity: models.SeverityHigh}
	assert.True(t, lessItems(c, d))
	assert.False(t, lessItems(d, c))
}
