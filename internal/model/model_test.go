package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksWithStatuses(statuses ...TaskStatus) []Task {
	tasks := make([]Task, 0, len(statuses))
	for _, s := range statuses {
		tasks = append(tasks, Task{Status: s})
	}
	return tasks
}

func TestProjectProgressWithoutTasks(t *testing.T) {
	p := Project{}
	assert.Equal(t, 0.0, p.Progress())
}

func TestProjectProgressQuarterCompleted(t *testing.T) {
	p := Project{Tasks: tasksWithStatuses(TaskCompleted, TaskTodo, TaskInProgress, TaskBlocked)}
	assert.Equal(t, 25.0, p.Progress())
}

func TestProgressBounds(t *testing.T) {
	cases := []struct{ completed, total int }{
		{0, 0}, {0, 3}, {3, 3}, {5, 3}, {-1, 2}, {1, 7},
	}
	for _, tc := range cases {
		got := Progress(tc.completed, tc.total)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestProjectIsOverdue(t *testing.T) {
	today := NewDate(2026, time.March, 10)
	p := Project{}
	assert.False(t, p.IsOverdue(today))

	p.EstimatedCompletionDate = DatePtr(today)
	assert.False(t, p.IsOverdue(today), "same day is not overdue")

	p.EstimatedCompletionDate = DatePtr(today.AddDays(-1))
	assert.True(t, p.IsOverdue(today))
}

func TestTaskIsOverdue(t *testing.T) {
	today := NewDate(2026, time.March, 10)
	task := Task{Status: TaskInProgress, DueDate: DatePtr(today.AddDays(-2))}
	assert.True(t, task.IsOverdue(today))

	task.Status = TaskCompleted
	assert.False(t, task.IsOverdue(today))

	task.Status = TaskTodo
	task.DueDate = nil
	assert.False(t, task.IsOverdue(today))
}

func TestEnumsValidate(t *testing.T) {
	assert.True(t, ProjectOnHold.Valid())
	assert.False(t, ProjectStatus("DONE").Valid())
	assert.True(t, TaskReview.Valid())
	assert.Equal(t, "Under Review", TaskReview.Label())
	assert.False(t, Priority("URGENT").Valid())
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Due   *Date `json:"due"`
		Start *Date `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2026-01-31","start":null}`), &payload))
	require.NotNil(t, payload.Due)
	assert.Equal(t, "2026-01-31", payload.Due.String())
	assert.Nil(t, payload.Start)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2026-01-31","start":null}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"due":"31/01/2026"}`), &payload))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-02-03", d.String())
	require.NoError(t, d.Scan("2026-02-04"))
	assert.Equal(t, "2026-02-04", d.String())
	require.NoError(t, d.Scan([]byte("2026-02-05T00:00:00Z")))
	assert.Equal(t, "2026-02-05", d.String())
}

func TestDecimalParseAndFormat(t *testing.T) {
	d, err := ParseDecimal("10000")
	require.NoError(t, err)
	assert.Equal(t, "10000.00", d.String())

	d, err = ParseDecimal("16.5")
	require.NoError(t, err)
	assert.Equal(t, Decimal(1650), d)

	_, err = ParseDecimal("1.234")
	require.Error(t, err)
	_, err = ParseDecimal("abc")
	require.Error(t, err)

	assert.Equal(t, "-3.05", Decimal(-305).String())
	assert.Equal(t, 5, Decimal(1234567).Digits())
}

func TestDecimalJSONAcceptsNumbers(t *testing.T) {
	var payload struct {
		Budget *Decimal `json:"budget"`
		Spend  Decimal  `json:"spend"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"budget":"10000.00","spend":12.5}`), &payload))
	require.NotNil(t, payload.Budget)
	assert.Equal(t, Decimal(1000000), *payload.Budget)
	assert.Equal(t, Decimal(1250), payload.Spend)
}

func TestDecimalScan(t *testing.T) {
	var d Decimal
	require.NoError(t, d.Scan(int64(42)))
	assert.Equal(t, Decimal(4200), d)
	require.NoError(t, d.Scan(3.14))
	assert.Equal(t, Decimal(314), d)
	require.NoError(t, d.Scan("7.50"))
	assert.Equal(t, Decimal(750), d)
}

func TestDecimalRejectsHugeAmounts(t *testing.T) {
	for _, in := range []string{"1e30", "-1e30", "92233720368547758.07", "10000000000000"} {
		_, err := ParseDecimal(in)
		require.Error(t, err, in)
		assert.Equal(t, "Ensure that there are no more than 13 digits before the decimal point.", err.Error(), in)
	}

	d, err := ParseDecimal("9999999999999.99")
	require.NoError(t, err)
	assert.Equal(t, Decimal(999999999999999), d)

	var payload struct {
		Budget Decimal `json:"budget"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"budget":1e30}`), &payload))
	assert.Zero(t, payload.Budget)

	assert.Equal(t, Decimal(math.MaxInt64), DecimalFromFloat(1e30))
	assert.Equal(t, Decimal(math.MinInt64), DecimalFromFloat(-1e30))
	assert.Equal(t, 17, DecimalFromFloat(1e30).Digits())
}

func TestUserDisplayName(t *testing.T) {
	u := User{Username: "jdoe"}
	assert.Equal(t, "jdoe", u.DisplayName())
	u.FirstName = "Jane"
	u.LastName = "Doe"
	assert.Equal(t, "Jane", u.DisplayName())
	assert.Equal(t, "Jane Doe", u.FullName())
}
