package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthGrid_Shape(t *testing.T) {
	tests := []struct {
		name      string
		month     time.Time
		wantFirst time.Time
	}{
		{
			name:      "month starting on tuesday",
			month:     time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
			wantFirst: time.Date(2025, time.June, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "month starting on sunday",
			month:     time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC),
			wantFirst: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "february in a leap year",
			month:     time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
			wantFirst: time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := BuildMonthGrid(tt.month, nil, fixedNow)

			assert.Len(t, grid.Cells, GridCells)
			assert.Equal(t, time.Sunday, grid.Cells[0].Date.Weekday())
			assert.True(t, grid.Cells[0].Date.Equal(tt.wantFirst), "first cell %s", grid.Cells[0].Date)

			for i := 1; i < GridCells; i++ {
				assert.Equal(t, grid.Cells[i-1].Date.AddDate(0, 0, 1), grid.Cells[i].Date)
			}

			inMonth := 0
			for _, cell := range grid.Cells {
				if cell.InMonth {
					inMonth++
					assert.Equal(t, tt.month.Month(), cell.Date.Month())
				}
			}
			assert.Equal(t, StartOfMonth(tt.month).AddDate(0, 1, -1).Day(), inMonth)
		})
	}
}

func TestBuildMonthGrid_PlacesSchedulesByLocalDay(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	month := time.Date(2025, time.July, 1, 0, 0, 0, 0, seoul)

	// 23:30 UTC on the 15th is the morning of the 16th in Seoul
	late := Schedule{ID: "late", Title: "Call", Start: time.Date(2025, 7, 15, 23, 30, 0, 0, time.UTC)}
	second := Schedule{ID: "b", Title: "Second", Start: time.Date(2025, 7, 16, 14, 0, 0, 0, seoul)}
	first := Schedule{ID: "a", Title: "First", Start: time.Date(2025, 7, 16, 9, 0, 0, 0, seoul)}

	grid := BuildMonthGrid(month, []Schedule{second, late, first}, time.Date(2025, 7, 16, 12, 0, 0, 0, seoul))

	var found bool
	for _, cell := range grid.Cells {
		if cell.Date.Day() == 16 && cell.InMonth {
			found = true
			assert.True(t, cell.IsToday)
			assert.Equal(t, []string{"late", "a", "b"}, scheduleIDs(cell.Schedules))
			continue
		}
		assert.Empty(t, cell.Schedules, "day %s", cell.Date.Format("01-02"))
		assert.False(t, cell.IsToday)
	}
	assert.True(t, found)
}

func TestBuildMonthGrid_AdjacentMonthDays(t *testing.T) {
	month := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	june := Schedule{ID: "june", Start: time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)}

	grid := BuildMonthGrid(month, []Schedule{june}, fixedNow)
	require.False(t, grid.Cells[1].InMonth)
	assert.Equal(t, []string{"june"}, scheduleIDs(grid.Cells[1].Schedules))
}

func TestTodaySchedules(t *testing.T) {
	schedules := []Schedule{
		{ID: "later", Start: at(15, 16)},
		{ID: "yesterday", Start: at(14, 9)},
		{ID: "early", Start: at(15, 8)},
	}
	assert.Equal(t, []string{"early", "later"}, scheduleIDs(TodaySchedules(schedules, fixedNow)))
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "Standup", TruncateTitle("Standup"))
	assert.Equal(t, "Exactly8", TruncateTitle("Exactly8"))
	assert.Equal(t, "Dentist ...", TruncateTitle("Dentist appointment"))
	assert.Equal(t, "치과 예약 확인...", TruncateTitle("치과 예약 확인하기"))
}

func TestRenderMonth(t *testing.T) {
	style := CalendarStyle{Color: "#3b82f6", Border: "#1d4ed8", Icon: "👤"}
	var schedules []Schedule
	for i := 0; i < 5; i++ {
		schedules = append(schedules, Schedule{ID: string(rune('a' + i)), Title: "Busy", Start: at(9, 8+i), Style: style})
	}
	schedules = append(schedules, Schedule{ID: "x", Title: "Dentist appointment", Start: at(20, 11), Style: style})

	var buf bytes.Buffer
	require.NoError(t, RenderMonth(&buf, BuildMonthGrid(fixedNow, schedules, fixedNow)))
	out := buf.String()

	assert.Contains(t, out, "July 2025")
	assert.Contains(t, out, "Sun")
	assert.Contains(t, out, "Sat")
	assert.Contains(t, out, "Dentist ...")
	assert.NotContains(t, out, "Dentist appointment")
	assert.Contains(t, out, "+2 more")
	assert.Equal(t, 3, strings.Count(out, "Busy"))
}

func TestRenderToday(t *testing.T) {
	schedules := []Schedule{
		{ID: "1", Title: "Standup", Start: at(15, 9), CalendarName: "Work", Style: CalendarStyle{Icon: "💼"}},
		{ID: "2", Title: "Tomorrow", Start: at(16, 9)},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderToday(&buf, schedules, fixedNow))
	out := buf.String()
	assert.Contains(t, out, "09:00 - Standup")
	assert.Contains(t, out, "Work")
	assert.NotContains(t, out, "Tomorrow")

	buf.Reset()
	require.NoError(t, RenderToday(&buf, nil, fixedNow))
	assert.Contains(t, buf.String(), "No schedules today.")
}

func TestRenderScheduleDetail(t *testing.T) {
	s := Schedule{
		ID:         "s-4",
		Title:      "Team lunch",
		Start:      at(15, 12),
		End:        at(15, 13),
		Location:   "Cafeteria",
		Importance: 7,
		IsMine:     false,
		OwnerName:  "Kim",
		Tags:       []string{"team", "food"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderScheduleDetail(&buf, s))
	out := buf.String()
	assert.Contains(t, out, "Team lunch")
	assert.Contains(t, out, "Default calendar")
	assert.Contains(t, out, "1:00:00")
	assert.Contains(t, out, "Cafeteria")
	assert.Contains(t, out, "7/10")
	assert.Contains(t, out, "team, food")
	assert.Contains(t, out, "Kim")
	assert.NotContains(t, out, "Description:")
}
