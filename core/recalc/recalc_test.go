package recalc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/travel"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

type fakeEstimator struct {
	mu        sync.Mutex
	minutes   map[string]int
	lookups   int
	prefetch  int
	lastRoute []travel.Route
}

func (f *fakeEstimator) Lookup(_ context.Context, from, to *model.Location, _ model.TravelMode) travel.Estimate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if from == nil || to == nil || from.Key() == to.Key() {
		return travel.Estimate{Source: travel.SourceNone}
	}
	return travel.Estimate{Minutes: f.minutes[from.Key()+">"+to.Key()], Source: travel.SourceCache}
}

func (f *fakeEstimator) Prefetch(_ context.Context, routes []travel.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetch++
	f.lastRoute = routes
	return nil
}

func loc(a string) *model.Location {
	return &model.Location{Kind: model.LocationAddress, Address: a}
}

func at(title, start, end string, l *model.Location) model.TimeBlock {
	return model.TimeBlock{
		Title:    title,
		Days:     model.NewDaySet(time.Monday),
		Start:    model.MustClock(start),
		End:      model.MustClock(end),
		Location: l,
	}
}

var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func TestRecalculateDayIsIdempotent(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{"home>academy": 25}}
	r := New(Config{}, est, nil, nil, nil)
	ctx := context.Background()

	first := r.RecalculateDay(ctx, monday, []model.TimeBlock{at("Academy", "14:00", "15:00", loc("Academy"))}, loc("Home"), model.TravelDriving)
	require.Len(t, first.Entries, 1)
	assert.Equal(t, "13:35", first.Entries[0].ActualStart.String())
	assert.Equal(t, 25, first.Entries[0].TravelBefore)

	b := first.Entries[0].Block
	assert.True(t, b.Adjusted)
	assert.Equal(t, model.MustClock("14:00"), b.OriginalStart)
	assert.Equal(t, model.MustClock("14:00"), b.Start, "semantic start is not mutated")

	second := r.RecalculateDay(ctx, monday, first.Blocks(), loc("Home"), model.TravelDriving)
	assert.Equal(t, "13:35", second.Entries[0].ActualStart.String())
	assert.Equal(t, model.MustClock("14:00"), second.Entries[0].Block.OriginalStart)
}

func TestRecalculateDayOrdersAndChainsLocations(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{
		"home>school":  20,
		"school>piano": 10,
	}}
	bus := eventbus.New()
	ch := bus.Subscribe()
	r := New(Config{}, est, nil, nil, bus)

	blocks := []model.TimeBlock{
		at("Piano", "16:00", "17:00", loc("Piano")),
		at("Snack", "15:00", "15:30", nil),
		at("School", "08:30", "14:30", loc("School")),
	}
	sim := r.RecalculateDay(context.Background(), monday, blocks, loc("Home"), model.TravelTransit)

	require.Len(t, sim.Entries, 3)
	assert.Equal(t, "School", sim.Entries[0].Block.Title)
	assert.Equal(t, "08:10", sim.Entries[0].ActualStart.String())
	assert.Equal(t, "Snack", sim.Entries[1].Block.Title)
	assert.Equal(t, 0, sim.Entries[1].TravelBefore)
	assert.Equal(t, "school", sim.Entries[1].Location.Key(), "inherits the current location")
	assert.Nil(t, sim.Entries[1].Block.Location, "block location is not mutated")
	assert.Equal(t, "15:50", sim.Entries[2].ActualStart.String())
	assert.Equal(t, "school", sim.Entries[2].PreviousLocation.Key())
	assert.Equal(t, 2, sim.Adjusted())
	assert.Equal(t, 30, sim.TravelMinutes())

	assert.Equal(t, 1, est.prefetch)
	assert.Len(t, est.lastRoute, 2)

	select {
	case ev := <-ch:
		de, ok := ev.(events.DayRecalculatedEvent)
		require.True(t, ok)
		assert.Equal(t, 3, de.Blocks)
	case <-time.After(time.Second):
		t.Fatalf("no recalculation event")
	}
}

func TestInsertEarlierBlockKeepsInheritedLocationFree(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{
		"home>gym": 15,
		"gym>home": 20,
	}}
	r := New(Config{}, est, nil, nil, nil)
	ctx := context.Background()

	sim := r.RecalculateDay(ctx, monday, []model.TimeBlock{at("Homework", "10:00", "11:00", nil)}, loc("Home"), model.TravelDriving)
	require.Len(t, sim.Entries, 1)
	assert.Nil(t, sim.Entries[0].Block.Location)
	assert.Equal(t, "home", sim.Entries[0].Location.Key())

	sim, err := r.Insert(ctx, sim, at("Gym", "08:00", "09:00", loc("Gym")))
	require.NoError(t, err)
	require.Len(t, sim.Entries, 2)
	hw := sim.Entries[1]
	assert.Equal(t, "Homework", hw.Block.Title)
	assert.Equal(t, "10:00", hw.ActualStart.String())
	assert.Equal(t, 0, hw.TravelBefore)
	assert.False(t, hw.Block.Adjusted)
	assert.Nil(t, hw.Block.Location)
	assert.Equal(t, "gym", hw.Location.Key())

	again := r.RecalculateDay(ctx, monday, sim.Blocks(), loc("Home"), model.TravelDriving)
	assert.Equal(t, 0, again.Entries[1].TravelBefore)
	assert.Equal(t, 15, again.TravelMinutes())
}

func TestRecalculateDayClampsAtMidnight(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{"home>pool": 40}}
	r := New(Config{}, est, nil, nil, nil)
	sim := r.RecalculateDay(context.Background(), monday, []model.TimeBlock{at("Swim", "00:15", "01:00", loc("Pool"))}, loc("Home"), model.TravelWalking)
	assert.Equal(t, model.Clock(0), sim.Entries[0].ActualStart)
}

func TestRecalculateDayNormalModeSkipsTravel(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{"home>pool": 40}}
	r := New(Config{}, est, nil, nil, nil)
	sim := r.RecalculateDay(context.Background(), monday, []model.TimeBlock{at("Swim", "10:00", "11:00", loc("Pool"))}, loc("Home"), "")
	assert.Equal(t, model.TravelNormal, sim.Mode)
	assert.Equal(t, "10:00", sim.Entries[0].ActualStart.String())
	assert.Zero(t, est.lookups)
	assert.Zero(t, est.prefetch)
}

func TestValidatePlacement(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{
		"home>art":       20,
		"school>art":     20,
		"art>gym":        15,
		"home>gym":       5,
		"school>library": 5,
	}}
	cfg := Config{BlockedWindows: []Window{
		{Label: "lunch", Start: model.MustClock("12:00"), End: model.MustClock("13:00")},
		{Label: "weekend nap", Start: model.MustClock("15:00"), End: model.MustClock("16:00"), Days: model.NewDaySet(time.Saturday)},
	}}
	r := New(cfg, est, nil, nil, nil)
	ctx := context.Background()
	home := loc("Home")

	tests := []struct {
		name      string
		day       []model.TimeBlock
		candidate model.TimeBlock
		want      Reason
		valid     bool
	}{
		{
			name:      "travel pushes start into blocked window",
			candidate: at("Art", "13:10", "14:00", loc("Art")),
			want:      ReasonBlocked,
		},
		{
			name:      "window restricted to another weekday",
			candidate: at("Art", "15:30", "16:30", loc("Art")),
			valid:     true,
		},
		{
			name:      "travel overlaps previous block",
			day:       []model.TimeBlock{at("School", "09:00", "10:00", loc("School"))},
			candidate: at("Art", "10:10", "11:00", loc("Art")),
			want:      ReasonPrevious,
		},
		{
			name:      "next block needs the slot earlier",
			day:       []model.TimeBlock{at("Gym", "11:00", "12:00", loc("Gym"))},
			candidate: at("Art", "10:00", "10:55", loc("Art")),
			want:      ReasonNext,
		},
		{
			name: "fits between neighbours",
			day: []model.TimeBlock{
				at("School", "08:00", "09:00", loc("School")),
				at("Gym", "11:00", "12:00", loc("Gym")),
			},
			candidate: at("Art", "09:30", "10:30", loc("Art")),
			valid:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := r.ValidatePlacement(ctx, monday, tt.day, tt.candidate, home, model.TravelDriving)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.want, v.Reason)
		})
	}
}

func TestValidatePlacementDetails(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{"school>art": 20}}
	r := New(Config{}, est, nil, nil, nil)
	v, err := r.ValidatePlacement(context.Background(), monday,
		[]model.TimeBlock{at("School", "09:00", "10:00", loc("School"))},
		at("Art", "10:10", "11:00", loc("Art")), nil, model.TravelDriving)
	require.NoError(t, err)
	assert.Equal(t, ReasonPrevious, v.Reason)
	assert.Equal(t, "09:50", v.Details.ActualStart.String())
	assert.Equal(t, "School", v.Details.Neighbour)
	assert.Equal(t, "10:00", v.Details.NeighbourTime.String())

	_, err = r.ValidatePlacement(context.Background(), monday, nil, at("Bad", "11:00", "10:00", nil), nil, model.TravelDriving)
	assert.Error(t, err)
}

func TestStructuralEdits(t *testing.T) {
	est := &fakeEstimator{minutes: map[string]int{
		"home>school": 20, "school>gym": 10, "home>gym": 15, "gym>school": 10,
	}}
	r := New(Config{}, est, nil, nil, nil)
	ctx := context.Background()
	home := loc("Home")

	sim := r.RecalculateDay(ctx, monday, []model.TimeBlock{
		at("School", "09:00", "12:00", loc("School")),
		at("Gym", "14:00", "15:00", loc("Gym")),
	}, home, model.TravelDriving)

	swapped, err := r.Swap(ctx, sim, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Gym", swapped.Entries[0].Block.Title)
	assert.Equal(t, "09:00", swapped.Entries[0].Block.Start.String())
	assert.Equal(t, "08:45", swapped.Entries[0].ActualStart.String())
	assert.Equal(t, "School", swapped.Entries[1].Block.Title)
	assert.Equal(t, "13:50", swapped.Entries[1].ActualStart.String())
	assert.Equal(t, "14:00", swapped.Entries[1].Block.OriginalStart.String())

	deleted, err := r.Delete(ctx, swapped, 0)
	require.NoError(t, err)
	require.Len(t, deleted.Entries, 1)
	assert.Equal(t, "13:40", deleted.Entries[0].ActualStart.String())

	inserted, err := r.Insert(ctx, deleted, at("Library", "12:30", "13:00", nil))
	require.NoError(t, err)
	assert.Len(t, inserted.Entries, 2)

	_, err = r.Insert(ctx, deleted, at("Clash", "13:30", "14:30", loc("School")))
	assert.ErrorIs(t, err, ErrPlacement)

	_, err = r.Delete(ctx, deleted, 3)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = r.Swap(ctx, deleted, 0, -1)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{BlockedWindows: []Window{{Start: model.MustClock("10:00"), End: model.MustClock("09:00")}}}
	cfg.SetDefaults()
	assert.Error(t, cfg.Validate())

	ok := Config{DefaultMode: model.TravelWalking}
	assert.NoError(t, ok.Validate())
}
