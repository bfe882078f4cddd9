package overlap

import (
	"testing"
	"time"

	"github.com/kilianp07/blockplan/core/model"
)

func block(title string, days model.DaySet, start, end string) model.TimeBlock {
	return model.TimeBlock{Title: title, Days: days, Start: model.MustClock(start), End: model.MustClock(end)}
}

func TestOverlapsSameDay(t *testing.T) {
	mon := model.NewDaySet(time.Monday)
	a := block("A", mon, "09:00", "10:00")
	b := block("B", mon, "09:30", "10:30")
	c := block("C", model.NewDaySet(time.Tuesday), "09:00", "10:00")
	touching := block("D", mon, "10:00", "11:00")

	if !Overlaps(a, b) {
		t.Fatalf("expected A and B to overlap")
	}
	if Overlaps(a, c) {
		t.Fatalf("blocks on different days must not overlap")
	}
	if Overlaps(a, touching) {
		t.Fatalf("half-open intervals that touch must not overlap")
	}
}

func TestOverlapsDatedAgainstRecurring(t *testing.T) {
	sunday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	dated := model.TimeBlock{Title: "Concert", Date: sunday, Start: model.MustClock("10:00"), End: model.MustClock("12:00")}
	sun, err := model.ParseDaySet("7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec := block("Church", sun, "11:00", "12:00")
	if !Overlaps(dated, rec) || !Overlaps(rec, dated) {
		t.Fatalf("dated sunday block should overlap recurring sunday block")
	}
	other := dated
	other.Date = sunday.AddDate(0, 0, 1)
	if Overlaps(dated, other) {
		t.Fatalf("different dates must not overlap")
	}
}

func TestOverlapSymmetry(t *testing.T) {
	days := []model.DaySet{
		model.NewDaySet(time.Monday),
		model.NewDaySet(time.Monday, time.Wednesday),
		model.NewDaySet(time.Sunday),
	}
	times := [][2]string{{"08:00", "09:00"}, {"08:30", "10:00"}, {"09:00", "09:30"}, {"00:00", "24:00"}}
	var blocks []model.TimeBlock
	for _, d := range days {
		for _, tm := range times {
			blocks = append(blocks, block("x", d, tm[0], tm[1]))
		}
	}
	blocks = append(blocks, model.TimeBlock{Title: "d", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Start: model.MustClock("08:15"), End: model.MustClock("08:45")})
	for _, a := range blocks {
		for _, b := range blocks {
			if Overlaps(a, b) != Overlaps(b, a) {
				t.Fatalf("asymmetric result for %+v / %+v", a, b)
			}
		}
	}
}

func TestSetHelpers(t *testing.T) {
	mon := model.NewDaySet(time.Monday)
	set := []model.TimeBlock{
		block("A", mon, "09:00", "10:00"),
		block("B", mon, "10:00", "11:00"),
		block("C", mon, "10:30", "12:00"),
	}
	if !Any(set) {
		t.Fatalf("expected overlap in set")
	}
	if Any(set[:2]) {
		t.Fatalf("first two blocks do not overlap")
	}
	pairs := Conflicts(set)
	if len(pairs) != 1 || pairs[0] != (Pair{I: 1, J: 2}) {
		t.Fatalf("unexpected conflicts %v", pairs)
	}
	if !ConflictsWith(block("Z", mon, "11:30", "11:45"), set) {
		t.Fatalf("expected conflict with C")
	}
}
