package db

import (
	"testing"

	"github.com/clinic/clinic/pkg/civil"
)

func TestClockRoundTrip(t *testing.T) {
	c := civil.MustClock("13:45")
	p := ClockParam(c)
	if !p.Valid || p.Microseconds != (13*60+45)*60*1_000_000 {
		t.Errorf("unexpected encoding %+v", p)
	}
	if got := ClockValue(p); got != c {
		t.Errorf("expected %s, got %s", c, got)
	}
}

func TestDateRoundTrip(t *testing.T) {
	d, _ := civil.ParseDate("2024-02-29")
	p := DateParam(d)
	if !p.Valid {
		t.Fatal("expected valid date param")
	}
	if got := DateValue(p); got != d {
		t.Errorf("expected %s, got %s", d, got)
	}
	if DateParam(civil.Date{}).Valid {
		t.Error("expected zero date to encode as NULL")
	}
}
