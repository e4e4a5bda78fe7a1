package georef

import (
	"testing"
	"time"

	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
	"github.com/banshee-data/georef/internal/monitoring"
	"github.com/banshee-data/georef/internal/timeutil"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.Logf = orig })
	return &lines
}

func TestObservers(t *testing.T) {
	if _, ok := Observers().(NopObserver); !ok {
		t.Error("expected NopObserver for no observers")
	}
	a := &recordingObserver{}
	if Observers(nil, a) != Observer(a) {
		t.Error("expected a single observer to be returned as-is")
	}

	b := &recordingObserver{}
	m := Observers(a, nil, b)
	m.OnAdvance(3, trajectory.Pose{})
	m.OnSkip(0, ply.Point{}, SkipOutOfCoverage)
	for _, o := range []*recordingObserver{a, b} {
		if len(o.advances) != 1 || o.advances[0] != 3 || len(o.skips) != 1 {
			t.Errorf("observer missed events: %+v", o)
		}
	}
}

func TestLogObserver_EveryN(t *testing.T) {
	logs := captureLogs(t)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	o := NewLogObserver(clock, 3, 0)

	for i := range 7 {
		o.OnRecord(int64(i), ply.Point{Time: float64(i)}, ply.CorrectedPoint{})
	}
	if len(*logs) != 2 {
		t.Errorf("got %d progress lines, want 2", len(*logs))
	}
}

func TestLogObserver_Interval(t *testing.T) {
	logs := captureLogs(t)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	o := NewLogObserver(clock, 0, time.Second)

	for i := range 1024 {
		o.OnSkip(int64(i), ply.Point{}, SkipOutOfCoverage)
	}
	if len(*logs) != 0 {
		t.Fatalf("logged %d lines before the interval elapsed", len(*logs))
	}

	clock.Advance(2 * time.Second)
	for i := range 1024 {
		o.OnRecord(int64(i), ply.Point{}, ply.CorrectedPoint{})
	}
	if len(*logs) != 1 {
		t.Errorf("got %d progress lines, want 1", len(*logs))
	}
}

func TestCorrectionSampler(t *testing.T) {
	s := NewCorrectionSampler(2)
	for i := range 5 {
		s.OnRecord(int64(i), ply.Point{Time: float64(i)}, ply.CorrectedPoint{NX: 3, NY: 4})
	}
	got := s.Samples()
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	if got[1].Time != 2 || got[1].Magnitude != 5 {
		t.Errorf("sample 1 = %+v", got[1])
	}

	if all := NewCorrectionSampler(0); all.Every != 1 {
		t.Errorf("Every = %d, want 1", all.Every)
	}
}

func TestSkipReasonString(t *testing.T) {
	if SkipOutOfCoverage.String() != "out_of_coverage" || SkipNonMonotonic.String() != "non_monotonic" {
		t.Error("unexpected skip reason names")
	}
}
