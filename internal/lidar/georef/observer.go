package georef

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
	"github.com/banshee-data/georef/internal/monitoring"
	"github.com/banshee-data/georef/internal/timeutil"
)

// SkipReason says why a point produced no output record.
type SkipReason int

const (
	SkipOutOfCoverage SkipReason = iota
	SkipNonMonotonic
)

func (r SkipReason) String() string {
	switch r {
	case SkipOutOfCoverage:
		return "out_of_coverage"
	case SkipNonMonotonic:
		return "non_monotonic"
	}
	return "unknown"
}

// Observer receives synchronisation events. Callbacks run on the
// Synchronizer's goroutine and must not retain p or cp beyond the call.
type Observer interface {
	// OnRecord is called for every emitted record.
	OnRecord(index int64, p ply.Point, cp ply.CorrectedPoint)
	// OnAdvance is called each time the pose cursor moves forward.
	OnAdvance(cursor int, pose trajectory.Pose)
	// OnSkip is called for every dropped point.
	OnSkip(index int64, p ply.Point, reason SkipReason)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnRecord(int64, ply.Point, ply.CorrectedPoint) {}
func (NopObserver) OnAdvance(int, trajectory.Pose)                {}
func (NopObserver) OnSkip(int64, ply.Point, SkipReason)           {}

type multiObserver []Observer

func (m multiObserver) OnRecord(i int64, p ply.Point, cp ply.CorrectedPoint) {
	for _, o := range m {
		o.OnRecord(i, p, cp)
	}
}

func (m multiObserver) OnAdvance(cursor int, pose trajectory.Pose) {
	for _, o := range m {
		o.OnAdvance(cursor, pose)
	}
}

func (m multiObserver) OnSkip(i int64, p ply.Point, reason SkipReason) {
	for _, o := range m {
		o.OnSkip(i, p, reason)
	}
}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return NopObserver{}
	case 1:
		return m[0]
	}
	return m
}

// LogObserver reports progress through monitoring.Logf every Every records
// or every Interval, whichever comes first.
type LogObserver struct {
	Clock    timeutil.Clock
	Every    int64
	Interval time.Duration

	records  int64
	skipped  int64
	cursor   int
	lastLog  time.Time
	lastTime float64
}

// NewLogObserver returns a LogObserver using clock for interval tracking.
func NewLogObserver(clock timeutil.Clock, every int64, interval time.Duration) *LogObserver {
	return &LogObserver{Clock: clock, Every: every, Interval: interval, lastLog: clock.Now()}
}

func (o *LogObserver) OnRecord(_ int64, p ply.Point, _ ply.CorrectedPoint) {
	o.records++
	o.lastTime = p.Time
	o.maybeLog()
}

func (o *LogObserver) OnAdvance(cursor int, _ trajectory.Pose) {
	o.cursor = cursor
}

func (o *LogObserver) OnSkip(_ int64, p ply.Point, _ SkipReason) {
	o.skipped++
	o.lastTime = p.Time
	o.maybeLog()
}

func (o *LogObserver) maybeLog() {
	n := o.records + o.skipped
	due := o.Every > 0 && n%o.Every == 0
	// The clock is read at most once per 1024 events.
	if !due && o.Interval > 0 && n%1024 == 0 {
		due = o.Clock.Since(o.lastLog) >= o.Interval
	}
	if !due {
		return
	}
	o.lastLog = o.Clock.Now()
	monitoring.Logf("georef: %d records written, %d skipped, pose cursor %d, t=%.6f",
		o.records, o.skipped, o.cursor, o.lastTime)
}

// Sample is one corrected record retained for summaries and plots.
type Sample struct {
	Time      float64
	Raw       r3.Vec
	Delta     r3.Vec
	Magnitude float64
}

// CorrectionSampler retains every Every-th emitted record's correction.
type CorrectionSampler struct {
	Every   int64
	seen    int64
	samples []Sample
}

// NewCorrectionSampler returns a sampler keeping one record in every.
// every <= 0 keeps all records.
func NewCorrectionSampler(every int64) *CorrectionSampler {
	if every <= 0 {
		every = 1
	}
	return &CorrectionSampler{Every: every}
}

func (s *CorrectionSampler) OnRecord(_ int64, p ply.Point, cp ply.CorrectedPoint) {
	defer func() { s.seen++ }()
	if s.seen%s.Every != 0 {
		return
	}
	d := r3.Vec{X: cp.NX, Y: cp.NY, Z: cp.NZ}
	s.samples = append(s.samples, Sample{
		Time:      p.Time,
		Raw:       r3.Vec{X: p.X, Y: p.Y, Z: p.Z},
		Delta:     d,
		Magnitude: r3.Norm(d),
	})
}

func (s *CorrectionSampler) OnAdvance(int, trajectory.Pose)      {}
func (s *CorrectionSampler) OnSkip(int64, ply.Point, SkipReason) {}

// Samples returns the retained samples in emission order.
func (s *CorrectionSampler) Samples() []Sample { return s.samples }
