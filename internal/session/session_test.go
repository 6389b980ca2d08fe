package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/relabs-tech/compass_logger/internal/calibration"
	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/display"
	"github.com/relabs-tech/compass_logger/internal/export"
	"github.com/relabs-tech/compass_logger/internal/imu"
	"github.com/relabs-tech/compass_logger/internal/input"
)

// levelSource reports a level device with the given magnetic field.
type levelSource struct {
	mags []imu.Vec3
	i    int
	err  error
}

func (s *levelSource) Read() (imu.Reading, error) {
	if s.err != nil {
		return imu.Reading{}, s.err
	}
	m := s.mags[s.i%len(s.mags)]
	s.i++
	return imu.Reading{Accel: imu.Vec3{Z: 1}, Gyro: imu.Vec3{X: 0.5}, Mag: m}, nil
}

type recorder struct {
	frames []display.Frame
}

func (r *recorder) Show(f display.Frame) error {
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) last() display.Frame {
	return r.frames[len(r.frames)-1]
}

func newTestSession(t *testing.T, src imu.Source, opts Options) (*Session, *recorder, string) {
	t.Helper()
	dir := t.TempDir()
	rec := &recorder{}
	if opts.ExportName == "" {
		opts.ExportName = "imu_log.csv"
	}
	cal := calibration.New(time.Second, 100*time.Millisecond)
	return New(src, rec, export.FileSink{Dir: dir}, cal, opts), rec, dir
}

func TestTickIdleDoesNotLog(t *testing.T) {
	s, rec, _ := newTestSession(t, &levelSource{mags: []imu.Vec3{{X: 20}}}, Options{Capacity: 4})
	pose, err := s.Tick(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if pose.Heading != 0 {
		t.Errorf("heading = %v, want 0", pose.Heading)
	}
	if s.Ring().Count() != 0 {
		t.Errorf("idle session logged %d samples", s.Ring().Count())
	}
	f := rec.last()
	if !strings.HasPrefix(f.Lines[2], "IDLE 0/4") {
		t.Errorf("state line = %q", f.Lines[2])
	}
}

func TestDeltaTimestamps(t *testing.T) {
	s, _, _ := newTestSession(t, &levelSource{mags: []imu.Vec3{{X: 20}}}, Options{Capacity: 3})
	s.Tick(500 * time.Millisecond) // before Start, not counted
	s.Start()
	for range 5 {
		if _, err := s.Tick(100 * time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	snap := slices.Collect(s.Ring().All())
	if len(snap) != 3 {
		t.Fatalf("count = %d, want 3", len(snap))
	}
	for i, smp := range snap {
		if smp.TimestampMS != 100 {
			t.Errorf("sample %d timestamp = %d, want 100", i, smp.TimestampMS)
		}
		if smp.Gyro.X != 0.5 || smp.Accel.Z != 1 {
			t.Errorf("sample %d raw values not recorded: %+v", i, smp)
		}
	}
}

func TestAbsoluteTimestamps(t *testing.T) {
	s, _, _ := newTestSession(t, &levelSource{mags: []imu.Vec3{{X: 20}}},
		Options{Capacity: 8, TimestampMode: config.TimestampAbsolute})
	s.Start()
	for range 3 {
		s.Tick(250 * time.Millisecond)
	}
	var got []int64
	for smp := range s.Ring().All() {
		got = append(got, smp.TimestampMS)
	}
	want := []int64{250, 500, 750}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("timestamps = %v, want %v", got, want)
		}
	}
}

func TestStartResetsRing(t *testing.T) {
	s, _, _ := newTestSession(t, &levelSource{mags: []imu.Vec3{{X: 20}}}, Options{Capacity: 4})
	s.Start()
	s.Tick(time.Millisecond)
	s.Tick(time.Millisecond)
	s.Stop()
	if s.Ring().Count() != 2 {
		t.Fatalf("count after stop = %d, want 2", s.Ring().Count())
	}
	s.Tick(time.Millisecond)
	if s.Ring().Count() != 2 {
		t.Fatalf("stopped session kept logging")
	}
	s.Start()
	if s.Ring().Count() != 0 {
		t.Fatalf("Start did not clear the ring")
	}
}

func TestPressToggleAndSave(t *testing.T) {
	s, rec, dir := newTestSession(t, &levelSource{mags: []imu.Vec3{{Y: 20}}}, Options{Capacity: 10})
	if err := s.Press(input.ZoneLeft); err != nil {
		t.Fatal(err)
	}
	if !s.Logging() {
		t.Fatal("LEFT did not start logging")
	}
	s.Tick(100 * time.Millisecond)
	s.Tick(100 * time.Millisecond)
	if err := s.Press(input.ZoneLeft); err != nil {
		t.Fatal(err)
	}
	if s.Logging() {
		t.Fatal("second LEFT did not stop logging")
	}
	if err := s.Press(input.ZoneRight); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := rec.last().Lines[3]; got != "Saved 2" {
		t.Errorf("status = %q, want Saved 2", got)
	}

	f, err := os.Open(filepath.Join(dir, "imu_log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	samples, err := export.ReadCSV(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Fatalf("exported %d rows, want 2", len(samples))
	}
	if samples[0].Heading != 90 {
		t.Errorf("heading = %v, want 90", samples[0].Heading)
	}
	if s.Ring().Count() != 2 {
		t.Error("save emptied the ring")
	}
}

func TestSaveWithoutSinkKeepsRing(t *testing.T) {
	rec := &recorder{}
	missing := filepath.Join(t.TempDir(), "no-card")
	s := New(&levelSource{mags: []imu.Vec3{{X: 20}}}, rec, export.FileSink{Dir: missing},
		calibration.New(0, 0), Options{Capacity: 4, ExportName: "imu_log.csv"})
	s.Start()
	s.Tick(time.Millisecond)

	_, err := s.Save()
	if !errors.Is(err, export.ErrSinkUnavailable) {
		t.Fatalf("err = %v, want ErrSinkUnavailable", err)
	}
	if s.Status() != "No SD card" {
		t.Errorf("status = %q", s.Status())
	}
	if s.Ring().Count() != 1 {
		t.Error("failed save touched the ring")
	}
}

func TestTickSensorError(t *testing.T) {
	src := &levelSource{mags: []imu.Vec3{{X: 20}}}
	s, _, _ := newTestSession(t, src, Options{Capacity: 4})
	s.Start()
	src.err = errors.New("bus timeout")
	if _, err := s.Tick(time.Millisecond); err == nil {
		t.Fatal("expected error")
	}
	if s.Ring().Count() != 0 {
		t.Error("failed read produced a sample")
	}
	if s.Status() != "Sensor error" {
		t.Errorf("status = %q", s.Status())
	}
}

func TestCalibrateInstallsOffsets(t *testing.T) {
	src := &levelSource{mags: []imu.Vec3{
		{X: 40, Y: 10, Z: 0},
		{X: -20, Y: 10, Z: 0},
		{X: 10, Y: 40, Z: 0},
		{X: 10, Y: -20, Z: 0},
	}}
	calFile := filepath.Join(t.TempDir(), "mag.json")
	s, rec, _ := newTestSession(t, src, Options{Capacity: 4, CalibrationFile: calFile})
	s.Start()

	fc := clockwork.NewFakeClock()
	s.cal.Clock = fc
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		err := s.Press(input.ZoneMiddle)
		cancel()
		done <- err
	}()
	for fc.BlockUntilContext(ctx, 1) == nil {
		fc.Advance(s.cal.PollInterval)
	}
	if err := <-done; err != nil {
		t.Fatalf("calibrate: %v", err)
	}

	off := s.Offsets()
	if off.X != 10 || off.Y != 10 || off.Z != 0 {
		t.Errorf("offsets = %+v, want {10 10 0}", off)
	}
	if s.Logging() {
		t.Error("calibration left logging running")
	}
	if !strings.HasPrefix(rec.last().Lines[3], "Cal OK") {
		t.Errorf("status = %q", rec.last().Lines[3])
	}
	saved, err := calibration.Load(calFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if saved.Offsets != off {
		t.Errorf("saved offsets = %+v, want %+v", saved.Offsets, off)
	}

	// Offset-corrected field {30, 0} points north.
	src.mags = []imu.Vec3{{X: 40, Y: 10}}
	pose, _ := s.Tick(time.Millisecond)
	if pose.Heading != 0 {
		t.Errorf("corrected heading = %v, want 0", pose.Heading)
	}
}

func TestGovernorWait(t *testing.T) {
	g := Governor{Interval: 100 * time.Millisecond}
	cases := []struct {
		busy, want time.Duration
	}{
		{0, 100 * time.Millisecond},
		{30 * time.Millisecond, 70 * time.Millisecond},
		{100 * time.Millisecond, 0},
		{250 * time.Millisecond, 0},
	}
	for _, c := range cases {
		if got := g.Wait(c.busy); got != c.want {
			t.Errorf("Wait(%v) = %v, want %v", c.busy, got, c.want)
		}
	}
}

func TestFrameMarksWrappedRing(t *testing.T) {
	s, rec, _ := newTestSession(t, &levelSource{mags: []imu.Vec3{{X: 20}}}, Options{Capacity: 2})
	s.Start()
	s.Tick(time.Millisecond)
	s.Tick(time.Millisecond)
	if got := rec.last().Lines[2]; got != "REC 2/2 wrap" {
		t.Errorf("state line = %q, want REC 2/2 wrap", got)
	}
	s.Start()
	s.Tick(time.Millisecond)
	if got := rec.last().Lines[2]; got != "REC 1/2" {
		t.Errorf("state line after restart = %q, want REC 1/2", got)
	}
}
