package orientation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/relabs-tech/compass_logger/internal/imu"
)

const tol = 1e-9

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestEstimateLevelNorth(t *testing.T) {
	p := Estimate(imu.Vec3{Z: 1}, imu.Vec3{X: 1}, Offsets{})
	if !near(p.Heading, 0, tol) || !near(p.Pitch, 0, tol) || !near(p.Roll, 0, tol) {
		t.Errorf("level north: got %+v, want all zero", p)
	}
	if math.Signbit(p.Heading) {
		t.Errorf("heading is negative zero")
	}
}

func TestEstimateLevelHeadings(t *testing.T) {
	cases := []struct {
		mag  imu.Vec3
		want float64
	}{
		{imu.Vec3{X: 1}, 0},
		{imu.Vec3{Y: 1}, 90},
		{imu.Vec3{X: -1}, 180},
		{imu.Vec3{Y: -1}, 270},
		{imu.Vec3{X: 1, Y: 1}, 45},
		{imu.Vec3{X: 1, Y: -1}, 315},
	}
	for _, c := range cases {
		p := Estimate(imu.Vec3{Z: 1}, c.mag, Offsets{})
		if !near(p.Heading, c.want, 1e-6) {
			t.Errorf("mag %+v: heading %.6f, want %.1f", c.mag, p.Heading, c.want)
		}
	}
}

func TestEstimateTilt(t *testing.T) {
	// Roll follows ax against az.
	p := Estimate(imu.Vec3{X: 1, Z: 1}, imu.Vec3{X: 1}, Offsets{})
	if !near(p.Roll, 45, 1e-6) || !near(p.Pitch, 0, 1e-6) {
		t.Errorf("roll case: got %+v", p)
	}

	// Pitch follows -ay against the xz magnitude.
	p = Estimate(imu.Vec3{Y: -1, Z: 1}, imu.Vec3{X: 1}, Offsets{})
	if !near(p.Pitch, 45, 1e-6) || !near(p.Roll, 0, 1e-6) {
		t.Errorf("pitch case: got %+v", p)
	}
}

func TestEstimateAppliesOffsets(t *testing.T) {
	off := Offsets{X: 30, Y: -12, Z: 5}
	raw := imu.Vec3{X: off.X, Y: off.Y + 1, Z: off.Z}
	p := Estimate(imu.Vec3{Z: 1}, raw, off)
	if !near(p.Heading, 90, 1e-6) {
		t.Errorf("offset-corrected heading %.6f, want 90", p.Heading)
	}

	// Same vector with the bias left in points somewhere else.
	q := Estimate(imu.Vec3{Z: 1}, raw, Offsets{})
	if near(q.Heading, 90, 1) {
		t.Errorf("uncorrected heading unexpectedly %.3f", q.Heading)
	}
}

func TestHeadingRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		accel := imu.Vec3{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
		mag := imu.Vec3{X: rng.Float64()*100 - 50, Y: rng.Float64()*100 - 50, Z: rng.Float64()*100 - 50}
		if accel.Norm() < 1e-3 || mag.Norm() < 1e-3 {
			continue
		}
		p := Estimate(accel, mag, Offsets{X: 1, Y: -2, Z: 3})
		if !(p.Heading >= 0 && p.Heading < 360) {
			t.Fatalf("heading %v out of [0,360) for accel=%+v mag=%+v", p.Heading, accel, mag)
		}
	}
}

func TestNormalizeHeadingTinyNegative(t *testing.T) {
	if h := normalizeHeading(-1e-15); h != 0 {
		t.Errorf("normalizeHeading(-1e-15) = %v, want 0", h)
	}
	if h := normalizeHeading(-90); h != 270 {
		t.Errorf("normalizeHeading(-90) = %v, want 270", h)
	}
}

func TestFromReading(t *testing.T) {
	r := imu.Reading{Accel: imu.Vec3{Z: 1}, Mag: imu.Vec3{Y: -3}}
	if p := FromReading(r, Offsets{}); !near(p.Heading, 270, 1e-6) {
		t.Errorf("FromReading heading %.6f, want 270", p.Heading)
	}
}
