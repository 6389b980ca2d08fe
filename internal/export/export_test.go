package export

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/relabs-tech/compass_logger/internal/buffer"
	"github.com/relabs-tech/compass_logger/internal/imu"
)

func fill(r *buffer.Ring, n int) []buffer.Sample {
	var in []buffer.Sample
	for i := 0; i < n; i++ {
		s := buffer.Sample{
			TimestampMS: int64(100 + i),
			Heading:     float64(i) * 17.3456,
			Pitch:       -12.3449 + float64(i),
			Roll:        0.005 * float64(i),
			Accel:       imu.Vec3{X: 0.0123, Y: -0.98765, Z: 1.0049},
			Gyro:        imu.Vec3{X: 250.5, Y: -0.001, Z: 3.14159},
		}
		r.Append(s)
		in = append(in, s)
	}
	return in
}

func TestWriteCSVFormat(t *testing.T) {
	r := buffer.NewRing(4)
	r.Append(buffer.Sample{
		TimestampMS: 100,
		Heading:     359.996,
		Pitch:       -1.5,
		Roll:        2,
		Accel:       imu.Vec3{X: 0.001, Y: 0.015, Z: 1},
		Gyro:        imu.Vec3{X: -3.333, Y: 0, Z: 10},
	})
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, r)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
	want := "Timestamp_ms,Heading,Pitch,Roll,AccX,AccY,AccZ,GyroX,GyroY,GyroZ\n" +
		"100,360.00,-1.50,2.00,0.00,0.01,1.00,-3.33,0.00,10.00\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRoundTrip(t *testing.T) {
	r := buffer.NewRing(8)
	in := fill(r, 6)

	var buf bytes.Buffer
	if _, err := WriteCSV(&buf, r); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("read %d rows, want %d", len(out), len(in))
	}
	const eps = 0.005 + 1e-9
	for i := range in {
		a, b := in[i], out[i]
		if a.TimestampMS != b.TimestampMS {
			t.Errorf("row %d: timestamp %d, want %d", i, b.TimestampMS, a.TimestampMS)
		}
		pairs := [][2]float64{
			{a.Heading, b.Heading}, {a.Pitch, b.Pitch}, {a.Roll, b.Roll},
			{a.Accel.X, b.Accel.X}, {a.Accel.Y, b.Accel.Y}, {a.Accel.Z, b.Accel.Z},
			{a.Gyro.X, b.Gyro.X}, {a.Gyro.Y, b.Gyro.Y}, {a.Gyro.Z, b.Gyro.Z},
		}
		for j, p := range pairs {
			if math.Abs(p[0]-p[1]) > eps {
				t.Errorf("row %d col %d: %v != %v", i, j+1, p[1], p[0])
			}
		}
	}
}

func TestRoundTripAfterWrap(t *testing.T) {
	r := buffer.NewRing(3)
	in := fill(r, 5)

	var buf bytes.Buffer
	if _, err := WriteCSV(&buf, r); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(out) != 3 || out[0].TimestampMS != in[2].TimestampMS || out[2].TimestampMS != in[4].TimestampMS {
		t.Errorf("unexpected rows after wrap: %+v", out)
	}
}

func TestReadCSVRejectsForeignHeader(t *testing.T) {
	src := "time,a,b,c,d,e,f,g,h,i\n"
	if _, err := ReadCSV(strings.NewReader(src)); !errors.Is(err, ErrBadHeader) {
		t.Errorf("err = %v, want ErrBadHeader", err)
	}
}

func TestExportToFileSink(t *testing.T) {
	dir := t.TempDir()
	r := buffer.NewRing(4)
	fill(r, 3)

	n, err := Export(FileSink{Dir: dir}, "imu_log.csv", r)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Errorf("rows = %d, want 3", n)
	}
	f, err := os.Open(filepath.Join(dir, "imu_log.csv"))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	out, err := ReadCSV(f)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("file holds %d rows, want 3", len(out))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir holds %d entries, want only the export", len(entries))
	}
}

func TestExportSinkUnavailable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not-mounted")
	r := buffer.NewRing(4)
	fill(r, 2)
	before := slices.Collect(r.All())

	_, err := Export(FileSink{Dir: dir}, "imu_log.csv", r)
	if !errors.Is(err, ErrSinkUnavailable) {
		t.Fatalf("err = %v, want ErrSinkUnavailable", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "imu_log.csv")); !os.IsNotExist(statErr) {
		t.Errorf("export file exists after failed export")
	}
	after := slices.Collect(r.All())
	if len(after) != len(before) || after[0] != before[0] || after[1] != before[1] {
		t.Errorf("ring changed by failed export")
	}
}

func TestFileSinkKeepsPreviousFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "imu_log.csv")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("card pulled")
	err := FileSink{Dir: dir}.WriteFile("imu_log.csv", func(w io.Writer) error {
		io.WriteString(w, "partial,row")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "previous" {
		t.Errorf("file = %q, want previous contents", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary file left behind: %d entries", len(entries))
	}
}
