package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// FileName is the name of the export inside a result directory.
const FileName = "tracking.txt"

// Columns is the header of tracking.txt.
var Columns = []string{
	"xHead", "yHead", "tHead",
	"xTail", "yTail", "tTail",
	"xBody", "yBody", "tBody",
	"curvature", "areaBody", "perimeterBody",
	"headMajorAxisLength", "headMinorAxisLength", "headExcentricity",
	"tailMajorAxisLength", "tailMinorAxisLength", "tailExcentricity",
	"bodyMajorAxisLength", "bodyMinorAxisLength", "bodyExcentricity",
	"imageNumber", "id",
}

// ErrHeader is returned when the first line is not the expected header.
var ErrHeader = errors.New("tracking.txt: unexpected header")

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(Columns)
	cr.ReuseRecord = true
	return cr
}

// Write writes the header followed by one line per record.
func Write(w io.Writer, records []blobtrack.Record) error {
	cw := newWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(Columns))
	for _, r := range records {
		for i, v := range values(r) {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write frame %d id %d: %w", r.FrameIndex, r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a tracking.txt stream.
func Read(r io.Reader) ([]blobtrack.Record, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrHeader, i+1, header[i], name)
		}
	}

	var records []blobtrack.Record
	var vals [23]float64
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		for i, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, Columns[i], err)
			}
			vals[i] = v
		}
		rec, err := fromValues(vals)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

// WriteFile writes records to dir/tracking.txt and returns the path.
func WriteFile(dir string, records []blobtrack.Record) (string, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, records); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// ReadFile reads a tracking.txt file. path may name the file or the
// directory holding it.
func ReadFile(path string) ([]blobtrack.Record, error) {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, FileName)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func values(r blobtrack.Record) [23]float64 {
	return [23]float64{
		r.Head.X, r.Head.Y, r.Head.Theta,
		r.Tail.X, r.Tail.Y, r.Tail.Theta,
		r.Body.X, r.Body.Y, r.Body.Theta,
		r.Curvature, r.Area, r.Perimeter,
		r.HeadEllipse.Major, r.HeadEllipse.Minor, r.HeadEllipse.Eccentricity,
		r.TailEllipse.Major, r.TailEllipse.Minor, r.TailEllipse.Eccentricity,
		r.BodyEllipse.Major, r.BodyEllipse.Minor, r.BodyEllipse.Eccentricity,
		float64(r.FrameIndex), float64(r.ID),
	}
}

func fromValues(v [23]float64) (blobtrack.Record, error) {
	frame, err := integral("imageNumber", v[21])
	if err != nil {
		return blobtrack.Record{}, err
	}
	id, err := integral("id", v[22])
	if err != nil {
		return blobtrack.Record{}, err
	}
	return blobtrack.Record{
		ID:          id,
		Head:        blobtrack.Pose{X: v[0], Y: v[1], Theta: v[2]},
		Tail:        blobtrack.Pose{X: v[3], Y: v[4], Theta: v[5]},
		Body:        blobtrack.Pose{X: v[6], Y: v[7], Theta: v[8]},
		Curvature:   v[9],
		Area:        v[10],
		Perimeter:   v[11],
		HeadEllipse: blobtrack.Ellipse{Major: v[12], Minor: v[13], Eccentricity: v[14]},
		TailEllipse: blobtrack.Ellipse{Major: v[15], Minor: v[16], Eccentricity: v[17]},
		BodyEllipse: blobtrack.Ellipse{Major: v[18], Minor: v[19], Eccentricity: v[20]},
		FrameIndex:  frame,
	}, nil
}

func integral(name string, v float64) (int, error) {
	if v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %g", name, v)
	}
	return int(v), nil
}
