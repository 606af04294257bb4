package config

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tracking parameters.
// Every field is optional; the Get* methods supply the default of a field
// left out of the JSON.
type TuningConfig struct {
	// Detection
	MinArea         *float64 `json:"min_area,omitempty"`
	MaxArea         *float64 `json:"max_area,omitempty"`
	BinaryThreshold *float64 `json:"binary_threshold,omitempty"`
	DetectWorkers   *int     `json:"detect_workers,omitempty"` // 0 uses every CPU

	// Region of interest in frame pixels. All zero keeps the whole frame.
	ROIX1 *int `json:"roi_x1,omitempty"`
	ROIY1 *int `json:"roi_y1,omitempty"`
	ROIX2 *int `json:"roi_x2,omitempty"`
	ROIY2 *int `json:"roi_y2,omitempty"`

	// Association
	Spot          *string  `json:"spot,omitempty"` // head, tail or body
	NormDist      *float64 `json:"norm_dist,omitempty"`
	NormAngleDeg  *float64 `json:"norm_angle_deg,omitempty"`
	MaxDist       *float64 `json:"max_dist,omitempty"`
	NormArea      *float64 `json:"norm_area,omitempty"`
	NormPerimeter *float64 `json:"norm_perimeter,omitempty"`

	// Lifecycle
	MaxTime    *int    `json:"max_time,omitempty"`
	Prediction *string `json:"prediction,omitempty"`

	// Storage
	CommitEvery *int `json:"commit_every,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/blobtrack/pipeline/
		"../../../../" + DefaultConfigPath, // from internal/blobtrack/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinArea != nil && *c.MinArea < 0 {
		return fmt.Errorf("min_area must be non-negative, got %g", *c.MinArea)
	}
	if c.GetMaxArea() < c.GetMinArea() {
		return fmt.Errorf("max_area %g is below min_area %g", c.GetMaxArea(), c.GetMinArea())
	}
	if t := c.GetBinaryThreshold(); t < 0 || t > 255 {
		return fmt.Errorf("binary_threshold must be between 0 and 255, got %g", t)
	}
	if c.DetectWorkers != nil && *c.DetectWorkers < 0 {
		return fmt.Errorf("detect_workers must be non-negative, got %d", *c.DetectWorkers)
	}
	if _, err := blobtrack.ParseSpot(c.GetSpot()); err != nil {
		return fmt.Errorf("spot: %w", err)
	}
	for name, v := range map[string]float64{
		"norm_dist":      c.GetNormDist(),
		"norm_angle_deg": c.GetNormAngleDeg(),
		"norm_area":      c.GetNormArea(),
		"norm_perimeter": c.GetNormPerimeter(),
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %g", name, v)
		}
	}
	if c.GetMaxDist() <= 0 {
		return fmt.Errorf("max_dist must be positive, got %g", c.GetMaxDist())
	}
	if c.GetMaxTime() < 0 {
		return fmt.Errorf("max_time must be non-negative, got %d", c.GetMaxTime())
	}
	switch blobtrack.Prediction(c.GetPrediction()) {
	case blobtrack.PredictBorrowedMagnitude, blobtrack.PredictOwnVelocity:
	default:
		return fmt.Errorf("prediction must be %q or %q, got %q",
			blobtrack.PredictBorrowedMagnitude, blobtrack.PredictOwnVelocity, c.GetPrediction())
	}
	if c.CommitEvery != nil && *c.CommitEvery <= 0 {
		return fmt.Errorf("commit_every must be positive, got %d", *c.CommitEvery)
	}
	if roi := c.GetROI(); roi != (image.Rectangle{}) {
		if roi.Min.X < 0 || roi.Min.Y < 0 || roi.Empty() {
			return fmt.Errorf("roi %v must have 0 <= x1 < x2 and 0 <= y1 < y2", roi)
		}
	}
	return nil
}

// Params converts the configuration into the immutable value handed to
// every tracking component.
func (c *TuningConfig) Params() (blobtrack.Params, error) {
	if err := c.Validate(); err != nil {
		return blobtrack.Params{}, err
	}
	spot, _ := blobtrack.ParseSpot(c.GetSpot())
	p := blobtrack.Params{
		MinArea:          c.GetMinArea(),
		MaxArea:          c.GetMaxArea(),
		ROI:              c.GetROI(),
		BinaryThreshold:  c.GetBinaryThreshold(),
		DetectWorkers:    c.GetDetectWorkers(),
		Spot:             spot,
		Length:           c.GetNormDist(),
		Angle:            c.GetNormAngleDeg() * math.Pi / 180,
		MaxDist:          c.GetMaxDist(),
		Area:             c.GetNormArea(),
		Perimeter:        c.GetNormPerimeter(),
		MaxOcclusionTime: c.GetMaxTime(),
		Prediction:       blobtrack.Prediction(c.GetPrediction()),
	}
	return p, p.Validate()
}

// Effective returns a copy with every field set, defaults filled in.
func (c *TuningConfig) Effective() *TuningConfig {
	x1, y1 := c.getInt(c.ROIX1, 0), c.getInt(c.ROIY1, 0)
	x2, y2 := c.getInt(c.ROIX2, 0), c.getInt(c.ROIY2, 0)
	return &TuningConfig{
		MinArea:         ptrFloat64(c.GetMinArea()),
		MaxArea:         ptrFloat64(c.GetMaxArea()),
		BinaryThreshold: ptrFloat64(c.GetBinaryThreshold()),
		DetectWorkers:   ptrInt(c.GetDetectWorkers()),
		ROIX1:           ptrInt(x1),
		ROIY1:           ptrInt(y1),
		ROIX2:           ptrInt(x2),
		ROIY2:           ptrInt(y2),
		Spot:            ptrString(c.GetSpot()),
		NormDist:        ptrFloat64(c.GetNormDist()),
		NormAngleDeg:    ptrFloat64(c.GetNormAngleDeg()),
		MaxDist:         ptrFloat64(c.GetMaxDist()),
		NormArea:        ptrFloat64(c.GetNormArea()),
		NormPerimeter:   ptrFloat64(c.GetNormPerimeter()),
		MaxTime:         ptrInt(c.GetMaxTime()),
		Prediction:      ptrString(c.GetPrediction()),
		CommitEvery:     ptrInt(c.GetCommitEvery()),
	}
}

// Entry is one effective key/value pair in its persisted text form.
type Entry struct {
	Name  string
	Value string
}

// Entries lists every key with its effective value, in JSON key order.
func (c *TuningConfig) Entries() []Entry {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	i := strconv.Itoa
	e := c.Effective()
	return []Entry{
		{"min_area", f(*e.MinArea)},
		{"max_area", f(*e.MaxArea)},
		{"binary_threshold", f(*e.BinaryThreshold)},
		{"detect_workers", i(*e.DetectWorkers)},
		{"roi_x1", i(*e.ROIX1)},
		{"roi_y1", i(*e.ROIY1)},
		{"roi_x2", i(*e.ROIX2)},
		{"roi_y2", i(*e.ROIY2)},
		{"spot", *e.Spot},
		{"norm_dist", f(*e.NormDist)},
		{"norm_angle_deg", f(*e.NormAngleDeg)},
		{"max_dist", f(*e.MaxDist)},
		{"norm_area", f(*e.NormArea)},
		{"norm_perimeter", f(*e.NormPerimeter)},
		{"max_time", i(*e.MaxTime)},
		{"prediction", *e.Prediction},
		{"commit_every", i(*e.CommitEvery)},
	}
}

// WriteFile writes the effective configuration as indented JSON.
func (c *TuningConfig) WriteFile(path string) error {
	data, err := json.MarshalIndent(c.Effective(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *TuningConfig) getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func (c *TuningConfig) getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// GetMinArea returns the min_area value or the default.
func (c *TuningConfig) GetMinArea() float64 { return c.getFloat(c.MinArea, 50) }

// GetMaxArea returns the max_area value or the default.
func (c *TuningConfig) GetMaxArea() float64 { return c.getFloat(c.MaxArea, 1000) }

// GetBinaryThreshold returns the binary_threshold value or the default.
func (c *TuningConfig) GetBinaryThreshold() float64 { return c.getFloat(c.BinaryThreshold, 127) }

// GetDetectWorkers returns the detect_workers value or the default.
func (c *TuningConfig) GetDetectWorkers() int { return c.getInt(c.DetectWorkers, 0) }

// GetROI returns the region of interest as written, without
// canonicalising it. The zero rectangle means the whole frame.
func (c *TuningConfig) GetROI() image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(c.getInt(c.ROIX1, 0), c.getInt(c.ROIY1, 0)),
		Max: image.Pt(c.getInt(c.ROIX2, 0), c.getInt(c.ROIY2, 0)),
	}
}

// GetSpot returns the spot value or the default.
func (c *TuningConfig) GetSpot() string {
	if c.Spot == nil {
		return "head"
	}
	return *c.Spot
}

// GetNormDist returns the norm_dist value or the default.
func (c *TuningConfig) GetNormDist() float64 { return c.getFloat(c.NormDist, 60) }

// GetNormAngleDeg returns the norm_angle_deg value or the default.
func (c *TuningConfig) GetNormAngleDeg() float64 { return c.getFloat(c.NormAngleDeg, 45) }

// GetMaxDist returns the max_dist value or the default.
func (c *TuningConfig) GetMaxDist() float64 { return c.getFloat(c.MaxDist, 250) }

// GetNormArea returns the norm_area value or the default (term disabled).
func (c *TuningConfig) GetNormArea() float64 { return c.getFloat(c.NormArea, 0) }

// GetNormPerimeter returns the norm_perimeter value or the default (term disabled).
func (c *TuningConfig) GetNormPerimeter() float64 { return c.getFloat(c.NormPerimeter, 0) }

// GetMaxTime returns the max_time value or the default.
func (c *TuningConfig) GetMaxTime() int { return c.getInt(c.MaxTime, 100) }

// GetPrediction returns the prediction value or the default.
func (c *TuningConfig) GetPrediction() string {
	if c.Prediction == nil {
		return string(blobtrack.PredictBorrowedMagnitude)
	}
	return *c.Prediction
}

// GetCommitEvery returns the commit_every value or the default.
func (c *TuningConfig) GetCommitEvery() int { return c.getInt(c.CommitEvery, 50) }
