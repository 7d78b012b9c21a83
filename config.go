package depthcount

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/swdee/go-depthcount/counter"
	"github.com/swdee/go-depthcount/tracker"
)

var (
	// ErrInvalidConfig is wrapped by every configuration validation error
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrFixedField is returned when a field that can only be set at startup
	// is changed at runtime
	ErrFixedField = errors.New("field can only be set at startup")
)

// Params is a snapshot of the pipeline configuration.  The worker takes one
// snapshot per frame.
type Params struct {
	// Width, Height and FPS of the camera streams
	Width  int
	Height int
	FPS    int
	// BlurSize is the odd Gaussian kernel size applied to the foreground
	BlurSize int
	// MinBlobArea discards smaller blobs before association
	MinBlobArea float64
	// SingleMaxArea and DoubleMaxArea are the area bands estimating how many
	// people a blob holds
	SingleMaxArea float64
	DoubleMaxArea float64
	// XNear and YNear are the association gate in pixels
	XNear int
	YNear int
	// MaxTrackAgeSeconds is how long an unmatched track lives
	MaxTrackAgeSeconds float64
	// DepthScale is the camera depth unit in meters, used when the source
	// does not report one
	DepthScale float64
	// ThresholdCentimeters is the clip distance beyond which depth is
	// background
	ThresholdCentimeters float64
	// TrajectoryLimit bounds each track's trajectory, zero is unbounded
	TrajectoryLimit int
	// UnclipMargin expands blob polygons before boxing, zero disables
	UnclipMargin float64
	// Association is the blob to track association policy
	Association tracker.Policy
	// NormalizeWorkers is the number of goroutines depth rows are split
	// across
	NormalizeWorkers int
	// WorkerCores pins the pipeline worker to these CPU cores when set
	WorkerCores []int
}

// DefaultParams returns the R200 stream profile and the counting defaults
func DefaultParams() Params {
	return Params{
		Width:                320,
		Height:               240,
		FPS:                  60,
		BlurSize:             3,
		MinBlobArea:          20000,
		SingleMaxArea:        60000,
		DoubleMaxArea:        90000,
		XNear:                40,
		YNear:                90,
		MaxTrackAgeSeconds:   2,
		DepthScale:           0.001,
		ThresholdCentimeters: 43,
		TrajectoryLimit:      0,
		UnclipMargin:         0,
		Association:          tracker.FirstMatchInCreationOrder,
		NormalizeWorkers:     4,
	}
}

// MaxAgeFrames returns the track age limit in frames
func (p Params) MaxAgeFrames() int {
	return int(p.MaxTrackAgeSeconds * float64(p.FPS))
}

// Bands returns the count area bands
func (p Params) Bands() counter.Bands {
	return counter.Bands{
		SingleMax: p.SingleMaxArea,
		DoubleMax: p.DoubleMaxArea,
	}
}

// TrackerParams returns the per frame association parameters
func (p Params) TrackerParams() tracker.Params {
	return tracker.Params{
		MinBlobArea: p.MinBlobArea,
		Gate:        tracker.Gate{XNear: p.XNear, YNear: p.YNear},
		TrailSize:   p.TrajectoryLimit,
	}
}

// Validate checks every field of the snapshot
func (p Params) Validate() error {
	var errs []error

	check := func(ok bool, field string, value any) {
		if !ok {
			errs = append(errs, invalid(field, value))
		}
	}

	check(p.Width > 0, "width", p.Width)
	check(p.Height > 0, "height", p.Height)
	check(p.FPS > 0, "fps", p.FPS)
	check(validBlur(p.BlurSize), "blurSize", p.BlurSize)
	check(p.MinBlobArea >= 0, "minBlobArea", p.MinBlobArea)
	check(p.SingleMaxArea > 0, "singleMaxArea", p.SingleMaxArea)
	check(p.DoubleMaxArea > p.SingleMaxArea, "doubleMaxArea", p.DoubleMaxArea)
	check(p.XNear >= 0, "xNear", p.XNear)
	check(p.YNear >= 0, "yNear", p.YNear)
	check(p.MaxTrackAgeSeconds > 0, "maxTrackAge", p.MaxTrackAgeSeconds)
	check(p.DepthScale > 0, "depthScale", p.DepthScale)
	check(p.ThresholdCentimeters > 0, "thresholdCm", p.ThresholdCentimeters)
	check(validTrajectory(p.TrajectoryLimit), "trajectoryLimit", p.TrajectoryLimit)
	check(p.UnclipMargin >= 0, "unclipMargin", p.UnclipMargin)
	check(p.NormalizeWorkers > 0, "normalizeWorkers", p.NormalizeWorkers)

	if _, err := tracker.ParsePolicy(string(p.Association)); err != nil {
		errs = append(errs, invalid("association", p.Association))
	}

	for _, c := range p.WorkerCores {
		check(c >= 0 && c < 64, "workerCores", c)
	}

	return errors.Join(errs...)
}

func invalid(field string, value any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidConfig, field, value)
}

func validBlur(size int) bool {
	return size > 0 && size%2 == 1
}

func validTrajectory(n int) bool {
	return n == 0 || n >= 2
}

// Config is the mutex guarded live configuration.  Setters validate their
// input and keep the previous value when it is rejected, changes apply from
// the next frame.
type Config struct {
	mu  sync.RWMutex
	p   Params
	log logrus.FieldLogger
}

// NewConfig returns a config holding p, which must be valid
func NewConfig(p Params, log logrus.FieldLogger) (*Config, error) {

	if log == nil {
		log = logrus.StandardLogger()
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	p.WorkerCores = append([]int(nil), p.WorkerCores...)

	return &Config{
		p:   p,
		log: log,
	}, nil
}

// DefaultConfig returns a config holding DefaultParams
func DefaultConfig(log logrus.FieldLogger) *Config {
	c, _ := NewConfig(DefaultParams(), log)
	return c
}

// LoadConfig reads a JSON configuration file.  Fields absent from the file
// keep their defaults.
func LoadConfig(path string, log logrus.FieldLogger) (*Config, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return ParseConfig(string(data), log)
}

// ParseConfig builds a config from JSON applied over the defaults
func ParseConfig(data string, log logrus.FieldLogger) (*Config, error) {

	if !gjson.Valid(data) {
		return nil, fmt.Errorf("%w: config is not valid JSON", ErrInvalidConfig)
	}

	p := DefaultParams()
	var errs []error

	gjson.Parse(data).ForEach(func(key, value gjson.Result) bool {
		f, ok := fieldsByKey[key.String()]

		if !ok {
			errs = append(errs, fmt.Errorf("%w: unknown field %q", ErrInvalidConfig, key.String()))
			return true
		}

		if err := f.decode(&p, value); err != nil {
			errs = append(errs, err)
		}
		return true
	})

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return NewConfig(p, log)
}

// Snapshot returns a copy of the current parameters
func (c *Config) Snapshot() Params {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.p
	p.WorkerCores = append([]int(nil), c.p.WorkerCores...)
	return p
}

// update applies fn to a copy of the parameters and stores it if it
// validates, otherwise the rejection is logged and the old value kept
func (c *Config) update(field string, value any, fn func(p *Params)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.p
	fn(&next)

	if err := next.Validate(); err != nil {
		c.log.WithFields(logrus.Fields{
			"field": field,
			"value": value,
		}).Warn("configuration change rejected")

		return fmt.Errorf("%w: %s=%v", ErrInvalidConfig, field, value)
	}

	c.p = next

	c.log.WithFields(logrus.Fields{
		"field": field,
		"value": value,
	}).Info("configuration changed")

	return nil
}

// SetBlurSize sets the Gaussian kernel size, it must be odd and positive
func (c *Config) SetBlurSize(size int) error {
	return c.update("blurSize", size, func(p *Params) {
		p.BlurSize = size
	})
}

// SetAreaBands sets the single and double occupancy area limits
func (c *Config) SetAreaBands(singleMax, doubleMax float64) error {
	return c.update("areaBands", [2]float64{singleMax, doubleMax}, func(p *Params) {
		p.SingleMaxArea = singleMax
		p.DoubleMaxArea = doubleMax
	})
}

// SetMinBlobArea sets the smallest blob area considered for tracking
func (c *Config) SetMinBlobArea(area float64) error {
	return c.update("minBlobArea", area, func(p *Params) {
		p.MinBlobArea = area
	})
}

// SetMaxTrackAge sets how many seconds an unmatched track lives
func (c *Config) SetMaxTrackAge(seconds float64) error {
	return c.update("maxTrackAge", seconds, func(p *Params) {
		p.MaxTrackAgeSeconds = seconds
	})
}

// SetGate sets the association gate
func (c *Config) SetGate(xNear, yNear int) error {
	return c.update("gate", [2]int{xNear, yNear}, func(p *Params) {
		p.XNear = xNear
		p.YNear = yNear
	})
}

// SetThresholdCentimeters sets the depth clip distance
func (c *Config) SetThresholdCentimeters(cm float64) error {
	return c.update("thresholdCm", cm, func(p *Params) {
		p.ThresholdCentimeters = cm
	})
}

// SetTrajectoryLimit bounds the trajectory of tracks created from now on,
// zero is unbounded
func (c *Config) SetTrajectoryLimit(n int) error {
	return c.update("trajectoryLimit", n, func(p *Params) {
		p.TrajectoryLimit = n
	})
}

// SetUnclipMargin sets the blob polygon expansion in pixels
func (c *Config) SetUnclipMargin(margin float64) error {
	return c.update("unclipMargin", margin, func(p *Params) {
		p.UnclipMargin = margin
	})
}

// SetAssociation selects the association policy by name
func (c *Config) SetAssociation(name string) error {
	return c.update("association", name, func(p *Params) {
		p.Association = tracker.Policy(name)
		if policy, err := tracker.ParsePolicy(name); err == nil {
			p.Association = policy
		}
	})
}

// JSON renders the current configuration
func (c *Config) JSON() string {
	p := c.Snapshot()
	out := "{}"

	for _, f := range fields {
		out, _ = sjson.Set(out, f.key, f.encode(p))
	}

	return out
}

// Apply changes the fields present in a JSON object through the validated
// setters.  Fields are applied in a stable order, accepted fields stay
// applied when others are rejected.  The keys applied are returned.
func (c *Config) Apply(patch string) ([]string, error) {

	if !gjson.Valid(patch) {
		return nil, fmt.Errorf("%w: patch is not valid JSON", ErrInvalidConfig)
	}

	parsed := gjson.Parse(patch)

	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: patch must be a JSON object", ErrInvalidConfig)
	}

	values := make(map[string]gjson.Result)
	var keys []string

	parsed.ForEach(func(key, value gjson.Result) bool {
		keys = append(keys, key.String())
		values[key.String()] = value
		return true
	})
	sort.Strings(keys)

	var applied []string
	var errs []error

	for _, key := range keys {
		f, ok := fieldsByKey[key]

		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w: unknown field %q", ErrInvalidConfig, key))
			continue
		case f.set == nil:
			errs = append(errs, fmt.Errorf("%w: %s", ErrFixedField, key))
			continue
		}

		if err := f.set(c, values[key], values); err != nil {
			errs = append(errs, err)
			continue
		}

		applied = append(applied, key)
	}

	return applied, errors.Join(errs...)
}
