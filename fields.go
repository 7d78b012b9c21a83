package depthcount

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/swdee/go-depthcount/tracker"
)

// field maps a JSON configuration key onto Params.  decode is used when
// loading a file, set applies a runtime change and is nil for fields that
// can only be given at startup.
type field struct {
	key    string
	encode func(p Params) any
	decode func(p *Params, v gjson.Result) error
	set    func(c *Config, v gjson.Result, patch map[string]gjson.Result) error
}

var fields = []field{
	{
		key:    "width",
		encode: func(p Params) any { return p.Width },
		decode: intField("width", func(p *Params, n int) { p.Width = n }),
	},
	{
		key:    "height",
		encode: func(p Params) any { return p.Height },
		decode: intField("height", func(p *Params, n int) { p.Height = n }),
	},
	{
		key:    "fps",
		encode: func(p Params) any { return p.FPS },
		decode: intField("fps", func(p *Params, n int) { p.FPS = n }),
	},
	{
		key:    "blurSize",
		encode: func(p Params) any { return p.BlurSize },
		decode: intField("blurSize", func(p *Params, n int) { p.BlurSize = n }),
		set: func(c *Config, v gjson.Result, _ map[string]gjson.Result) error {
			n, err := asInt("blurSize", v)
			if err != nil {
				return err
			}
			return c.SetBlurSize(n)
		},
	},
	{
		key:    "minBlobArea",
		encode: func(p Params) any { return p.MinBlobArea },
		decode: floatField("minBlobArea", func(p *Params, f float64) { p.MinBlobArea = f }),
		set: func(c *Config, v gjson.Result, _ map[string]gjson.Result) error {
			f, err := asFloat("minBlobArea", v)
			if err != nil {
				return err
			}
			return c.SetMinBlobArea(f)
		},
	},
	{
		key:    "singleMaxArea",
		encode: func(p Params) any { return p.SingleMaxArea },
		decode: floatField("singleMaxArea", func(p *Params, f float64) { p.SingleMaxArea = f }),
		set:    setBands,
	},
	{
		key:    "doubleMaxArea",
		encode: func(p Params) any { return p.DoubleMaxArea },
		decode: floatField("doubleMaxArea", func(p *Params, f float64) { p.DoubleMaxArea = f }),
		set:    setBands,
	},
	{
		key:    "xNear",
		encode: func(p Params) any { return p.XNear },
		decode: intField("xNear", func(p *Params, n int) { p.XNear = n }),
		set:    setGate,
	},
	{
		key:    "yNear",
		encode: func(p Params) any { return p.YNear },
		decode: intField("yNear", func(p *Params, n int) { p.YNear = n }),
		set:    setGate,
	},
	{
		key:    "maxTrackAge",
		encode: func(p Params) any { return p.MaxTrackAgeSeconds },
		decode: floatField("maxTrackAge", func(p *Params, f float64) { p.MaxTrackAgeSeconds = f }),
		set: func(c *Config, v gjson.Result, _ map[string]gjson.Result) error {
			f, err := asFloat("maxTrackAge", v)
			if err != nil {
				return err
			}
			return c.SetMaxTrackAge(f)
		},
	},
	{
		key:    "depthScale",
		encode: func(p Params) any { return p.DepthScale },
		decode: floatField("depthScale", func(p *Params, f float64) { p.DepthScale = f }),
	},
	{
		key:    "thresholdCm",
		encode: func(p Params) any { return p.ThresholdCentimeters },
		decode: floatField("thresholdCm", func(p *Params, f float64) { p.ThresholdCentimeters = f }),
		set: func(c *Config, v gjson.Result, _ map[string]gjson.Result) error {
			f, err := asFloat("thresholdCm", v)
			if err != nil {
				return err
			}
			return c.SetThresholdCentimeters(f)
		},
	},
	{
		key:    "trajectoryLimit",
		encode: func(p Params) any { return p.TrajectoryLimit },
		decode: intField("trajectoryLimit", func(p *Params, n int) { p.TrajectoryLimit = n }),
		set: func(c *Config, v gjson.Result, _ map[string]gjson.Result) error {
			n, err := asInt("trajectoryLimit", v)
			if err != nil {
				return err
			}
			return c.SetTrajectoryLimit(n)
		},
	},
	{
		key:    "unclipMargin",
		encode: func(p Params) any { return p.UnclipMargin },
		decode: floatField("unclipMargin", func(p *Params, f float64) { p.UnclipMargin = f }),
		set: func(c *Config, v gjson.Result, _ map[string]gjson.Result) error {
			f, err := asFloat("unclipMargin", v)
			if err != nil {
				return err
			}
			return c.SetUnclipMargin(f)
		},
	},
	{
		key:    "association",
		encode: func(p Params) any { return string(p.Association) },
		decode: func(p *Params, v gjson.Result) error {
			if v.Type != gjson.String {
				return invalid("association", v.Raw)
			}
			policy, err := tracker.ParsePolicy(v.String())
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}
			p.Association = policy
			return nil
		},
		set: func(c *Config, v gjson.Result, _ map[string]gjson.Result) error {
			if v.Type != gjson.String {
				return invalid("association", v.Raw)
			}
			return c.SetAssociation(v.String())
		},
	},
	{
		key:    "normalizeWorkers",
		encode: func(p Params) any { return p.NormalizeWorkers },
		decode: intField("normalizeWorkers", func(p *Params, n int) { p.NormalizeWorkers = n }),
	},
	{
		key: "workerCores",
		encode: func(p Params) any {
			if p.WorkerCores == nil {
				return []int{}
			}
			return p.WorkerCores
		},
		decode: func(p *Params, v gjson.Result) error {
			if !v.IsArray() {
				return invalid("workerCores", v.Raw)
			}
			var cores []int
			for _, e := range v.Array() {
				n, err := asInt("workerCores", e)
				if err != nil {
					return err
				}
				cores = append(cores, n)
			}
			p.WorkerCores = cores
			return nil
		},
	},
}

var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

// setBands applies the area bands as a pair so a patch that moves both
// limits is not rejected half way through
func setBands(c *Config, _ gjson.Result, patch map[string]gjson.Result) error {

	cur := c.Snapshot()
	single, double := cur.SingleMaxArea, cur.DoubleMaxArea

	if v, ok := patch["singleMaxArea"]; ok {
		f, err := asFloat("singleMaxArea", v)
		if err != nil {
			return err
		}
		single = f
	}

	if v, ok := patch["doubleMaxArea"]; ok {
		f, err := asFloat("doubleMaxArea", v)
		if err != nil {
			return err
		}
		double = f
	}

	return c.SetAreaBands(single, double)
}

func setGate(c *Config, _ gjson.Result, patch map[string]gjson.Result) error {

	cur := c.Snapshot()
	x, y := cur.XNear, cur.YNear

	if v, ok := patch["xNear"]; ok {
		n, err := asInt("xNear", v)
		if err != nil {
			return err
		}
		x = n
	}

	if v, ok := patch["yNear"]; ok {
		n, err := asInt("yNear", v)
		if err != nil {
			return err
		}
		y = n
	}

	return c.SetGate(x, y)
}

func intField(key string, fn func(p *Params, n int)) func(*Params, gjson.Result) error {
	return func(p *Params, v gjson.Result) error {
		n, err := asInt(key, v)
		if err != nil {
			return err
		}
		fn(p, n)
		return nil
	}
}

func floatField(key string, fn func(p *Params, f float64)) func(*Params, gjson.Result) error {
	return func(p *Params, v gjson.Result) error {
		f, err := asFloat(key, v)
		if err != nil {
			return err
		}
		fn(p, f)
		return nil
	}
}

// asInt accepts only whole JSON numbers
func asInt(key string, v gjson.Result) (int, error) {
	if v.Type != gjson.Number || v.Num != float64(int(v.Num)) {
		return 0, invalid(key, v.Raw)
	}
	return int(v.Num), nil
}

func asFloat(key string, v gjson.Result) (float64, error) {
	if v.Type != gjson.Number {
		return 0, invalid(key, v.Raw)
	}
	return v.Num, nil
}
