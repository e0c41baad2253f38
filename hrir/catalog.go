package hrir

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/cwbudde/algo-binaural/internal/wavio"
)

var recordName = regexp.MustCompile(`^Subject_([^_]+)_(-?\d+)_0\.(wav|json)$`)

type key struct {
	subject string
	azimuth int
}

// Catalog is a directory-backed [Source]. The directory is scanned once on
// first use; decoded sets are cached for the lifetime of the catalog. A
// Catalog is safe for concurrent use.
type Catalog struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	scanned bool
	paths   map[key]string
	angles  map[string][]int
	sets    map[key]*Set
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog returns a catalog over the records in dir.
func NewCatalog(dir string, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		dir:    dir,
		logger: slog.Default(),
		sets:   make(map[key]*Set),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Refresh drops the directory index and all cached sets.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanned = false
	c.paths = nil
	c.angles = nil
	c.sets = make(map[key]*Set)
}

// Angles returns the sorted azimuths measured for subject. Unknown subjects
// and unreadable directories yield an empty list.
func (c *Catalog) Angles(subject string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanLocked()
	return slices.Clone(c.angles[subject])
}

// Subjects returns the sorted subject ids present in the catalog.
func (c *Catalog) Subjects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanLocked()
	out := make([]string, 0, len(c.angles))
	for s := range c.angles {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Snap maps angle to the nearest azimuth measured for subject. When the
// subject has no records the angle is returned unchanged with ok == false
// and a warning is logged.
func (c *Catalog) Snap(subject string, angle float64) (float64, bool) {
	snapped, ok := Snap(angle, c.Angles(subject))
	if !ok {
		c.logger.Warn("no hrir azimuths for subject, angle left unsnapped",
			"subject", subject, "angle", angle, "dir", c.dir)
	}
	return snapped, ok
}

// Load returns the impulse responses for subject at azimuth.
func (c *Catalog) Load(subject string, azimuth int) (*Set, error) {
	k := key{subject: subject, azimuth: azimuth}

	c.mu.Lock()
	c.scanLocked()
	if set, ok := c.sets[k]; ok {
		c.mu.Unlock()
		return set, nil
	}
	path, ok := c.paths[k]
	c.mu.Unlock()

	if !ok {
		return nil, &LookupError{Subject: subject, Azimuth: azimuth, Err: ErrMissingHRIR}
	}

	set, err := decodeRecord(path)
	if err != nil {
		return nil, &LookupError{Subject: subject, Azimuth: azimuth, Path: path, Err: err}
	}
	set.Subject = subject
	set.Azimuth = azimuth

	c.mu.Lock()
	if cached, ok := c.sets[k]; ok {
		set = cached
	} else {
		c.sets[k] = set
	}
	c.mu.Unlock()

	c.logger.Debug("hrir loaded", "subject", subject, "azimuth", azimuth, "taps", set.Taps())
	return set, nil
}

func (c *Catalog) scanLocked() {
	if c.scanned {
		return
	}
	c.scanned = true
	c.paths = make(map[key]string)
	c.angles = make(map[string][]int)

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn("hrir catalog unreadable", "dir", c.dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := recordName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		az, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		k := key{subject: m[1], azimuth: az}
		path := filepath.Join(c.dir, e.Name())
		if prev, dup := c.paths[k]; dup {
			// wav records take precedence over json for the same azimuth.
			if filepath.Ext(prev) == ".wav" {
				continue
			}
			c.paths[k] = path
			continue
		}
		c.paths[k] = path
		c.angles[k.subject] = append(c.angles[k.subject], az)
	}
	for s := range c.angles {
		slices.Sort(c.angles[s])
	}
	c.logger.Debug("hrir catalog scanned", "dir", c.dir, "records", len(c.paths), "subjects", len(c.angles))
}

type jsonRecord struct {
	Left       []float64 `json:"hrir_left"`
	Right      []float64 `json:"hrir_right"`
	SampleRate int       `json:"sample_rate"`
}

func decodeRecord(path string) (*Set, error) {
	switch filepath.Ext(path) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var rec jsonRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHRIR, err)
		}
		if len(rec.Left) == 0 || len(rec.Right) == 0 {
			return nil, fmt.Errorf("%w: missing hrir_left or hrir_right", ErrMalformedHRIR)
		}
		if rec.SampleRate <= 0 {
			rec.SampleRate = DefaultSampleRate
		}
		return &Set{Left: rec.Left, Right: rec.Right, SampleRate: rec.SampleRate}, nil
	case ".wav":
		a, err := wavio.Read(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHRIR, err)
		}
		if len(a.Channels) < 2 || a.Frames() == 0 {
			return nil, fmt.Errorf("%w: need 2 channels, got %d", ErrMalformedHRIR, len(a.Channels))
		}
		return &Set{Left: a.Channels[0], Right: a.Channels[1], SampleRate: a.SampleRate}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrMalformedHRIR, filepath.Ext(path))
	}
}
