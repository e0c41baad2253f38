package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/cwbudde/algo-binaural/hrir"
)

var (
	// ErrInvalidProfile is returned when a profile lacks a mandatory field.
	ErrInvalidProfile = errors.New("profile: invalid profile")
	// ErrUnknownStem is returned when editing a stem outside StemNames.
	ErrUnknownStem = errors.New("profile: unknown stem")
)

// Store reads and writes profile documents.
type Store struct {
	logger *slog.Logger
	mu     sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a profile store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save writes p to path as indented JSON. The file is replaced atomically,
// so readers see either the old or the new document.
func (s *Store) Save(p *Profile, path string) error {
	if p == nil || p.HRTFSubject == "" {
		return fmt.Errorf("%w: missing hrtf_subject", ErrInvalidProfile)
	}
	if !(p.EffectiveRadius > 0) {
		return fmt.Errorf("%w: effective_radius %g", ErrInvalidProfile, p.EffectiveRadius)
	}
	data, err := json.MarshalIndent(p.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("profile: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".profile-*.json")
	if err != nil {
		return fmt.Errorf("profile: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("profile: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("profile: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("profile: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("profile: replace %s: %w", path, err)
	}
	s.logger.Info("profile saved", "path", path, "subject", p.HRTFSubject, "radius", p.EffectiveRadius)
	return nil
}

// Load reads the profile at path. It always returns a usable profile: an
// unreadable or invalid document yields Default().
func (s *Store) Load(path string) *Profile {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("profile unreadable, using default", "path", path, "error", err)
		return Default()
	}
	p, err := s.decode(data, path)
	if err != nil {
		s.logger.Warn("profile invalid, using default", "path", path, "error", err)
		return Default()
	}
	return p
}

// List returns the sorted paths of the *.json documents in dir.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || e.Name()[0] == '.' {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) decode(data []byte, path string) (*Profile, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	def := Default()
	p := &Profile{
		HeadWidth:       def.HeadWidth,
		HeadLength:      def.HeadLength,
		StemDirections:  zeroStems(),
		CalibrationData: CalibrationData{},
	}

	if err := decodeField(raw, "hrtf_subject", &p.HRTFSubject); err != nil {
		return nil, err
	}
	if p.HRTFSubject == "" {
		return nil, fmt.Errorf("%w: empty hrtf_subject", ErrInvalidProfile)
	}
	if err := decodeField(raw, "effective_radius", &p.EffectiveRadius); err != nil {
		return nil, err
	}
	if !(p.EffectiveRadius > 0) {
		return nil, fmt.Errorf("%w: effective_radius %g", ErrInvalidProfile, p.EffectiveRadius)
	}

	for name, dst := range map[string]any{
		"head_width":       &p.HeadWidth,
		"head_length":      &p.HeadLength,
		"calibration_data": &p.CalibrationData,
		"timestamp":        &p.Timestamp,
	} {
		if _, ok := raw[name]; !ok {
			continue
		}
		if err := decodeField(raw, name, dst); err != nil {
			s.logger.Warn("profile field ignored", "path", path, "field", name, "error", err)
		}
	}
	if p.CalibrationData == nil {
		p.CalibrationData = CalibrationData{}
	}

	s.decodeStems(raw["stem_directions"], p, path)
	return p, nil
}

func decodeField(raw map[string]json.RawMessage, name string, dst any) error {
	msg, ok := raw[name]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidProfile, name)
	}
	if err := json.Unmarshal(msg, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProfile, name, err)
	}
	return nil
}

func (s *Store) decodeStems(msg json.RawMessage, p *Profile, path string) {
	if msg == nil {
		s.logger.Warn("profile has no stem directions, using 0", "path", path)
		return
	}
	var stems map[string]any
	if err := json.Unmarshal(msg, &stems); err != nil {
		s.logger.Warn("profile stem directions invalid, using 0", "path", path, "error", err)
		return
	}
	for _, name := range StemNames {
		v, ok := stems[name]
		if !ok {
			s.logger.Warn("stem direction missing, using 0", "path", path, "stem", name)
			continue
		}
		switch x := v.(type) {
		case float64:
			p.StemDirections[name] = x
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				s.logger.Warn("stem direction not numeric, using 0", "path", path, "stem", name, "value", x)
				continue
			}
			p.StemDirections[name] = f
		default:
			s.logger.Warn("stem direction not numeric, using 0", "path", path, "stem", name, "value", v)
		}
	}
	for name := range stems {
		if !slices.Contains(StemNames, name) {
			s.logger.Warn("unknown stem direction dropped", "path", path, "stem", name)
		}
	}
}

// fullCircle is the candidate set used when the catalog has no azimuths.
var fullCircle = func() []int {
	out := make([]int, 0, 361)
	for a := -180; a <= 180; a++ {
		out = append(out, a)
	}
	return out
}()

// EditStemDirections returns a copy of p with changes applied. Every new
// azimuth is snapped to the catalog of p.HRTFSubject so it stays loadable at
// render time; when the catalog is empty the azimuth is snapped to whole
// degrees in [-180, 180] instead and a warning is logged.
func (s *Store) EditStemDirections(p *Profile, changes map[string]float64, src hrir.Source) (*Profile, error) {
	names := make([]string, 0, len(changes))
	for name := range changes {
		if !slices.Contains(StemNames, name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStem, name)
		}
		names = append(names, name)
	}
	slices.Sort(names)

	out := p.Clone()
	for _, name := range names {
		want := changes[name]
		snapped, ok := src.Snap(out.HRTFSubject, want)
		if !ok {
			snapped, _ = hrir.Snap(want, fullCircle)
			s.logger.Warn("no catalog azimuths, stem direction rounded to whole degrees",
				"subject", out.HRTFSubject, "stem", name, "requested", want, "azimuth", snapped)
		}
		out.StemDirections[name] = snapped
		s.logger.Info("stem direction changed", "stem", name, "requested", want, "azimuth", snapped)
	}
	return out, nil
}

// Update loads the profile at path, applies changes and saves it back.
// Updates through one Store are serialized.
func (s *Store) Update(path string, changes map[string]float64, src hrir.Source) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.EditStemDirections(s.Load(path), changes, src)
	if err != nil {
		return nil, err
	}
	if err := s.Save(p, path); err != nil {
		return nil, err
	}
	return p, nil
}
