package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteHRIRRecord writes a JSON impulse-response record for subject and
// azimuth into dir using the catalog naming convention. A nil right channel
// is omitted from the document, which yields a malformed record.
func WriteHRIRRecord(t *testing.T, dir, subject string, azimuth int, left, right []float64) string {
	t.Helper()
	doc := map[string]any{
		"hrir_left":   left,
		"sample_rate": 44100,
	}
	if right != nil {
		doc["hrir_right"] = right
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal hrir record: %v", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("Subject_%s_%d_0.json", subject, azimuth))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write hrir record: %v", err)
	}
	return path
}

// WriteHRIRCatalog writes one record per azimuth for subject. Each azimuth
// gets a distinct deterministic left/right pair.
func WriteHRIRCatalog(t *testing.T, dir, subject string, azimuths []int, taps int) {
	t.Helper()
	for i, az := range azimuths {
		seed := int64(1000*len(subject) + 10*i)
		WriteHRIRRecord(t, dir, subject, az, DecayingIR(seed, taps, 1), DecayingIR(seed+1, taps, 3))
	}
}
