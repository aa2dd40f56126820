package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseTaskName tests task name normalization
func TestParseTaskName(t *testing.T) {
	task, err := ParseTaskName("  SWLS ")
	if err != nil {
		t.Fatalf("ParseTaskName failed: %v", err)
	}
	if task != "swls" {
		t.Errorf("Expected lowercase trimmed task name, got %q", task)
	}

	if _, err := ParseTaskName("   "); err == nil {
		t.Error("Expected error for blank task name")
	}
}

// TestFingerprintColumns tests order independence of table fingerprints
func TestFingerprintColumns(t *testing.T) {
	a := FingerprintColumns([]string{"id", "SWLS01", "SWLS02"})
	b := FingerprintColumns([]string{"SWLS02", "id", "SWLS01"})
	if a != b {
		t.Errorf("Fingerprint should be order independent: %s != %s", a, b)
	}

	c := FingerprintColumns([]string{"id", "SWLS01"})
	if a == c {
		t.Error("Different column sets must not collide")
	}
}
