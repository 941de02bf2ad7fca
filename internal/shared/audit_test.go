package shared

import (
	"testing"
	"time"
)

func TestStampAtDefaultsZeroTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	var log AuditLog
	log.stampAt(now)
	if !log.At.Equal(now) {
		t.Fatalf("unset At should take the stamp, got %v", log.At)
	}

	explicit := now.Add(-time.Hour)
	log = AuditLog{At: explicit}
	log.stampAt(now)
	if !log.At.Equal(explicit) {
		t.Fatalf("explicit At must be kept, got %v", log.At)
	}
}
