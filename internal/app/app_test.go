package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

func TestAbortShutsDownTracingWithDeadline(t *testing.T) {
	calls := 0
	var hadDeadline bool
	shutdown := func(ctx context.Context) error {
		calls++
		_, hadDeadline = ctx.Deadline()
		return errors.New("exporter unreachable")
	}

	abort(logger.Nop(), shutdown, time.Second)

	if calls != 1 {
		t.Fatalf("shutdown calls=%d want 1", calls)
	}
	if !hadDeadline {
		t.Fatalf("shutdown ctx has no deadline")
	}
}

func TestNewFailsWhenRequiredArtifactMissing(t *testing.T) {
	t.Setenv("ATTRITION_CONFIG_PATH", "")
	t.Setenv("ATTRITION_ARTIFACT_REQUIRED", "true")
	t.Setenv("ATTRITION_ARTIFACT_PATH", filepath.Join(t.TempDir(), "missing.json"))

	a, err := New(context.Background())
	if err == nil {
		a.Close()
		t.Fatalf("expected startup error for missing artifact")
	}
	if a != nil {
		t.Fatalf("app returned alongside error")
	}
}
