package cmd

import (
	"context"
	"testing"
	"time"
)

func TestServeStopsWithContext(t *testing.T) {
	env := setupTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var err error
	_ = captureStderr(t, func() {
		err = Execute(ctx, []string{"serve", "--addr", "127.0.0.1:0", "--url", "?status=active"})
	})
	if err != nil {
		t.Fatalf("serve error = %v", err)
	}
	if env.service.requests() != 1 {
		t.Fatalf("expected the initial fetch, got %d requests", env.service.requests())
	}
	if got := env.service.last(t).Get("status"); got != "active" {
		t.Errorf("status = %q, want active", got)
	}
	if env.storedQuery(t) != "" {
		t.Error("serve keeps its location in memory")
	}
}
