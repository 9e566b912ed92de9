package shutdown

import (
	"context"
	"os"
	"slices"
	"testing"
)

func TestSignals_IncludesInterrupt(t *testing.T) {
	if !slices.Contains(Signals(), os.Interrupt) {
		t.Errorf("Signals() = %v, want os.Interrupt among them", Signals())
	}
}

func TestContext_FollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := Context(parent)
	defer stop()

	if ctx.Err() != nil {
		t.Fatalf("fresh context already done: %v", ctx.Err())
	}
	cancel()
	<-ctx.Done()
	if ctx.Err() != context.Canceled {
		t.Errorf("Err() = %v, want context.Canceled", ctx.Err())
	}
}

func TestContext_StopCancels(t *testing.T) {
	ctx, stop := Context(context.Background())
	stop()
	<-ctx.Done()
}
