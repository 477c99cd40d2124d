package match

import (
	"context"
	"testing"
	"time"
)

func TestPostCommitEffectsSurviveRequestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	detached := postCommitContext(ctx)

	cancel()

	if err := detached.Err(); err != nil {
		t.Fatalf("post-commit context died with the request: %v", err)
	}
	select {
	case <-detached.Done():
		t.Fatal("post-commit context must not observe the request's cancellation")
	default:
	}
}

func TestPostCommitContextKeepsValues(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	ctx, cancel := context.WithTimeout(ctx, time.Nanosecond)
	defer cancel()

	detached := postCommitContext(ctx)
	if detached.Value(key{}) != "v" {
		t.Error("detaching must preserve context values")
	}
}
