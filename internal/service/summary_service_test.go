package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/gunvortv/internal/config"
	"github.com/user/gunvortv/internal/model"
)

func configGemini(key string) config.GeminiConfig {
	return config.GeminiConfig{APIKey: key, Model: "test-model"}
}

func TestSummaryService(t *testing.T) {
	calls := 0
	s := NewSummaryService(configGemini("key"), nil)
	s.generate = func(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
		calls++
		return "  A caravan story.  ", nil
	}

	item := &model.ContentItem{ID: "m1", Title: "Desert Wind", Type: model.TypeMovie, Description: "A caravan crosses the sand."}
	for i := 0; i < 3; i++ {
		got, err := s.Summarize(context.Background(), item)
		if err != nil || got != "A caravan story." {
			t.Fatalf("Summarize = %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("generator called %d times, want 1", calls)
	}

	item.Description = "Edited description."
	s.Summarize(context.Background(), item)
	if calls != 2 {
		t.Errorf("changed description reused stale summary")
	}

	disabled := NewSummaryService(configGemini(""), nil)
	if _, err := disabled.Summarize(context.Background(), item); !errors.Is(err, ErrAIDisabled) {
		t.Errorf("err = %v, want ErrAIDisabled", err)
	}
}

func TestSummaryServicesDoNotShareEntries(t *testing.T) {
	a := NewSummaryService(configGemini("key"), nil)
	a.generate = func(ctx context.Context, prompt string, jsonOutput bool) (string, error) { return "from a", nil }
	b := NewSummaryService(configGemini("key"), nil)
	b.generate = func(ctx context.Context, prompt string, jsonOutput bool) (string, error) { return "from b", nil }

	item := &model.ContentItem{ID: "m1", Description: "Text."}
	if got, _ := a.Summarize(context.Background(), item); got != "from a" {
		t.Fatalf("a = %q", got)
	}
	if got, _ := b.Summarize(context.Background(), item); got != "from b" {
		t.Errorf("b served a's cached summary: %q", got)
	}
}

func TestSummaryOutlivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	s := NewSummaryService(configGemini("key"), nil)
	s.generate = func(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, ok := ctx.Deadline(); !ok {
			return "", errors.New("generation has no deadline")
		}
		return "Done", nil
	}
	item := &model.ContentItem{ID: "m1", Description: "A caravan crosses the sand."}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := s.Summarize(ctx, item)
		first <- err
	}()

	<-started
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v", err)
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for s.store.ItemCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("generation abandoned with its first caller")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := s.Summarize(context.Background(), item)
	if err != nil || got != "Done" {
		t.Fatalf("second caller = %q, %v", got, err)
	}
	if calls.Load() != 1 {
		t.Errorf("generator called %d times, want 1", calls.Load())
	}
}
