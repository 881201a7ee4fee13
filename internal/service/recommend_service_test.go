package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/user/gunvortv/internal/model"
)

func suggestionIDs(items []model.Suggestion) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.Content.ID)
	}
	return out
}

func newTestRecommender(t *testing.T, answer func(prompt string) (string, error)) (*RecommendService, *int) {
	t.Helper()
	calls := 0
	r := NewRecommendService(configGemini("key"), newTestService(t), nil)
	r.generate = func(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
		calls++
		if !jsonOutput {
			t.Error("suggestions requested without json output")
		}
		return answer(prompt)
	}
	return r, &calls
}

func TestRecommend(t *testing.T) {
	var prompt string
	r, calls := newTestRecommender(t, func(p string) (string, error) {
		prompt = p
		return "```json\n" + `[
			{"id": "m2", "reason": "More desert action"},
			{"id": "ghost", "reason": "not in the catalog"},
			{"id": "m1", "reason": "already saved"},
			{"title": "family", "reason": "Matched by title"},
			{"id": "m2"}
		]` + "\n```", nil
	})
	ctx := context.Background()

	got, err := r.Recommend(ctx, []string{"m1"}, 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if ids := suggestionIDs(got); !reflect.DeepEqual(ids, []string{"m2", "s1"}) {
		t.Fatalf("recommendations = %v", ids)
	}
	if got[0].Reason != "More desert action" || got[0].Content.Title != "Harbor" {
		t.Errorf("first = %+v", got[0])
	}

	saved, catalog, _ := strings.Cut(prompt, "\nCatalog:\n")
	if !strings.Contains(saved, "id: m1 | title: Desert Wind") {
		t.Errorf("saved items missing from prompt:\n%s", saved)
	}
	if strings.Contains(catalog, "id: m1 ") || !strings.Contains(catalog, "id: m2 ") {
		t.Errorf("catalog section wrong:\n%s", catalog)
	}

	// duplicate wishlist ids hit the same entry
	r.Recommend(ctx, []string{"m1", "m1"}, 5)
	if *calls != 1 {
		t.Errorf("generator called %d times, want 1", *calls)
	}

	one, _ := r.Recommend(ctx, []string{"m1"}, 1)
	if len(one) != 1 || *calls != 2 {
		t.Errorf("limit 1 = %v after %d calls", suggestionIDs(one), *calls)
	}
}

func TestRecommendEmptyWishlist(t *testing.T) {
	var prompt string
	r, _ := newTestRecommender(t, func(p string) (string, error) {
		prompt = p
		return `[{"id": "s1"}]`, nil
	})
	got, err := r.Recommend(context.Background(), nil, 0)
	if err != nil || !reflect.DeepEqual(suggestionIDs(got), []string{"s1"}) {
		t.Fatalf("Recommend = %v, %v", suggestionIDs(got), err)
	}
	if !strings.Contains(prompt, "up to 5 items") || !strings.Contains(prompt, "(none") {
		t.Errorf("prompt = %s", prompt)
	}
}

func TestRecommendBadAnswerNotCached(t *testing.T) {
	r, calls := newTestRecommender(t, func(string) (string, error) {
		return "I cannot help with that.", nil
	})
	for i := 0; i < 2; i++ {
		if _, err := r.Recommend(context.Background(), []string{"m1"}, 3); err == nil {
			t.Fatal("expected error for a non-JSON answer")
		}
	}
	if *calls != 2 {
		t.Errorf("failed answer was cached")
	}

	upstream := errors.New("quota")
	r.generate = func(ctx context.Context, prompt string, jsonOutput bool) (string, error) { return "", upstream }
	if _, err := r.Recommend(context.Background(), nil, 3); !errors.Is(err, upstream) {
		t.Errorf("err = %v", err)
	}
}

func TestRecommendDisabled(t *testing.T) {
	r := NewRecommendService(configGemini(""), newTestService(t), nil)
	if _, err := r.Recommend(context.Background(), nil, 5); !errors.Is(err, ErrAIDisabled) {
		t.Errorf("Recommend err = %v", err)
	}
	if _, err := r.Discover(context.Background(), "drama", 5); !errors.Is(err, ErrAIDisabled) {
		t.Errorf("Discover err = %v", err)
	}
}

func TestDiscover(t *testing.T) {
	var prompt string
	r, calls := newTestRecommender(t, func(p string) (string, error) {
		prompt = p
		return `{"suggestions": ["Harbor", "Some Other Show", "short"]}`, nil
	})
	ctx := context.Background()

	got, err := r.Discover(ctx, "  something by the sea  ", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if ids := suggestionIDs(got); !reflect.DeepEqual(ids, []string{"m2", "sf"}) {
		t.Fatalf("discover = %v", ids)
	}
	if !strings.Contains(prompt, "Request: something by the sea\n") {
		t.Errorf("request missing from prompt:\n%s", prompt)
	}

	r.Discover(ctx, "SOMETHING BY THE SEA", 5)
	if *calls != 1 {
		t.Errorf("case-only change missed the cache")
	}

	empty, err := r.Discover(ctx, "   ", 5)
	if err != nil || len(empty) != 0 || *calls != 1 {
		t.Errorf("blank request = %v, %v", empty, err)
	}
}

func TestParsePicks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []pick
		err  bool
	}{
		{"objects", `[{"id":"a","reason":"r"}]`, []pick{{ID: "a", Reason: "r"}}, false},
		{"titles", `["A","B"]`, []pick{{Title: "A"}, {Title: "B"}}, false},
		{"fenced", "```json\n[{\"id\":\"a\"}]\n```", []pick{{ID: "a"}}, false},
		{"bare fence", "```\n[\"A\"]\n```", []pick{{Title: "A"}}, false},
		{"wrapped", `{"suggestions":["A"]}`, []pick{{Title: "A"}}, false},
		{"empty", `[]`, []pick{}, false},
		{"prose", `Here you go`, nil, true},
		{"object", `{"id":"a"}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePicks(tt.in)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v", err)
			}
			if !tt.err && len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
