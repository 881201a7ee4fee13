package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/gunvortv/internal/config"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/utils"
	"golang.org/x/sync/singleflight"
)

// ErrAIDisabled no Gemini key configured
var ErrAIDisabled = errors.New("AI features are not configured")

const (
	summaryTTL      = 24 * time.Hour
	generateTimeout = 30 * time.Second
)

// generateFunc one model call; jsonOutput asks for a JSON answer
type generateFunc func(ctx context.Context, prompt string, jsonOutput bool) (string, error)

// detached drops the caller's cancellation and bounds the call by generateTimeout
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), generateTimeout)
}

func newGenerator(cfg config.GeminiConfig) generateFunc {
	client := utils.NewGeminiClient(cfg.APIKey, cfg.Model)
	if cfg.Endpoint != "" {
		client.Endpoint = cfg.Endpoint
	}
	return client.Generate
}

// NewAIStore cache shared by the AI services
func NewAIStore() *cache.Cache {
	return cache.New(time.Hour, 10*time.Minute)
}

// SummaryService short AI summaries of content descriptions
type SummaryService struct {
	enabled  bool
	generate generateFunc
	store    *cache.Cache
	sf       singleflight.Group
}

// NewSummaryService a nil store gets a private one
func NewSummaryService(cfg config.GeminiConfig, store *cache.Cache) *SummaryService {
	if store == nil {
		store = NewAIStore()
	}
	return &SummaryService{
		enabled:  cfg.APIKey != "",
		generate: newGenerator(cfg),
		store:    store,
	}
}

// Enabled reports whether summaries can be generated
func (s *SummaryService) Enabled() bool {
	return s.enabled
}

// Summarize returns a cached or freshly generated summary of the item
func (s *SummaryService) Summarize(ctx context.Context, item *model.ContentItem) (string, error) {
	if !s.Enabled() {
		return "", ErrAIDisabled
	}
	if strings.TrimSpace(item.Description) == "" {
		return "", nil
	}

	// keyed by description so catalog edits invalidate the summary
	key := "summary:" + item.ID + ":" + digest(item.Description)
	if v, ok := s.store.Get(key); ok {
		return v.(string), nil
	}

	ch := s.sf.DoChan(key, func() (interface{}, error) {
		gctx, cancel := detached(ctx)
		defer cancel()
		text, err := s.generate(gctx, summaryPrompt(item), false)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		s.store.Set(key, text, summaryTTL)
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			logging.Warn().Err(res.Err).Str("content_id", item.ID).Msg("[SummaryService] generation failed")
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func summaryPrompt(item *model.ContentItem) string {
	return fmt.Sprintf(
		"Summarize the following %s description in one or two sentences for a streaming catalog. "+
			"Do not add facts that are not in the description.\n\nTitle: %s\nDescription: %s",
		item.Type, item.Title, item.Description)
}
