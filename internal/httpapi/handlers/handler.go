package handlers

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell/internal/ai"
	"github.com/inkwell-app/inkwell/internal/bridge"
	"github.com/inkwell-app/inkwell/internal/chat"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/store/rabbitmq"
)

type Handler struct {
	Cfg          config.Config
	Repo         *chat.Repo
	Bridge       *bridge.Bridge
	Coordinators *chat.Manager

	// Rabbit is nil when the async job path is not configured.
	Rabbit *rabbitmq.Publisher
}

func NewHandler(gdb *gorm.DB, cfg config.Config, b *bridge.Bridge, rabbit *rabbitmq.Publisher) (*Handler, error) {
	repo := chat.NewRepo(gdb)

	provider, err := StreamProviderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Handler{
		Cfg:          cfg,
		Repo:         repo,
		Bridge:       b,
		Coordinators: chat.NewManager(repo, provider, b, cfg.ChatContextWindowSize),
		Rabbit:       rabbit,
	}, nil
}

// StreamProviderFromConfig resolves the configured provider through the
// registry and requires streaming support; the coordinator has no
// non-streaming path.
func StreamProviderFromConfig(cfg config.Config) (ai.StreamProvider, error) {
	reg := ai.NewRegistry()
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	return reg.GetStream(context.Background(), cfg.AIProvider, "")
}
