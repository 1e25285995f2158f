package chat

import (
	"context"
	"log/slog"
	"strings"

	"climatecentre/internal/content/models"
	contentservice "climatecentre/internal/content/service"
	"climatecentre/internal/platform/config"
)

// FallbackMessage is returned whenever the upstream fails or answers
// with an unusable shape. Visitors always get a reply.
const FallbackMessage = "Sorry, I could not answer that right now. Please try again in a moment, " +
	"or browse the climate information pages for Ghana-specific guidance."

// Generator produces text for a prompt. Satisfied by *Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// KnowledgeBase is the slice of the content service used for prompt
// augmentation.
type KnowledgeBase interface {
	ListArticles(ctx context.Context, category string) ([]contentservice.ArticleView, error)
	ListDataSources(ctx context.Context) ([]models.DataSource, error)
}

type Service struct {
	generator Generator
	knowledge KnowledgeBase
	cfg       config.ChatConfig
	logger    *slog.Logger
}

func NewService(generator Generator, knowledge KnowledgeBase, cfg config.ChatConfig, logger *slog.Logger) *Service {
	return &Service{generator: generator, knowledge: knowledge, cfg: cfg, logger: logger}
}

// Ask builds the augmented prompt and queries the generator. Failures
// degrade to FallbackMessage; the error is logged, never surfaced.
func (s *Service) Ask(ctx context.Context, question string) string {
	prompt := s.buildPrompt(ctx, question)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "chat generation failed", "error", err)
		return FallbackMessage
	}
	return answer
}

// buildPrompt layers the system prompt, the optional knowledge-base
// context, and the visitor's question. Augmentation failures are
// logged and skipped; a thinner prompt beats no answer.
func (s *Service) buildPrompt(ctx context.Context, question string) string {
	var b strings.Builder
	b.WriteString(s.cfg.SystemPrompt)
	b.WriteString("\n")

	if s.cfg.UseClimateContent {
		if articles, err := s.knowledge.ListArticles(ctx, ""); err != nil {
			s.logger.WarnContext(ctx, "prompt augmentation skipped climate content", "error", err)
		} else if len(articles) > 0 {
			b.WriteString("\nReference material from the Climate Information Centre:\n")
			for i, article := range articles {
				if i == maxPromptArticles {
					break
				}
				b.WriteString("- ")
				b.WriteString(article.Title)
				b.WriteString(" (")
				b.WriteString(article.Category)
				b.WriteString("): ")
				b.WriteString(snippet(article.Content))
				b.WriteString("\n")
			}
		}
	}

	if s.cfg.UseExternalData {
		if sources, err := s.knowledge.ListDataSources(ctx); err != nil {
			s.logger.WarnContext(ctx, "prompt augmentation skipped data sources", "error", err)
		} else if len(sources) > 0 {
			b.WriteString("\nExternal data sources you may cite:\n")
			for i, source := range sources {
				if i == maxPromptSources {
					break
				}
				b.WriteString("- ")
				b.WriteString(source.Name)
				b.WriteString(" (")
				b.WriteString(source.Category)
				b.WriteString("): ")
				b.WriteString(source.URL)
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\nVisitor question: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

const (
	maxPromptArticles = 8
	maxPromptSources  = 8
	maxSnippetRunes   = 280
)

func snippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= maxSnippetRunes {
		return content
	}
	return string(runes[:maxSnippetRunes]) + "..."
}
