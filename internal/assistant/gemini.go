package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/resilience"

	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

var (
	ErrUnavailable = apperr.New("assistant is unavailable right now", apperr.ErrServiceUnavailable)
	ErrEmptyReply  = errors.New("assistant returned an empty reply")
)

const systemInstruction = "You are the assistant of an online bookstore. Help with book recommendations, " +
	"order inquiries and general bookstore information. Keep answers short, friendly and under 200 tokens. " +
	"Use simple markdown: headings, bold, italics and bullet lists."

const historyWindow = 6

// Generator produces an assistant reply for a user message given the
// earlier turns of the session.
type Generator interface {
	Generate(ctx context.Context, history []models.ChatMessage, message string) (string, error)
}

// Prompt wraps the user's message the way the assistant expects it.
func Prompt(message string) string {
	return fmt.Sprintf("As a bookstore assistant, help with: %s. Consider book recommendations, "+
		"order inquiries, and general bookstore information if the user asks, and answer in under 200 tokens.",
		strings.TrimSpace(message))
}

// BuildContents converts the last few non-empty turns plus the new message
// into genai contents.
func BuildContents(history []models.ChatMessage, message string) []*genai.Content {
	filtered := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) != "" {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > historyWindow {
		filtered = filtered[len(filtered)-historyWindow:]
	}

	contents := make([]*genai.Content, 0, len(filtered)+1)
	for _, m := range filtered {
		var role genai.Role = genai.RoleUser
		if m.Sender == models.SenderBot {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(Prompt(message), genai.RoleUser))
}

type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker
}

func NewGemini(ctx context.Context, apiKey, model string, maxTokens int, timeout time.Duration, breaker *gobreaker.CircuitBreaker) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:    client,
		model:     model,
		maxTokens: int32(maxTokens),
		timeout:   timeout,
		breaker:   breaker,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		MaxOutputTokens:   g.maxTokens,
	}
	contents := BuildContents(history, message)

	out, err := g.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return nil, ErrEmptyReply
		}
		return text, nil
	})
	if resilience.IsOpen(err) {
		return "", ErrUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.(string), nil
}
