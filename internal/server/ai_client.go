package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"

type messageRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type messageResponse struct {
	Content      string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// messageBackend is the generation capability behind the twist service.
// The real backend talks to the Anthropic Messages API; tests and keyless
// deployments use the mock.
type messageBackend interface {
	sendMessage(ctx context.Context, req messageRequest) (messageResponse, error)
}

type anthropicChatRequest struct {
	Model       string                 `json:"model"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature,omitempty"`
	System      string                 `json:"system,omitempty"`
	Messages    []anthropicChatMessage `json:"messages"`
}

type anthropicChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicChatResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type anthropicBackend struct {
	apiKey string
	model  string
	client *http.Client
}

func newAnthropicBackend(apiKey, model string) *anthropicBackend {
	return &anthropicBackend{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *anthropicBackend) sendMessage(ctx context.Context, req messageRequest) (messageResponse, error) {
	if strings.TrimSpace(b.apiKey) == "" {
		return messageResponse{}, errors.New("anthropic API key is not configured")
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}
	reqBody := anthropicChatRequest{
		Model:       b.model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages: []anthropicChatMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return messageResponse{}, fmt.Errorf("failed to build anthropic request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(payload))
	if err != nil {
		return messageResponse{}, fmt.Errorf("failed to build anthropic request")
	}
	httpReq.Header.Set("x-api-key", strings.TrimSpace(b.apiKey))
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return messageResponse{}, fmt.Errorf("failed to reach anthropic")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return messageResponse{}, fmt.Errorf("failed to read anthropic response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return messageResponse{}, fmt.Errorf("anthropic request failed (%d)", resp.StatusCode)
	}

	var parsed anthropicChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return messageResponse{}, fmt.Errorf("failed to parse anthropic response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return messageResponse{}, fmt.Errorf("anthropic error: %s", parsed.Error.Message)
	}
	text := ""
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return messageResponse{}, errors.New("anthropic returned no text content")
	}

	return messageResponse{
		Content:      text,
		StopReason:   parsed.StopReason,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}

// mockBackend serves canned twists with a simulated latency. It stands in
// for the real backend when no API key is configured.
type mockBackend struct {
	delay time.Duration
}

var mockTwists = []string{
	"Suddenly, gravity reversed itself, but only for objects that start with the letter 'P'. Pizza slices, pencils, and particularly surprised pigeons began floating toward the ceiling.",

	"At that exact moment, all the furniture in the room developed strong opinions about interior design and started rearranging itself while passive-aggressively judging everyone's decorating choices.",

	"Without warning, the room filled with a thick fog that smelled suspiciously like grandma's perfume mixed with old cheese. The fog also narrated everything happening in a sports commentator voice.",

	"Plot twist: The protagonist was actually three raccoons in a trench coat the entire time. The raccoons are now arguing about who gets to control the left arm.",

	"Just then, everyone's inner monologue became audible to everyone else, but translated through five languages and spoken by a confused parrot.",

	"A time traveler from 10 minutes in the future burst through the door, out of breath, just to say 'Whatever you're about to do, do it, it's hilarious' before disappearing again.",

	"The lights dimmed and a spotlight appeared from nowhere. The situation had inexplicably become a musical number. Everyone knew all the words and choreography but had no idea why.",

	"Reality glitched like a video game, and suddenly everyone had health bars floating above their heads. Someone's anxiety was dealing critical damage.",

	"A government official in a suit appeared holding a clipboard. 'Excuse me, do you have a permit for this narrative?' They started writing citations for unlicensed plot development.",

	"The universe's autocorrect feature activated, changing one random word in everything everyone said to 'banana.' Communication became simultaneously important and banana.",

	"Someone sneezed, and due to a rare atmospheric condition, the sneeze achieved sentience and started apologizing profusely for existing.",

	"The fourth wall cracked like glass, and the characters could suddenly see the audience. They started taking suggestions and seemed really self-conscious about it.",

	"A wild narrator appeared! But this narrator was clearly reading the wrong script and started describing a completely different story about competitive yogurt tasting.",

	"Time started running backwards, but only for embarrassing moments. Everyone had to relive their most cringe-worthy experiences in reverse while moving forward normally.",

	"An interdimensional customer service representative materialized. 'Hi, you've reached Universe Support. Your reality is experiencing technical difficulties. Have you tried turning it off and on again?'",
}

func (b *mockBackend) sendMessage(ctx context.Context, req messageRequest) (messageResponse, error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return messageResponse{}, ctx.Err()
		}
	}
	return messageResponse{
		Content:      mockTwists[rand.Intn(len(mockTwists))],
		StopReason:   "end_turn",
		InputTokens:  150,
		OutputTokens: 100,
	}, nil
}
