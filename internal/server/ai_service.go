package server

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"
)

type TwistRequest struct {
	Contributions []ContributionView
	TwistType     string
	Theme         string
}

type TwistResult struct {
	Twist        string
	TwistType    string
	UsedFallback bool
	ResponseTime time.Duration
	RetryCount   int
	InputTokens  int
	OutputTokens int
}

// twistService produces narrative twists. Each invocation walks a fixed
// sequence: attempt, validate, retry with backoff until the budget runs
// out, then fall back to a canned twist. It never returns an error; the
// contract is that a usable twist always comes back.
type twistService struct {
	backend    messageBackend
	maxRetries int
	baseDelay  time.Duration
}

func newTwistService(backend messageBackend, maxRetries int, baseDelay time.Duration) *twistService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &twistService{
		backend:    backend,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

func (t *twistService) GenerateTwist(ctx context.Context, req TwistRequest) TwistResult {
	started := time.Now()

	twistType := req.TwistType
	if twistType == "" {
		twistType = twistTypeRandom
	}
	result := TwistResult{TwistType: twistType}

	system, prompt := buildTwistPrompt(req.Contributions, twistType, req.Theme)

	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		resp, err := t.backend.sendMessage(ctx, messageRequest{
			System:      system,
			Prompt:      prompt,
			MaxTokens:   300,
			Temperature: 1.0,
		})
		if err != nil {
			log.Printf("twist attempt failed attempt=%d error=%v", attempt, err)
			result.RetryCount++
			t.backoff(ctx, attempt)
			continue
		}

		candidate := strings.TrimSpace(resp.Content)
		if !isValidTwist(candidate) {
			log.Printf("twist failed validation attempt=%d length=%d", attempt, utf8.RuneCountInString(candidate))
			result.RetryCount++
			t.backoff(ctx, attempt)
			continue
		}

		result.Twist = candidate
		result.InputTokens = resp.InputTokens
		result.OutputTokens = resp.OutputTokens
		result.ResponseTime = time.Since(started)
		return result
	}

	log.Printf("twist retries exhausted, using fallback retries=%d", result.RetryCount)
	result.Twist = randomFallbackTwist()
	result.UsedFallback = true
	result.ResponseTime = time.Since(started)
	return result
}

// backoff waits attempt x baseDelay before the next try, bailing early if
// the context ends.
func (t *twistService) backoff(ctx context.Context, attempt int) {
	if t.baseDelay <= 0 || attempt >= t.maxRetries {
		return
	}
	select {
	case <-time.After(time.Duration(attempt) * t.baseDelay):
	case <-ctx.Done():
	}
}

var twistMetaMarkers = []string{
	"here is",
	"here's a",
	"this twist",
	"i suggest",
	"how about",
	"you could",
	"the twist is",
}

// isValidTwist applies the quality gates: non-empty, character count
// strictly between 20 and 500, no leading meta-commentary, and not a
// self-explaining joke ("because ... would be funny").
func isValidTwist(twist string) bool {
	trimmed := strings.TrimSpace(twist)
	if trimmed == "" {
		return false
	}
	if length := utf8.RuneCountInString(trimmed); length <= 20 || length >= 500 {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range twistMetaMarkers {
		if strings.HasPrefix(lower, marker) {
			return false
		}
	}
	if strings.Contains(lower, "because") && strings.Contains(lower, "would be funny") {
		return false
	}
	return true
}
