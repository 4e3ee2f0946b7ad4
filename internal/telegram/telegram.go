package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"realestate-watch/internal/model"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	messageLimit   = 4096
)

type Sender struct {
	token    string
	chat     string
	threadID *int
	apiBase  string
	logger   *slog.Logger

	client       *http.Client
	mu           sync.RWMutex
	closed       bool
	queue        chan string
	done         chan struct{}
	minInterval  time.Duration
	lastSentTime time.Time
}

type Option func(*Sender)

func WithAPIBase(base string) Option {
	return func(s *Sender) {
		s.apiBase = strings.TrimRight(base, "/")
	}
}

func WithMinInterval(d time.Duration) Option {
	return func(s *Sender) {
		s.minInterval = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

func NewSender(token, chat string, threadID *int, options ...Option) *Sender {
	s := &Sender{
		token:       token,
		chat:        chat,
		threadID:    threadID,
		apiBase:     defaultAPIBase,
		logger:      slog.Default(),
		client:      &http.Client{Timeout: 15 * time.Second},
		queue:       make(chan string, 100),
		done:        make(chan struct{}),
		minInterval: 1200 * time.Millisecond,
	}
	for _, option := range options {
		option(s)
	}

	go s.worker()
	return s
}

// SendAlert queues a message for the listing. Alerts arriving after Close
// are dropped with a warning.
func (s *Sender) SendAlert(listing model.ScrapedListing) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("telegram sender closed; alert dropped", "external_id", listing.ExternalID)
		return
	}

	message := formatMessage(listing)
	for _, part := range splitMessage(message, messageLimit) {
		s.queue <- part
	}
}

// Close stops accepting alerts and waits until queued ones are sent. It is
// safe to call more than once.
func (s *Sender) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Sender) worker() {
	defer close(s.done)
	for msg := range s.queue {
		s.sendWithRateLimit(msg)
	}
}

func (s *Sender) sendWithRateLimit(text string) {
	wait := time.Until(s.lastSentTime.Add(s.minInterval))
	if wait > 0 {
		time.Sleep(wait)
	}

	retryAfter, err := s.postMessage(text)
	if err != nil {
		if retryAfter > 0 {
			s.logger.Warn("telegram rate limit hit", "retry_after", retryAfter)
			time.Sleep(retryAfter)
			if _, retryErr := s.postMessage(text); retryErr != nil {
				s.logger.Error("telegram retry failed", "error", retryErr)
				return
			}
			s.lastSentTime = time.Now()
			s.logger.Info("telegram alert sent (after retry)")
			return
		}

		s.logger.Error("telegram send error", "error", err)
		return
	}

	s.lastSentTime = time.Now()
	s.logger.Debug("telegram alert sent")
}

func (s *Sender) postMessage(text string) (time.Duration, error) {
	payload := map[string]any{
		"chat_id":    s.chat,
		"text":       text,
		"parse_mode": "HTML",
	}
	if s.threadID != nil {
		payload["message_thread_id"] = *s.threadID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var parsed telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode == http.StatusTooManyRequests && parsed.Parameters.RetryAfter > 0 {
		return time.Duration(parsed.Parameters.RetryAfter) * time.Second, fmt.Errorf("rate limited")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("telegram error: %d %s", resp.StatusCode, parsed.Description)
	}

	return 0, nil
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func formatMessage(listing model.ScrapedListing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 %s\n", listing.Title)

	location := joinNonEmpty(", ", listing.Place, listing.Municipality, listing.County)
	if location != "" {
		fmt.Fprintf(&b, "📍 %s\n", location)
	}
	if listing.Price > 0 {
		fmt.Fprintf(&b, "💰 %s %s\n", formatThousands(listing.Price), listing.Currency)
	}
	if listing.Area > 0 {
		fmt.Fprintf(&b, "📐 %d m²", listing.Area)
		if listing.Rooms > 0 {
			fmt.Fprintf(&b, " · %d rooms", listing.Rooms)
		}
		b.WriteString("\n")
	}
	if listing.DescriptionEN != "" {
		fmt.Fprintf(&b, "📝 %s\n", listing.DescriptionEN)
	}
	fmt.Fprintf(&b, "🔗 %s", listing.Link)
	return b.String()
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return strings.Join(out, sep)
}

func formatThousands(amount int64) string {
	digits := fmt.Sprintf("%d", amount)
	if len(digits) <= 3 {
		return digits
	}
	first := len(digits) % 3
	if first == 0 {
		first = 3
	}
	parts := []string{digits[:first]}
	for i := first; i < len(digits); i += 3 {
		parts = append(parts, digits[i:i+3])
	}
	return strings.Join(parts, ".")
}

func splitMessage(message string, limit int) []string {
	runes := []rune(message)
	if len(runes) <= limit {
		return []string{message}
	}

	parts := []string{}
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
