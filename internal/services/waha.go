package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WahaService delivers reminders over WhatsApp through a WAHA HTTP gateway.
type WahaService struct {
	baseURL string
	apiKey  string
	session string
	client  *http.Client
	// pause between the seen/typing steps so the chat looks human
	pause time.Duration
}

func NewWahaService(baseURL, apiKey, session string) *WahaService {
	if baseURL == "" {
		baseURL = "http://waha:3000"
	}
	if session == "" {
		session = "default"
	}
	return &WahaService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		session: session,
		client:  &http.Client{Timeout: 15 * time.Second},
		pause:   100 * time.Millisecond,
	}
}

func (s *WahaService) makeRequest(ctx context.Context, endpoint string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

func (s *WahaService) chatRequest(ctx context.Context, endpoint, chatID string) error {
	return s.makeRequest(ctx, endpoint, map[string]string{
		"chatId":  chatID,
		"session": s.session,
	})
}

// NormalizeChatID turns a phone number or chat id into a WhatsApp chat id.
// Group ids are returned unchanged.
func NormalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	chatID = strings.TrimPrefix(chatID, "+")

	return chatID + "@c.us"
}

// Send marks the chat seen, shows typing, then sends the text.
func (s *WahaService) Send(ctx context.Context, to, body string) error {
	chatID := NormalizeChatID(to)

	if err := s.chatRequest(ctx, "/api/sendSeen", chatID); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	if err := s.chatRequest(ctx, "/api/startTyping", chatID); err != nil {
		return fmt.Errorf("failed to start typing: %w", err)
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	if err := s.chatRequest(ctx, "/api/stopTyping", chatID); err != nil {
		return fmt.Errorf("failed to stop typing: %w", err)
	}

	err := s.makeRequest(ctx, "/api/sendText", map[string]string{
		"chatId":  chatID,
		"text":    body,
		"session": s.session,
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	return nil
}

func (s *WahaService) wait(ctx context.Context) error {
	if s.pause <= 0 {
		return nil
	}
	t := time.NewTimer(s.pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
