// Файл: pkg/telegram/service.go
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

type ServiceInterface interface {
	// SendMessage отправляет обычный текст, экранируя его под MarkdownV2.
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error
	Enabled() bool
}

type Service struct {
	botToken   string
	apiBase    string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Service)

// WithAPIBase подменяет адрес Bot API (локальный bot-api сервер, тесты).
func WithAPIBase(base string) Option {
	return func(s *Service) { s.apiBase = strings.TrimRight(base, "/") }
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.httpClient = client }
}

func NewService(botToken string, logger *zap.Logger, opts ...Option) ServiceInterface {
	s := &Service{
		botToken:   botToken,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type MessageOption func(*sendMessageRequest)

func WithMarkdownV2() MessageOption {
	return func(req *sendMessageRequest) {
		req.ParseMode = "MarkdownV2"
	}
}

func WithHTML() MessageOption {
	return func(req *sendMessageRequest) {
		req.ParseMode = "HTML"
	}
}

func WithoutPreview() MessageOption {
	return func(req *sendMessageRequest) {
		req.DisableWebPagePreview = true
	}
}

// Enabled - без токена канал Telegram считается выключенным.
func (s *Service) Enabled() bool {
	return s.botToken != ""
}

func (s *Service) SendMessage(ctx context.Context, chatID int64, text string) error {
	return s.SendMessageEx(ctx, chatID, EscapeTextForMarkdownV2(text), WithMarkdownV2())
}

func (s *Service) SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error {
	if !s.Enabled() {
		return fmt.Errorf("токен Telegram-бота не установлен")
	}

	reqPayload := &sendMessageRequest{
		ChatID: chatID,
		Text:   text,
	}
	for _, opt := range options {
		opt(reqPayload)
	}

	return s.sendRequest(ctx, "sendMessage", reqPayload)
}

func (s *Service) sendRequest(ctx context.Context, methodName string, payload interface{}) error {
	apiURL := fmt.Sprintf("%s/bot%s/%s", s.apiBase, s.botToken, methodName)

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки запроса в Telegram: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа Telegram: %w", err)
	}

	s.logger.Debug("Запрос к Telegram API",
		zap.String("method", methodName),
		zap.Int("httpStatus", resp.StatusCode),
	)

	// Telegram кладёт признак ошибки в тело, код ответа не показателен
	var telegramResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
		ErrorCode   int    `json:"error_code,omitempty"`
	}
	if err := json.Unmarshal(body, &telegramResp); err != nil {
		return fmt.Errorf("ошибка декодирования ответа Telegram API: %w", err)
	}
	if !telegramResp.OK {
		return fmt.Errorf("telegram API ошибка (%s): код %d, описание: %s", methodName, telegramResp.ErrorCode, telegramResp.Description)
	}
	return nil
}

func EscapeTextForMarkdownV2(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
		"(", "\\(", ")", "\\)",
		"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+",
		"-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}
