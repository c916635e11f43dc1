// Package mail доставляет сгенерированный отчёт через транзакционный
// почтовый API ZeptoMail.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"reporter/internal/config"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 4 << 10

	// defaultHTMLBody — тело письма; сам отчёт идёт вложением.
	defaultHTMLBody = `<div style='font-family: Arial, sans-serif; padding: 20px;'>
	<h2>Report Generated</h2>
	<p>Please find attached the Excel report.</p>
	<p>This is an automated email, please do not reply.</p>
	<p style='color: #555;'>
		Best regards,<br>
		The Reporter System
	</p>
</div>`
)

// Recipient — один адресат письма.
type Recipient struct {
	Address string
	Name    string
}

// Attachment — вложение письма.
type Attachment struct {
	Name    string
	Content []byte
}

// Message — письмо с отчётом: адресаты, тема и вложение.
type Message struct {
	Recipients []Recipient
	Subject    string
	HTMLBody   string
	Attachment Attachment
}

// Sender абстрагирует отправку почты для DI и тестов.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// APIError — отказ почтового API. AuthFailure отличает неверный ключ
// от прочих отказов (например, слишком большого вложения).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mail API rejected request: status %d: %s", e.StatusCode, e.Body)
}

// AuthFailure возвращает true, если API отверг ключ авторизации.
func (e *APIError) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ZeptoClient отправляет письма через HTTP API ZeptoMail.
type ZeptoClient struct {
	apiURL      string
	apiKey      string
	fromEmail   string
	fromName    string
	bounceEmail string
	httpClient  *http.Client
	logger      *logrus.Logger
}

// NewZeptoClient создает клиент из почтовой секции конфигурации.
func NewZeptoClient(cfg config.Mail, logger *logrus.Logger) *ZeptoClient {
	bounce := cfg.BounceEmail
	if bounce == "" {
		bounce = cfg.FromEmail
	}
	return &ZeptoClient{
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		fromEmail:   cfg.FromEmail,
		fromName:    cfg.FromName,
		bounceEmail: bounce,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logger,
	}
}

// Структура payload соответствует wire-формату ZeptoMail.
type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type bccEntry struct {
	EmailAddress emailAddress `json:"email_address"`
}

type attachmentPayload struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type sendPayload struct {
	BounceAddress string              `json:"bounce_address"`
	From          emailAddress        `json:"from"`
	Subject       string              `json:"subject"`
	BCC           []bccEntry          `json:"bcc"`
	HTMLBody      string              `json:"htmlbody"`
	Attachments   []attachmentPayload `json:"attachments"`
}

// Send отправляет письмо одним POST-запросом. Получатели идут в BCC,
// чтобы не раскрывать список рассылки. Повторных попыток нет: при сбое
// оператор или планировщик перезапускает генерацию целиком.
func (c *ZeptoClient) Send(ctx context.Context, msg Message) error {
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("no recipients provided")
	}

	body := msg.HTMLBody
	if body == "" {
		body = defaultHTMLBody
	}

	bcc := make([]bccEntry, 0, len(msg.Recipients))
	for _, r := range msg.Recipients {
		bcc = append(bcc, bccEntry{EmailAddress: emailAddress{Address: r.Address, Name: r.Name}})
	}

	payload := sendPayload{
		BounceAddress: c.bounceEmail,
		From:          emailAddress{Address: c.fromEmail, Name: c.fromName},
		Subject:       msg.Subject,
		BCC:           bcc,
		HTMLBody:      body,
		Attachments: []attachmentPayload{{
			Name:    msg.Attachment.Name,
			Content: base64.StdEncoding.EncodeToString(msg.Attachment.Content),
		}},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-enczapikey "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.WithFields(logrus.Fields{
		"recipients": len(bcc),
		"attachment": msg.Attachment.Name,
	}).Info("Письмо с отчетом отправлено")

	return nil
}
