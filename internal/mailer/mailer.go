package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultEndpoint = "https://api.brevo.com/v3/smtp/email"

// Service sends transactional mail through the Brevo HTTP API. Delivery
// failure is reported to the caller, who degrades the response instead of
// failing the operation that triggered the mail.
type Service struct {
	apiKey      string
	from        string
	frontendURL string
	endpoint    string
	client      *http.Client
	log         zerolog.Logger
}

func New(apiKey, from, frontendURL string, log zerolog.Logger) *Service {
	return &Service{
		apiKey:      apiKey,
		from:        from,
		frontendURL: frontendURL,
		endpoint:    defaultEndpoint,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

type sendRequest struct {
	Sender      party   `json:"sender"`
	To          []party `json:"to"`
	Subject     string  `json:"subject"`
	HTMLContent string  `json:"htmlContent"`
}

type party struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (s *Service) SendVerificationEmail(ctx context.Context, email, tok string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, url.QueryEscape(tok))
	body := fmt.Sprintf(
		`<h1>Welcome to Medical Chat!</h1>
<p>Please verify your email address by clicking the link below:</p>
<p><a href="%s">Verify Email</a></p>
<p>This link will expire in 24 hours.</p>
<p>If you didn't create an account, you can safely ignore this email.</p>`,
		link,
	)
	return s.send(ctx, email, "Verify Your Email Address", body)
}

func (s *Service) SendPasswordResetEmail(ctx context.Context, email, tok string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(tok))
	body := fmt.Sprintf(
		`<h1>Password Reset Request</h1>
<p>Click the link below to reset your password:</p>
<p><a href="%s">Reset Password</a></p>
<p>This link will expire in 1 hour.</p>
<p>If you didn't request this, please ignore this email.</p>`,
		link,
	)
	return s.send(ctx, email, "Reset Your Password", body)
}

func (s *Service) send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(sendRequest{
		Sender:      party{Email: s.from, Name: "Medical Chat"},
		To:          []party{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Str("to", to).Msg("mail delivery failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.log.Warn().Int("status", resp.StatusCode).Str("to", to).Msg("mail delivery rejected")
		return fmt.Errorf("mailer: unexpected status %d", resp.StatusCode)
	}
	return nil
}
