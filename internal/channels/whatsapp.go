// internal/channels/whatsapp.go
package channels

import (
	"context"
	"fmt"
	"net/http"

	"taskhub-notifier/internal/common/config"
	apperrors "taskhub-notifier/internal/common/errors"
	httpclient "taskhub-notifier/internal/common/http"
	"taskhub-notifier/internal/common/logger"
	"taskhub-notifier/internal/models"
)

// WhatsAppAdapter sends text messages through the WhatsApp Cloud API.
type WhatsAppAdapter struct {
	cfg       config.WhatsAppConfig
	log       logger.Logger
	client    *httpclient.Client
	available bool
	hasCreds  bool
}

type whatsAppTextPayload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             whatsAppTextBody `json:"text"`
}

type whatsAppTextBody struct {
	Body string `json:"body"`
}

func NewWhatsAppAdapter(cfg config.WhatsAppConfig, log logger.Logger) *WhatsAppAdapter {
	a := &WhatsAppAdapter{
		cfg:    cfg,
		log:    log.WithFields(map[string]interface{}{"channel": models.ChannelWhatsApp}),
		client: httpclient.NewClient(config.GetDuration(cfg.Timeout)),
	}
	a.hasCreds = cfg.AccessToken != "" && cfg.PhoneNumberID != ""
	a.available = cfg.Enabled && a.hasCreds
	return a
}

func (a *WhatsAppAdapter) Name() string { return models.ChannelWhatsApp }

func (a *WhatsAppAdapter) Available() bool { return a.available }

func (a *WhatsAppAdapter) Reaches(u models.User) bool { return u.WhatsAppNumber != "" }

func (a *WhatsAppAdapter) Send(ctx context.Context, u models.User, content models.Content) error {
	if !a.available {
		return apperrors.NewChannelNotConfiguredError(models.ChannelWhatsApp)
	}
	if u.WhatsAppNumber == "" {
		return apperrors.NewDeliveryFailedError(models.ChannelWhatsApp, fmt.Errorf("user %s has no WhatsApp number", u.ID))
	}

	body := content.Subject
	if content.Body != "" {
		body = content.Subject + "\n\n" + content.Body
	}

	url := fmt.Sprintf("%s/%s/messages", a.cfg.BaseURL, a.cfg.PhoneNumberID)
	status, respBody, err := a.client.PostJSON(ctx, url, map[string]string{
		"Authorization": "Bearer " + a.cfg.AccessToken,
	}, whatsAppTextPayload{
		MessagingProduct: "whatsapp",
		To:               u.WhatsAppNumber,
		Type:             "text",
		Text:             whatsAppTextBody{Body: body},
	})
	if err != nil {
		a.log.Error("whatsapp send failed", map[string]interface{}{
			"userId": u.ID,
			"error":  err.Error(),
		})
		return apperrors.NewDeliveryFailedError(models.ChannelWhatsApp, err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		a.log.Error("whatsapp send rejected", map[string]interface{}{
			"userId":   u.ID,
			"status":   status,
			"response": string(respBody),
		})
		return apperrors.NewDeliveryFailedError(models.ChannelWhatsApp,
			fmt.Errorf("cloud API returned status %d", status))
	}

	a.log.Debug("whatsapp sent", map[string]interface{}{"userId": u.ID})
	return nil
}

func (a *WhatsAppAdapter) Status() Status {
	return Status{
		Name:           models.ChannelWhatsApp,
		Available:      a.available,
		HasCredentials: a.hasCreds,
	}
}
