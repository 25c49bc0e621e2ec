// internal/channels/email.go
package channels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	mail "gopkg.in/mail.v2"

	awsutil "taskhub-notifier/internal/common/aws"
	"taskhub-notifier/internal/common/config"
	apperrors "taskhub-notifier/internal/common/errors"
	"taskhub-notifier/internal/common/logger"
	"taskhub-notifier/internal/models"
)

// SESService is the narrow SES surface, defined here for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailAdapter delivers through SES by default, or through a plain SMTP
// relay for self-hosted deployments (channels.email.backend).
type EmailAdapter struct {
	cfg       config.EmailConfig
	log       logger.Logger
	sesClient SESService
	available bool
	hasCreds  bool
}

func NewEmailAdapter(ctx context.Context, cfg config.EmailConfig, log logger.Logger) *EmailAdapter {
	a := &EmailAdapter{
		cfg: cfg,
		log: log.WithFields(map[string]interface{}{"channel": models.ChannelEmail}),
	}

	switch cfg.Backend {
	case "smtp":
		a.hasCreds = cfg.SMTP.Host != "" && cfg.FromEmail != ""
	default: // ses
		a.hasCreds = cfg.AWSRegion != "" && cfg.FromEmail != ""
		if a.hasCreds {
			awsCfg, err := awsutil.LoadConfig(ctx, cfg.AWSRegion)
			if err != nil {
				a.log.Warn("AWS config load failed, email channel unavailable", map[string]interface{}{
					"error": err.Error(),
				})
				a.hasCreds = false
			} else {
				a.sesClient = ses.NewFromConfig(awsCfg)
			}
		}
	}

	a.available = cfg.Enabled && a.hasCreds
	return a
}

func (a *EmailAdapter) Name() string { return models.ChannelEmail }

func (a *EmailAdapter) Available() bool { return a.available }

func (a *EmailAdapter) Reaches(u models.User) bool { return u.Email != "" }

func (a *EmailAdapter) Send(ctx context.Context, u models.User, content models.Content) error {
	if !a.available {
		return apperrors.NewChannelNotConfiguredError(models.ChannelEmail)
	}
	if u.Email == "" {
		return apperrors.NewDeliveryFailedError(models.ChannelEmail, fmt.Errorf("user %s has no email address", u.ID))
	}

	var err error
	if a.cfg.Backend == "smtp" {
		err = a.sendSMTP(u.Email, content)
	} else {
		err = a.sendSES(ctx, u.Email, content)
	}
	if err != nil {
		a.log.Error("email send failed", map[string]interface{}{
			"userId": u.ID,
			"error":  err.Error(),
		})
		return apperrors.NewDeliveryFailedError(models.ChannelEmail, err)
	}

	a.log.Debug("email sent", map[string]interface{}{"userId": u.ID})
	return nil
}

func (a *EmailAdapter) sendSES(ctx context.Context, to string, content models.Content) error {
	_, err := a.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(content.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(content.Body)},
			},
		},
		Source: aws.String(a.cfg.FromEmail),
	})
	return err
}

func (a *EmailAdapter) sendSMTP(to string, content models.Content) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", a.cfg.FromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", content.Subject)
	msg.SetBody("text/plain", content.Body)

	dialer := mail.NewDialer(a.cfg.SMTP.Host, a.cfg.SMTP.Port, a.cfg.SMTP.Username, a.cfg.SMTP.Password)
	return dialer.DialAndSend(msg)
}

func (a *EmailAdapter) Status() Status {
	return Status{
		Name:           models.ChannelEmail,
		Available:      a.available,
		HasCredentials: a.hasCreds,
		Backend:        a.cfg.Backend,
	}
}
