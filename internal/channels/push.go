// internal/channels/push.go
package channels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	awsutil "taskhub-notifier/internal/common/aws"
	"taskhub-notifier/internal/common/config"
	apperrors "taskhub-notifier/internal/common/errors"
	"taskhub-notifier/internal/common/logger"
	"taskhub-notifier/internal/models"
)

// SNSService is the narrow SNS surface, defined here for mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// PushAdapter publishes to the user's SNS platform endpoint.
type PushAdapter struct {
	cfg       config.PushConfig
	log       logger.Logger
	snsClient SNSService
	available bool
	hasCreds  bool
}

func NewPushAdapter(ctx context.Context, cfg config.PushConfig, log logger.Logger) *PushAdapter {
	a := &PushAdapter{
		cfg: cfg,
		log: log.WithFields(map[string]interface{}{"channel": models.ChannelPush}),
	}

	a.hasCreds = cfg.AWSRegion != ""
	if a.hasCreds {
		awsCfg, err := awsutil.LoadConfig(ctx, cfg.AWSRegion)
		if err != nil {
			a.log.Warn("AWS config load failed, push channel unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			a.hasCreds = false
		} else {
			a.snsClient = sns.NewFromConfig(awsCfg)
		}
	}

	a.available = cfg.Enabled && a.hasCreds
	return a
}

func (a *PushAdapter) Name() string { return models.ChannelPush }

func (a *PushAdapter) Available() bool { return a.available }

func (a *PushAdapter) Reaches(u models.User) bool { return u.PushEndpointARN != "" }

func (a *PushAdapter) Send(ctx context.Context, u models.User, content models.Content) error {
	if !a.available {
		return apperrors.NewChannelNotConfiguredError(models.ChannelPush)
	}
	if u.PushEndpointARN == "" {
		return apperrors.NewDeliveryFailedError(models.ChannelPush, fmt.Errorf("user %s has no push endpoint", u.ID))
	}

	message := content.Subject
	if content.Body != "" {
		message = content.Subject + "\n" + content.Body
	}

	_, err := a.snsClient.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(u.PushEndpointARN),
		Message:   aws.String(message),
	})
	if err != nil {
		a.log.Error("push send failed", map[string]interface{}{
			"userId": u.ID,
			"error":  err.Error(),
		})
		return apperrors.NewDeliveryFailedError(models.ChannelPush, err)
	}

	a.log.Debug("push sent", map[string]interface{}{"userId": u.ID})
	return nil
}

func (a *PushAdapter) Status() Status {
	return Status{
		Name:           models.ChannelPush,
		Available:      a.available,
		HasCredentials: a.hasCreds,
	}
}
