// Package notify delivers escalation notices to merchants over SES email and SNS SMS.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"commerce-answers/internal/common/config"
	"commerce-answers/internal/models"
)

var ErrNoChannel = errors.New("NO_NOTIFICATION_CHANNEL")

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Notifier struct {
	config    config.NotificationConfig
	sesClient SESService
	snsClient SNSService
	logger    Logger
}

func NewNotifier(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log Logger) *Notifier {
	return &Notifier{
		config:    cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log,
	}
}

// NotifyMerchant tries every enabled channel the contact has and returns the
// ones that accepted the notice. A failed channel does not stop the others.
func (n *Notifier) NotifyMerchant(ctx context.Context, contact models.MerchantContact, note models.Notification) ([]string, error) {
	var (
		sent []string
		errs []error
	)

	if n.config.Email.Enabled && contact.Email != "" {
		if err := n.sendEmail(ctx, contact.Email, note); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", models.ChannelEmail, err))
		} else {
			sent = append(sent, models.ChannelEmail)
		}
	}

	if n.config.SMS.Enabled && contact.Phone != "" {
		if err := n.sendSMS(ctx, contact.Phone, note); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", models.ChannelSMS, err))
		} else {
			sent = append(sent, models.ChannelSMS)
		}
	}

	if len(sent) == 0 && len(errs) == 0 {
		return nil, ErrNoChannel
	}

	if len(errs) > 0 {
		n.logger.Error("merchant notification partially failed", map[string]interface{}{
			"shopId":         contact.ShopID,
			"notificationId": note.ID,
			"sent":           sent,
			"error":          errors.Join(errs...).Error(),
		})
	} else {
		n.logger.Info("merchant notified", map[string]interface{}{
			"shopId":         contact.ShopID,
			"notificationId": note.ID,
			"channels":       sent,
		})
	}
	return sent, errors.Join(errs...)
}

func (n *Notifier) sendEmail(ctx context.Context, to string, note models.Notification) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(note.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(note.Body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(n.config.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to string, note models.Notification) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(note.Subject + "\n" + note.Body),
	}
	if n.config.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(n.config.SMS.SenderID)},
			"AWS.SNS.SMS.SMSType":  {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		}
	}
	_, err := n.snsClient.Publish(ctx, input)
	return err
}
