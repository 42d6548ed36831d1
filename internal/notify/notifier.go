// Package notify dispatches release announcements over shoutrrr services.
package notify

import (
	"fmt"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"go.uber.org/zap"
)

const (
	publishedMessageTemplateConstant       = "Published %s %s to %s (%d artifact(s))"
	senderCreationFailureTemplateConstant  = "unable to create notification sender: %w"
	notificationFailureWarningConstant     = "notification delivery failed"
	notificationDispatchedMessageConstant  = "notification dispatched"
	logFieldServiceCountConstant           = "service_count"

	urlsConfigurationKeySuffixConstant = ".urls"
)

// Configuration lists the notification service URLs.
type Configuration struct {
	URLs []string `mapstructure:"urls"`
}

// DefaultConfigurationValues supplies baseline values keyed beneath the provided prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + urlsConfigurationKeySuffixConstant: []string{},
	}
}

// Sanitize drops blank URL entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitizedURLs := make([]string, 0, len(configuration.URLs))
	for _, serviceURL := range configuration.URLs {
		trimmedServiceURL := strings.TrimSpace(serviceURL)
		if len(trimmedServiceURL) > 0 {
			sanitizedURLs = append(sanitizedURLs, trimmedServiceURL)
		}
	}
	return Configuration{URLs: sanitizedURLs}
}

// MessageSender delivers one message to every configured service.
type MessageSender interface {
	Send(message string, params *types.Params) []error
}

// Notifier announces completed publishes; delivery failures are logged, never fatal.
type Notifier struct {
	logger *zap.Logger
	sender MessageSender
	urls   []string
}

// NewNotifier builds a notifier for the configured service URLs. With no URLs the notifier is a no-op.
func NewNotifier(logger *zap.Logger, configuration Configuration) (*Notifier, error) {
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	sanitizedConfiguration := configuration.Sanitize()
	if len(sanitizedConfiguration.URLs) == 0 {
		return &Notifier{logger: resolvedLogger}, nil
	}

	serviceRouter, creationError := shoutrrr.NewSender(zap.NewStdLog(resolvedLogger), sanitizedConfiguration.URLs...)
	if creationError != nil {
		return nil, fmt.Errorf(senderCreationFailureTemplateConstant, creationError)
	}

	return &Notifier{logger: resolvedLogger, sender: serviceRouter, urls: sanitizedConfiguration.URLs}, nil
}

// NewNotifierWithSender builds a notifier around an existing sender.
func NewNotifierWithSender(logger *zap.Logger, sender MessageSender) *Notifier {
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}
	return &Notifier{logger: resolvedLogger, sender: sender, urls: nil}
}

// NotifyPublished announces a completed publish to every configured service.
func (notifier *Notifier) NotifyPublished(projectName string, projectVersion string, repositoryURL string, artifactCount int) {
	if notifier.sender == nil {
		return
	}

	announcement := fmt.Sprintf(publishedMessageTemplateConstant, projectName, projectVersion, repositoryURL, artifactCount)
	deliveryErrors := notifier.sender.Send(announcement, &types.Params{})
	for _, deliveryError := range deliveryErrors {
		if deliveryError != nil {
			notifier.logger.Warn(notificationFailureWarningConstant, zap.Error(deliveryError))
		}
	}

	notifier.logger.Info(notificationDispatchedMessageConstant, zap.Int(logFieldServiceCountConstant, len(notifier.urls)))
}
