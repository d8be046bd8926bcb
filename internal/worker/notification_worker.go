package worker

import (
	"github.com/spec-kit/profile-service/internal/service"
)

// StartEventSubscribers registers the handlers that react to user events.
func StartEventSubscribers(notificationService *service.NotificationService, sessionService *service.SessionService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if sessionService != nil {
		sessionService.RegisterHandlers()
	}
}
