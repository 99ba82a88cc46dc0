package enums

// NotificationEventType names what a notification is about.
type NotificationEventType string

const (
	NotificationExpiryAlertsRaised      NotificationEventType = "EXPIRY_ALERTS_RAISED"
	NotificationExpiryThresholdBreached NotificationEventType = "EXPIRY_THRESHOLD_BREACHED"
	NotificationCheckRunFailed          NotificationEventType = "EXPIRY_CHECK_FAILED"
	NotificationQuarantineOpened        NotificationEventType = "QUARANTINE_OPENED"
	NotificationQuarantineTransitioned  NotificationEventType = "QUARANTINE_TRANSITIONED"
)
