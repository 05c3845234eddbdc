package dto

import "dramclub/internal/model"

// NotificationMessage is the queue payload for a pending notification.
type NotificationMessage struct {
	Notification model.Notification `json:"notification"`
	Attempt      int                `json:"attempt"`
}
