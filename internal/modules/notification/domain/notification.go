package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeAppointmentNew       NotificationType = "appointment_new"
	TypeAppointmentConfirmed NotificationType = "appointment_confirmed"
	TypeAppointmentCancelled NotificationType = "appointment_cancelled"
	TypeAppointmentReminder  NotificationType = "appointment_reminder"
	TypeReviewNew            NotificationType = "review_new"
)

// Role is the viewing principal's role; it picks the navigation target
// for appointment notifications.
type Role string

const (
	RoleBusiness Role = "business"
	RoleCustomer Role = "customer"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeAppointmentNew, TypeAppointmentConfirmed, TypeAppointmentCancelled,
		TypeAppointmentReminder, TypeReviewNew:
		return true
	}
	return false
}

// Icon returns the display glyph for a notification type. Unknown types
// fall back to the bell.
func (t NotificationType) Icon() string {
	switch t {
	case TypeAppointmentNew:
		return "calendar-plus"
	case TypeAppointmentConfirmed:
		return "calendar-check"
	case TypeAppointmentCancelled:
		return "calendar-x"
	case TypeAppointmentReminder:
		return "clock"
	case TypeReviewNew:
		return "star"
	default:
		return "bell"
	}
}

// Route returns the navigation target for a notification type as seen by
// the given role. Appointment types go to the partner dashboard for
// business users and the bookings page for customers; reviews always go
// to the partner review list. Unknown types navigate nowhere.
func Route(t NotificationType, role Role) string {
	switch {
	case strings.HasPrefix(string(t), "appointment_"):
		if role == RoleBusiness {
			return "/partner/appointments"
		}
		return "/my-bookings"
	case t == TypeReviewNew:
		return "/partner/reviews"
	default:
		return ""
	}
}

// RelativeTime renders how long ago t was relative to now. Buckets are
// half-open on the lower unit: exactly 60 minutes is "1h ago", exactly
// 7 days is an absolute date.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	default:
		return t.Format("Jan 2, 2006")
	}
}
