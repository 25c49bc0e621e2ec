// internal/models/user.go
package models

// User carries the contact surface the notification channels need. Profile
// data beyond delivery addresses lives in the user service.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	WhatsAppNumber  string `json:"whatsappNumber,omitempty"`
	PushEndpointARN string `json:"pushEndpointArn,omitempty"`
}

// HasContactChannel reports whether at least one delivery address is set.
func (u User) HasContactChannel() bool {
	return u.Email != "" || u.WhatsAppNumber != "" || u.PushEndpointARN != ""
}

// NotificationPreference gates sends per channel and per category. Users
// without a stored preference row get everything enabled.
type NotificationPreference struct {
	Channels   ChannelPreference  `json:"channels"`
	Categories CategoryPreference `json:"categories"`
}

type ChannelPreference struct {
	WhatsApp bool `json:"whatsapp"`
	Email    bool `json:"email"`
	Push     bool `json:"push"`
}

type CategoryPreference struct {
	TaskReminders  bool `json:"taskReminders"`
	WeeklyReports  bool `json:"weeklyReports"`
	CustomMessages bool `json:"customMessages"`
}

// DefaultPreferences is the all-enabled fallback.
func DefaultPreferences() NotificationPreference {
	return NotificationPreference{
		Channels:   ChannelPreference{WhatsApp: true, Email: true, Push: true},
		Categories: CategoryPreference{TaskReminders: true, WeeklyReports: true, CustomMessages: true},
	}
}

// ChannelEnabled looks a channel up by its adapter name.
func (p NotificationPreference) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelWhatsApp:
		return p.Channels.WhatsApp
	case ChannelEmail:
		return p.Channels.Email
	case ChannelPush:
		return p.Channels.Push
	default:
		return false
	}
}
