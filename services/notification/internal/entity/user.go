package entity

// UserProfile is what the notification service reads from the user store.
type UserProfile struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Username    string          `json:"username"`
	Preferences map[string]bool `json:"notificationPreferences"`
}

// Wants reports whether the user accepts notifications of type t. Only an
// explicit false suppresses delivery.
func (u *UserProfile) Wants(t Type) bool {
	if u == nil || u.Preferences == nil {
		return true
	}
	enabled, ok := u.Preferences[string(t)]
	return !ok || enabled
}
