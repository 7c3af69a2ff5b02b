package entity

import "time"

// Notification is a single record shared by every recipient of one event.
// IsRead is the read state of the recipient the record was loaded for.
type Notification struct {
	ID          string           `json:"id"`
	Recipients  []RecipientState `json:"recipients,omitempty"`
	Type        Type             `json:"type"`
	Message     string           `json:"message"`
	EntityID    string           `json:"entityId"`
	EntityModel string           `json:"entityModel"`
	DueDate     *time.Time       `json:"dueDate,omitempty"`
	Metadata    Metadata         `json:"metadata,omitempty"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type RecipientState struct {
	UserID string     `json:"userId"`
	IsRead bool       `json:"isRead"`
	ReadAt *time.Time `json:"readAt,omitempty"`
}

type Metadata map[string]interface{}

// ForRecipient returns a copy carrying only userID's read state.
func (n *Notification) ForRecipient(userID string) *Notification {
	out := *n
	out.Recipients = nil
	out.IsRead = false
	for _, r := range n.Recipients {
		if r.UserID == userID {
			out.IsRead = r.IsRead
			break
		}
	}
	return &out
}

func (n *Notification) RecipientIDs() []string {
	ids := make([]string, len(n.Recipients))
	for i, r := range n.Recipients {
		ids[i] = r.UserID
	}
	return ids
}

// Page is one page of a recipient's notifications.
type Page struct {
	Notifications []*Notification `json:"notifications"`
	Total         int64           `json:"total"`
	Unread        int64           `json:"unread"`
	Page          int             `json:"page"`
	Limit         int             `json:"limit"`
}

type ListFilter struct {
	UserID string
	Read   *bool
	Limit  int
	Offset int
}
