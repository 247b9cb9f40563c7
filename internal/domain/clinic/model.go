package clinic

import "time"

const (
	ProviderBridge = "bridge"
	ProviderICS    = "ics"
)

type Clinic struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CalendarProvider string    `json:"calendar_provider"`
	ICSURL           *string   `json:"ics_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
