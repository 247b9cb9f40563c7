package lead

import "github.com/google/uuid"

// TagBooked marks a lead that turned into a booked appointment.
const TagBooked = "Agendado"

// TagAssociation links a lead to a tag. TagName is nil when the tag row no
// longer exists.
type TagAssociation struct {
	LeadID  uuid.UUID `json:"lead_id"`
	TagID   uuid.UUID `json:"tag_id"`
	TagName *string   `json:"tag_name"`
}
