package insights

import (
	"github.com/google/uuid"

	"github.com/clinicops/agenda/internal/domain/lead"
)

type Conversion struct {
	TotalLeads  int `json:"total_leads"`
	LeadsBooked int `json:"leads_booked"`
	SuccessRate int `json:"success_rate"`
}

// AnalyzeConversion counts tagged leads and the share carrying the booked
// tag. A lead whose tags no longer resolve still counts toward the total.
func AnalyzeConversion(rows []*lead.TagAssociation) Conversion {
	booked := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		if _, seen := booked[r.LeadID]; !seen {
			booked[r.LeadID] = false
		}
		if r.TagName != nil && *r.TagName == lead.TagBooked {
			booked[r.LeadID] = true
		}
	}

	c := Conversion{TotalLeads: len(booked)}
	for _, b := range booked {
		if b {
			c.LeadsBooked++
		}
	}
	c.SuccessRate = percent(c.LeadsBooked, c.TotalLeads)
	return c
}
