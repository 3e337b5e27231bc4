package dto

import (
	"time"

	"campusconnect/internal/domain/complaints"
)

type Complaint struct {
	ID                string    `json:"id"`
	ReportedBy        string    `json:"reported_by"`
	ReportedUserID    string    `json:"reported_user_id,omitempty"`
	ReportedListingID string    `json:"reported_listing_id,omitempty"`
	Type              string    `json:"type"`
	Description       string    `json:"description"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ComplaintList struct {
	Items []Complaint `json:"items"`
	Total int         `json:"total"`
}

func MapComplaint(c *complaints.Complaint) Complaint {
	if c == nil {
		return Complaint{}
	}
	return Complaint{
		ID:                string(c.ID),
		ReportedBy:        string(c.ReportedBy),
		ReportedUserID:    string(c.ReportedUser),
		ReportedListingID: string(c.ReportedListing),
		Type:              c.Type,
		Description:       c.Description,
		Status:            string(c.Status),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func MapComplaints(items []*complaints.Complaint, total int) ComplaintList {
	out := make([]Complaint, 0, len(items))
	for _, c := range items {
		out = append(out, MapComplaint(c))
	}
	return ComplaintList{Items: out, Total: total}
}
