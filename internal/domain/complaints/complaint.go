package complaints

import (
	"context"
	"strings"
	"time"

	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/shared/errs"
	"campusconnect/internal/domain/shared/events"
	"campusconnect/internal/domain/user"
)

var (
	ErrIDRequired          = errs.New(errs.ErrValidation, "complaints: id is required")
	ErrReporterRequired    = errs.New(errs.ErrValidation, "complaints: reporter is required")
	ErrTypeRequired        = errs.New(errs.ErrValidation, "complaints: type is required")
	ErrDescriptionRequired = errs.New(errs.ErrValidation, "complaints: description is required")
	ErrInvalidStatus       = errs.New(errs.ErrValidation, "complaints: invalid status")
	ErrNotFound            = errs.New(errs.ErrNotFound, "complaints: complaint not found")
)

type ComplaintID string

type Status string

const (
	StatusOpen      Status = "open"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusOpen, StatusResolved, StatusDismissed:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

type Complaint struct {
	ID              ComplaintID
	ReportedBy      user.ID
	ReportedUser    user.ID
	ReportedListing listings.ListingID
	Type            string
	Description     string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	events.EventRecorder
}

type ListParams struct {
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	ByID(ctx context.Context, id ComplaintID) (*Complaint, error)
	Save(ctx context.Context, complaint *Complaint) error
	// List returns complaints newest first with the total matching count.
	List(ctx context.Context, params ListParams) ([]*Complaint, int, error)
}

type CreateParams struct {
	ID              ComplaintID
	ReportedBy      user.ID
	ReportedUser    user.ID
	ReportedListing listings.ListingID
	Type            string
	Description     string
	Now             time.Time
}

func NewComplaint(params CreateParams) (*Complaint, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if params.ReportedBy == "" {
		return nil, ErrReporterRequired
	}
	kind := strings.TrimSpace(params.Type)
	if kind == "" {
		return nil, ErrTypeRequired
	}
	description := strings.TrimSpace(params.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	c := &Complaint{
		ID:              params.ID,
		ReportedBy:      params.ReportedBy,
		ReportedUser:    params.ReportedUser,
		ReportedListing: params.ReportedListing,
		Type:            kind,
		Description:     description,
		Status:          StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	c.Record(ComplaintFiled{ComplaintID: c.ID, ReportedBy: c.ReportedBy, Type: c.Type, At: now})
	return c, nil
}

func (c *Complaint) ChangeStatus(status Status, now time.Time) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	if c.Status == status {
		return nil
	}
	from := c.Status
	c.Status = status
	c.UpdatedAt = now.UTC()
	c.Record(ComplaintStatusChanged{ComplaintID: c.ID, From: from, To: status, At: c.UpdatedAt})
	return nil
}

type ComplaintFiled struct {
	ComplaintID ComplaintID
	ReportedBy  user.ID
	Type        string
	At          time.Time
}

func (e ComplaintFiled) EventName() string     { return "complaint.filed" }
func (e ComplaintFiled) AggregateID() string   { return string(e.ComplaintID) }
func (e ComplaintFiled) OccurredAt() time.Time { return e.At }

type ComplaintStatusChanged struct {
	ComplaintID ComplaintID
	From        Status
	To          Status
	At          time.Time
}

func (e ComplaintStatusChanged) EventName() string     { return "complaint.status_changed" }
func (e ComplaintStatusChanged) AggregateID() string   { return string(e.ComplaintID) }
func (e ComplaintStatusChanged) OccurredAt() time.Time { return e.At }
