// Package complaints files abuse reports and lets admins triage them.
package complaints

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/queries"
	"campusconnect/internal/app/uow"
	domaincomplaints "campusconnect/internal/domain/complaints"
	domainlistings "campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const (
	createComplaintKey = "complaints.create"
	listComplaintsKey  = "complaints.list"
	updateStatusKey    = "complaints.update_status"
)

type Deps struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
	NewID      func() string
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

type CreateComplaintCommand struct {
	ActorID           string `json:"actor_id" validate:"required"`
	ReportedUserID    string `json:"reported_user_id"`
	ReportedListingID string `json:"reported_listing_id"`
	Type              string `json:"type" validate:"required"`
	Description       string `json:"description" validate:"required,max=2000"`
}

func (c CreateComplaintCommand) Key() string { return createComplaintKey }

type CreateComplaintHandler struct {
	Deps
}

func (h *CreateComplaintHandler) Handle(ctx context.Context, cmd CreateComplaintCommand) (*dto.Complaint, error) {
	id := uuid.NewString()
	if h.NewID != nil {
		id = h.NewID()
	}
	var out dto.Complaint
	err := uow.Within(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		if cmd.ReportedUserID != "" {
			if _, err := unit.Users().ByID(ctx, domainuser.ID(cmd.ReportedUserID)); err != nil {
				return err
			}
		}
		if cmd.ReportedListingID != "" {
			if _, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ReportedListingID)); err != nil {
				return err
			}
		}
		c, err := domaincomplaints.NewComplaint(domaincomplaints.CreateParams{
			ID:              domaincomplaints.ComplaintID(id),
			ReportedBy:      domainuser.ID(cmd.ActorID),
			ReportedUser:    domainuser.ID(cmd.ReportedUserID),
			ReportedListing: domainlistings.ListingID(cmd.ReportedListingID),
			Type:            cmd.Type,
			Description:     cmd.Description,
			Now:             h.now(),
		})
		if err != nil {
			return err
		}
		if err := unit.Complaints().Save(ctx, c); err != nil {
			return err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, c); err != nil {
			return err
		}
		out = dto.MapComplaint(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "complaint filed", "complaint_id", out.ID, "reported_by", cmd.ActorID, "type", out.Type)
	return &out, nil
}

type ListComplaintsQuery struct {
	Status string `json:"status" validate:"omitempty,oneof=open resolved dismissed"`
	Limit  int    `json:"limit" validate:"gte=0"`
	Offset int    `json:"offset" validate:"gte=0"`
}

func (q ListComplaintsQuery) Key() string { return listComplaintsKey }

func (q ListComplaintsQuery) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

type ListComplaintsHandler struct {
	Deps
}

func (h *ListComplaintsHandler) Handle(ctx context.Context, q ListComplaintsQuery) (dto.ComplaintList, error) {
	params := domaincomplaints.ListParams{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status, err := domaincomplaints.ParseStatus(q.Status)
		if err != nil {
			return dto.ComplaintList{}, err
		}
		params.Status = status
	}
	var out dto.ComplaintList
	err := uow.Within(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		items, total, err := unit.Complaints().List(ctx, params)
		if err != nil {
			return err
		}
		out = dto.MapComplaints(items, total)
		return nil
	})
	return out, err
}

type UpdateStatusCommand struct {
	ActorID     string `json:"actor_id" validate:"required"`
	ComplaintID string `json:"complaint_id" validate:"required"`
	Status      string `json:"status" validate:"required"`
}

func (c UpdateStatusCommand) Key() string { return updateStatusKey }

func (c UpdateStatusCommand) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

type UpdateStatusHandler struct {
	Deps
}

func (h *UpdateStatusHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) (*dto.Complaint, error) {
	status, err := domaincomplaints.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	var out dto.Complaint
	err = uow.Within(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		c, err := unit.Complaints().ByID(ctx, domaincomplaints.ComplaintID(cmd.ComplaintID))
		if err != nil {
			return err
		}
		if err := c.ChangeStatus(status, h.now()); err != nil {
			return err
		}
		if err := unit.Complaints().Save(ctx, c); err != nil {
			return err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, c); err != nil {
			return err
		}
		out = dto.MapComplaint(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "complaint status changed", "complaint_id", cmd.ComplaintID, "status", status, "admin_id", cmd.ActorID)
	return &out, nil
}

func Register(cmds *commands.Registry, qs *queries.Registry, deps Deps) {
	commands.Register[CreateComplaintCommand, *dto.Complaint](cmds, createComplaintKey, &CreateComplaintHandler{Deps: deps})
	commands.Register[UpdateStatusCommand, *dto.Complaint](cmds, updateStatusKey, &UpdateStatusHandler{Deps: deps})
	queries.Register[ListComplaintsQuery, dto.ComplaintList](qs, listComplaintsKey, &ListComplaintsHandler{Deps: deps})
}
