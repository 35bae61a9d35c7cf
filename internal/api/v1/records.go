package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/oemportal/audittrail/internal/audit"
	"github.com/oemportal/audittrail/internal/domain"
)

type CreateRecordInput struct {
	Body struct {
		Action     string          `json:"action" minLength:"1" doc:"Verb describing what happened, e.g. APPLICATION_SUBMITTED"`
		EntityType string          `json:"entityType" minLength:"1" doc:"Logical object type acted upon"`
		EntityID   string          `json:"entityId,omitempty" doc:"Identifier of the object acted upon"`
		UserID     *uuid.UUID      `json:"userId,omitempty" doc:"Acting user; omitted for system-initiated actions"`
		OldValues  json.RawMessage `json:"oldValues,omitempty" doc:"Snapshot before the action"`
		NewValues  json.RawMessage `json:"newValues,omitempty" doc:"Snapshot after the action"`
		Category   string          `json:"category,omitempty" doc:"Classification, defaults to GENERAL"`
		Severity   string          `json:"severity,omitempty" doc:"INFO, WARNING or CRITICAL; defaults to INFO"`
	}
}

type CreateRecordOutput struct {
	Status int
	Body   *domain.AuditRecord
}

type ListRecordsInput struct {
	EntityType string    `query:"entity_type" doc:"Filter by entity type"`
	EntityID   string    `query:"entity_id" doc:"Filter by entity id"`
	UserID     string    `query:"user_id" doc:"Filter by acting user id"`
	Action     string    `query:"action" doc:"Filter by action"`
	Category   string    `query:"category" doc:"Filter by category"`
	Severity   string    `query:"severity" doc:"Filter by severity"`
	Since      time.Time `query:"since" doc:"Only records created at or after this time"`
	Until      time.Time `query:"until" doc:"Only records created at or before this time"`
	Limit      int       `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
	Offset     int       `query:"offset" minimum:"0" doc:"Page offset"`
}

type ListRecordsOutput struct {
	Body []*domain.AuditRecord
}

type GetRecordInput struct {
	ID uuid.UUID `path:"id" doc:"Record ID"`
}

type GetRecordOutput struct {
	Body *domain.AuditRecord
}

func RegisterRecordRoutes(api huma.API, store DataStore, writer ChainWriter) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-record",
		Method:        http.MethodPost,
		Path:          "/records",
		Summary:       "Append an audit record to the chain",
		Tags:          []string{"Records"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateRecordInput) (*CreateRecordOutput, error) {
		record, err := writer.Log(ctx, audit.LogParams{
			Action:     input.Body.Action,
			EntityType: input.Body.EntityType,
			EntityID:   input.Body.EntityID,
			UserID:     input.Body.UserID,
			OldValues:  input.Body.OldValues,
			NewValues:  input.Body.NewValues,
			Category:   domain.Category(input.Body.Category),
			Severity:   domain.Severity(input.Body.Severity),
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return nil, huma.Error400BadRequest("invalid audit record", err)
			}
			return nil, huma.Error500InternalServerError("failed to append record", err)
		}

		return &CreateRecordOutput{Status: http.StatusCreated, Body: record}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/records",
		Summary:     "List audit records, newest first",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
		filter := domain.RecordFilter{
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
			Action:     input.Action,
			Category:   domain.Category(input.Category),
			Severity:   domain.Severity(input.Severity),
			Limit:      input.Limit,
			Offset:     input.Offset,
		}
		if input.UserID != "" {
			userID, parseErr := uuid.Parse(input.UserID)
			if parseErr != nil {
				return nil, huma.Error400BadRequest("invalid user_id: " + input.UserID)
			}
			filter.UserID = &userID
		}
		if !input.Since.IsZero() {
			since := input.Since
			filter.Since = &since
		}
		if !input.Until.IsZero() {
			until := input.Until
			filter.Until = &until
		}

		records, err := store.Records().List(ctx, filter)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list records", err)
		}
		if records == nil {
			records = []*domain.AuditRecord{}
		}

		return &ListRecordsOutput{Body: records}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/records/{id}",
		Summary:     "Get an audit record by ID",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *GetRecordInput) (*GetRecordOutput, error) {
		record, err := store.Records().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("record not found")
			}
			return nil, huma.Error500InternalServerError("failed to get record", err)
		}

		return &GetRecordOutput{Body: record}, nil
	})
}
