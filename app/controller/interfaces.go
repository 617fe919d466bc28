package controller

import (
	"context"

	"control-produccion/models"
)

// CatalogServiceInterface is the catalog surface the controllers need.
type CatalogServiceInterface interface {
	Orders(ctx context.Context, parentBatch string) (*models.BatchOrdersResponse, error)
	Machines(ctx context.Context) (*models.MachinesResponse, error)
	Import(ctx context.Context, req models.CatalogImportRequest) (*models.CatalogImportResponse, error)
}

// QuotaServiceInterface reports batch progress.
type QuotaServiceInterface interface {
	Status(ctx context.Context, parentBatch string) (*models.BatchStatus, error)
}

// SessionServiceInterface opens and closes production sessions.
type SessionServiceInterface interface {
	FindActive(ctx context.Context, op models.Operator) (*models.ActiveSessionResponse, error)
	Start(ctx context.Context, op models.Operator, req models.StartSessionRequest) (*models.StartSessionResponse, error)
	Finalize(ctx context.Context, op models.Operator, sessionKey string, req models.FinalizeRequest) (*models.FinalizeResponse, error)
}

// LineItemServiceInterface edits the working set of an active session.
type LineItemServiceInterface interface {
	Get(ctx context.Context, op models.Operator, sessionKey string) (*models.WorkingSet, error)
	Append(ctx context.Context, op models.Operator, sessionKey string, req models.AppendLineRequest) (*models.LineEditResponse, error)
	Edit(ctx context.Context, op models.Operator, sessionKey, lineID string, req models.EditLineRequest) (*models.LineEditResponse, error)
	Remove(ctx context.Context, op models.Operator, sessionKey, lineID string) (*models.LineEditResponse, error)
}
