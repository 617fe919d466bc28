package repository

import (
	"context"
	"time"

	"control-produccion/models"
)

// OrderRepositoryInterface defines the contract for the order catalog
type OrderRepositoryInterface interface {
	ListByParent(ctx context.Context, parentBatch string) ([]models.Order, error)
	FindByWidth(ctx context.Context, parentBatch string, width float64) (*models.Order, error)
	ListMachines(ctx context.Context) ([]string, error)
	UpsertOrders(ctx context.Context, orders []models.Order) (int, error)
}

// SessionRepositoryInterface defines the contract for production session persistence
type SessionRepositoryInterface interface {
	GetQuota(ctx context.Context, parentBatch string) (models.Quota, error)
	FindActiveByOperator(ctx context.Context, operatorID string) (*models.ActiveSession, error)
	GetSession(ctx context.Context, sessionKey string) (*models.SessionRecord, error)
	Start(ctx context.Context, params StartParams) (*StartResult, error)
	Finalize(ctx context.Context, report *models.FinalizationReport) error
	ListActiveByParent(ctx context.Context, parentBatch string) ([]models.ActiveSession, error)
	ListStale(ctx context.Context, startedBefore time.Time) ([]models.ActiveSession, error)
}

// StartParams carries the inputs of an atomic session start.
type StartParams struct {
	OperatorID   string
	OperatorName string
	ParentBatch  string
	SheetCount   int
	Machine      string
	SessionKey   string
	StartedAt    time.Time
}

// StartResult is the outcome of a start: a new session or the resumed one.
type StartResult struct {
	Session models.ActiveSession
	Resumed bool
	Quota   models.Quota
	Orders  []models.Order
}
