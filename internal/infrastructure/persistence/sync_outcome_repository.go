package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/erp/syncbridge/internal/domain/integration"
	"gorm.io/gorm"
)

// SyncResultModel is the persistence model for the sync_results table
type SyncResultModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	BillKey   string    `gorm:"type:varchar(128);index:idx_sync_results_bill_key"`
	ErpKey    string    `gorm:"type:varchar(128)"`
	BillType  int32     `gorm:"not null;default:0"`
	SyncState int32     `gorm:"not null"`
	SyncMsg   string    `gorm:"type:text"`
	ErrorCode int32     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncResultModel) TableName() string {
	return "sync_results"
}

// ToEntity converts the model to a domain entity
func (m *SyncResultModel) ToEntity() integration.SyncOutcome {
	return integration.SyncOutcome{
		ID:        m.ID,
		BillKey:   m.BillKey,
		ErpKey:    m.ErpKey,
		BillType:  integration.BillType(m.BillType),
		SyncState: integration.SyncState(m.SyncState),
		SyncMsg:   m.SyncMsg,
		ErrorCode: m.ErrorCode,
		CreatedAt: m.CreatedAt,
	}
}

// SyncResultModelFromEntity creates a model from a domain entity.
// ID and CreatedAt are left for the repository to assign.
func SyncResultModelFromEntity(o *integration.SyncOutcome) *SyncResultModel {
	return &SyncResultModel{
		BillKey:   o.BillKey,
		ErpKey:    o.ErpKey,
		BillType:  o.BillType.Int32(),
		SyncState: int32(o.SyncState),
		SyncMsg:   o.SyncMsg,
		ErrorCode: o.ErrorCode,
	}
}

// SyncOutcomeRepository implements integration.SyncOutcomeRepository using GORM
type SyncOutcomeRepository struct {
	db  *gorm.DB
	now func() time.Time

	// serialize is set for SQLite, which supports a single writer
	serialize bool
	writeMu   sync.Mutex

	schemaMu    sync.Mutex
	schemaReady bool
}

// SyncOutcomeRepositoryOption configures a SyncOutcomeRepository
type SyncOutcomeRepositoryOption func(*SyncOutcomeRepository)

// WithClock sets the clock used to stamp CreatedAt
func WithClock(now func() time.Time) SyncOutcomeRepositoryOption {
	return func(r *SyncOutcomeRepository) {
		r.now = now
	}
}

// NewSyncOutcomeRepository creates a new SyncOutcomeRepository
func NewSyncOutcomeRepository(db *gorm.DB, opts ...SyncOutcomeRepositoryOption) *SyncOutcomeRepository {
	r := &SyncOutcomeRepository{
		db:        db,
		now:       time.Now,
		serialize: db.Dialector.Name() == "sqlite",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureSchema creates the sync_results table if it does not exist.
// It never alters or drops an existing table and is safe to call repeatedly.
func (r *SyncOutcomeRepository) EnsureSchema(ctx context.Context) error {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()

	if r.schemaReady {
		return nil
	}

	migrator := r.db.WithContext(ctx).Migrator()
	if !migrator.HasTable(&SyncResultModel{}) {
		if err := migrator.CreateTable(&SyncResultModel{}); err != nil {
			return integration.NewStorageError("init", err)
		}
	}
	r.schemaReady = true
	return nil
}

// Append persists the outcome and assigns its ID and CreatedAt
func (r *SyncOutcomeRepository) Append(ctx context.Context, outcome *integration.SyncOutcome) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}

	model := SyncResultModelFromEntity(outcome)

	if r.serialize {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
	}

	model.CreatedAt = r.now().UTC()
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return integration.NewStorageError("append", err)
	}

	outcome.ID = model.ID
	outcome.CreatedAt = model.CreatedAt
	return nil
}

// ListRecent returns up to limit outcomes, most recent first
func (r *SyncOutcomeRepository) ListRecent(ctx context.Context, limit int) ([]integration.SyncOutcome, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	var models []SyncResultModel
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(integration.NormalizeListLimit(limit)).
		Find(&models).Error
	if err != nil {
		return nil, integration.NewStorageError("list", err)
	}

	outcomes := make([]integration.SyncOutcome, len(models))
	for i := range models {
		outcomes[i] = models[i].ToEntity()
	}
	return outcomes, nil
}

// Ensure SyncOutcomeRepository implements the interface
var _ integration.SyncOutcomeRepository = (*SyncOutcomeRepository)(nil)
