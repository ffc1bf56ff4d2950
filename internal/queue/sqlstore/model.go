package sqlstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/uptrace/bun"
)

// jobModel is the durable row backing one queue.Job.
type jobModel struct {
	bun.BaseModel `bun:"table:queue_jobs"`

	ID uuid.UUID `bun:"id,pk,type:uuid"`

	OrderID         string  `bun:"order_id,notnull"`
	UserID          string  `bun:"user_id,notnull"`
	StockID         string  `bun:"stock_id,notnull"`
	Quantity        int64   `bun:"quantity,notnull"`
	PriceAtPurchase float64 `bun:"price_at_purchase,notnull"`
	IsVIP           bool    `bun:"is_vip,notnull,default:false"`

	Priority    int        `bun:"priority,notnull"`
	Status      string     `bun:"status,notnull"`
	Attempts    int        `bun:"attempts,notnull,default:0"`
	MaxAttempts int        `bun:"max_attempts,notnull"`
	LastError   string     `bun:"last_error,notnull,default:''"`
	LockedUntil *time.Time `bun:"locked_until,nullzero,default:null"`
	NextRunAt   time.Time  `bun:"next_run_at,notnull"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (m *jobModel) toJob() *queue.Job {
	return &queue.Job{
		ID: m.ID,
		Payload: queue.Payload{
			OrderID:         m.OrderID,
			UserID:          m.UserID,
			StockID:         m.StockID,
			Quantity:        m.Quantity,
			PriceAtPurchase: m.PriceAtPurchase,
			IsVIP:           m.IsVIP,
		},
		Priority:    queue.Priority(m.Priority),
		Status:      queue.Status(m.Status),
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		LastError:   m.LastError,
		LockedUntil: m.LockedUntil,
		NextRunAt:   m.NextRunAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromJob(j *queue.Job) *jobModel {
	return &jobModel{
		ID:              j.ID,
		OrderID:         j.Payload.OrderID,
		UserID:          j.Payload.UserID,
		StockID:         j.Payload.StockID,
		Quantity:        j.Payload.Quantity,
		PriceAtPurchase: j.Payload.PriceAtPurchase,
		IsVIP:           j.Payload.IsVIP,
		Priority:        int(j.Priority),
		Status:          string(j.Status),
		Attempts:        j.Attempts,
		MaxAttempts:     j.MaxAttempts,
		NextRunAt:       j.NextRunAt,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}
