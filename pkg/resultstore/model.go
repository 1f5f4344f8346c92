package resultstore

import (
	"time"

	"github.com/uptrace/bun"
)

// RunDao maps to the 'cbtc_runs' table.
type RunDao struct {
	bun.BaseModel `bun:"table:cbtc_runs,alias:r"`
	ID            string     `bun:"id,pk,type:uuid"`
	Operation     string     `bun:"operation,notnull,type:varchar(32)"`
	Party         string     `bun:"party,notnull,type:varchar(255)"`
	ReferenceBase *string    `bun:"reference_base,type:varchar(255)"`
	Items         int        `bun:"items,notnull"`
	SuccessCount  int        `bun:"success_count,notnull,default:0"`
	FailCount     int        `bun:"fail_count,notnull,default:0"`
	Status        string     `bun:"status,notnull,type:varchar(16)"`
	Error         *string    `bun:"error,type:text"`
	StartedAt     time.Time  `bun:"started_at,nullzero,notnull,default:current_timestamp"`
	FinishedAt    *time.Time `bun:"finished_at"`
}

// ResultDao maps to the 'cbtc_results' table; one row per chain or batch item.
type ResultDao struct {
	bun.BaseModel  `bun:"table:cbtc_results,alias:res"`
	ID             int64     `bun:"id,pk,autoincrement"`
	RunID          string    `bun:"run_id,notnull,type:uuid"`
	ItemIndex      int       `bun:"item_index,notnull"`
	Receiver       string    `bun:"receiver,notnull,type:varchar(255)"`
	Amount         string    `bun:"amount,notnull,type:varchar(64)"`
	Success        bool      `bun:"success,notnull"`
	StateUnknown   bool      `bun:"state_unknown,notnull,default:false"`
	Reference      *string   `bun:"reference,type:varchar(1024)"`
	UpdateID       *string   `bun:"update_id,type:varchar(255)"`
	InstructionCid *string   `bun:"instruction_cid,type:varchar(255)"`
	ChangeCids     []string  `bun:"change_cids,array"`
	Error          *string   `bun:"error,type:text"`
	RawResponse    *string   `bun:"raw_response,type:text"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toRun(dao *RunDao) *Run {
	return &Run{
		ID:            dao.ID,
		Operation:     dao.Operation,
		Party:         dao.Party,
		ReferenceBase: deref(dao.ReferenceBase),
		Items:         dao.Items,
		SuccessCount:  dao.SuccessCount,
		FailCount:     dao.FailCount,
		Status:        Status(dao.Status),
		Error:         deref(dao.Error),
		StartedAt:     dao.StartedAt,
		FinishedAt:    dao.FinishedAt,
	}
}

func toResultDao(r *Result) *ResultDao {
	return &ResultDao{
		RunID:          r.RunID,
		ItemIndex:      r.Index,
		Receiver:       r.Receiver,
		Amount:         r.Amount,
		Success:        r.Success,
		StateUnknown:   r.StateUnknown,
		Reference:      optional(r.Reference),
		UpdateID:       optional(r.UpdateID),
		InstructionCid: optional(r.InstructionCid),
		ChangeCids:     r.ChangeCids,
		Error:          optional(r.Error),
		RawResponse:    optional(r.RawResponse),
	}
}

func toResult(dao *ResultDao) *Result {
	return &Result{
		RunID:          dao.RunID,
		Index:          dao.ItemIndex,
		Receiver:       dao.Receiver,
		Amount:         dao.Amount,
		Success:        dao.Success,
		StateUnknown:   dao.StateUnknown,
		Reference:      deref(dao.Reference),
		UpdateID:       deref(dao.UpdateID),
		InstructionCid: deref(dao.InstructionCid),
		ChangeCids:     dao.ChangeCids,
		Error:          deref(dao.Error),
		RawResponse:    deref(dao.RawResponse),
		CreatedAt:      dao.CreatedAt,
	}
}
