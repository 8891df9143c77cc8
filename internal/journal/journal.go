// Package journal writes an audit trail of ticks and settlements to
// Postgres. It is strictly write-only: nothing is ever read back, so the
// engine's behavior across restarts is unchanged whether the journal is
// enabled or not.
package journal

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const queueSize = 4096

// TickRecord is one received quote.
type TickRecord struct {
	ID     uint      `gorm:"primaryKey"`
	Symbol string    `gorm:"index"`
	Quote  float64   ``
	At     time.Time `gorm:"index"`
}

// SettlementRecord is one finalized contract.
type SettlementRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ContractID int64  `gorm:"uniqueIndex"`
	Symbol     string ``
	Profit     float64
	At         time.Time
}

// Journal buffers records through a bounded queue so the controller loop
// never blocks on the database; overflow drops the record with a log
// line, same policy as the inbound event queue.
type Journal struct {
	db *gorm.DB
	ch chan any
}

// Open connects, migrates the two tables and starts the writer. An empty
// DSN is the caller's signal to run without a journal; callers check
// that before calling Open.
func Open(dsn string) (*Journal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.AutoMigrate(&TickRecord{}, &SettlementRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal tables")
	}
	return &Journal{db: db, ch: make(chan any, queueSize)}, nil
}

// Run drains the record queue until ctx is done.
func (j *Journal) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case record := <-j.ch:
			if err := j.db.Create(record).Error; err != nil {
				logs.Errorf("journal write, err: %+v", err)
			}
		}
	}
}

// Tick records one quote.
func (j *Journal) Tick(symbol string, quote float64) {
	j.push(&TickRecord{Symbol: symbol, Quote: quote, At: time.Now().UTC()})
}

// Settlement records one finalized contract.
func (j *Journal) Settlement(contractID int64, symbol string, profit float64) {
	j.push(&SettlementRecord{ContractID: contractID, Symbol: symbol, Profit: profit, At: time.Now().UTC()})
}

func (j *Journal) push(record any) {
	select {
	case j.ch <- record:
	default:
		logs.Errorf("journal queue full, record dropped")
	}
}

// Close closes the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
