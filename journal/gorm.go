package journal

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeRow is the GORM model for a journalled trade.
type TradeRow struct {
	TradeID    string  `gorm:"primaryKey"`
	Underlying string  `gorm:"index;not null"`
	AssetClass string  `gorm:"not null"`
	Instrument string  `gorm:"not null"`
	Direction  string  `gorm:"not null"`
	Strike     float64 `gorm:"type:decimal(20,8)"`
	Contracts  int     `gorm:"not null"`
	Notional   float64 `gorm:"type:decimal(20,8);not null"`
	OpenPrice  float64 `gorm:"type:decimal(20,8);not null"`
	ClosePrice float64 `gorm:"type:decimal(20,8);not null"`

	TradeDate time.Time `gorm:"not null"`
	CloseDate time.Time `gorm:"index;not null"`

	RealizedPL float64 `gorm:"type:decimal(20,8)"`
	Reason     string  `gorm:"not null"`
	RuleID     string  `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (TradeRow) TableName() string { return "sim_trades" }

// EquityRow is the GORM model for an end-of-day equity snapshot.
type EquityRow struct {
	ID           uint      `gorm:"primaryKey"`
	Date         time.Time `gorm:"index;not null"`
	Cash         float64   `gorm:"type:decimal(20,8);not null"`
	OpenTrades   int       `gorm:"not null"`
	OpenNotional float64   `gorm:"type:decimal(20,8);not null"`
}

func (EquityRow) TableName() string { return "sim_equity" }

// Gorm writes the journal through any GORM dialect.
type Gorm struct {
	db *gorm.DB
}

// NewGorm migrates the journal tables on db.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if db == nil {
		return nil, errors.New("journal: db cannot be nil")
	}
	if err := db.AutoMigrate(&TradeRow{}, &EquityRow{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

// NewPostgres connects to dsn and migrates the journal tables.
func NewPostgres(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: connect postgres: %w", err)
	}
	return NewGorm(db)
}

func (j *Gorm) RecordTrade(t TradeRecord) error {
	row := TradeRow{
		TradeID:    t.TradeID,
		Underlying: t.Underlying,
		AssetClass: t.AssetClass,
		Instrument: t.Instrument,
		Direction:  t.Direction,
		Strike:     t.Strike,
		Contracts:  t.Contracts,
		Notional:   t.Notional,
		OpenPrice:  t.OpenPrice,
		ClosePrice: t.ClosePrice,
		TradeDate:  t.TradeDate,
		CloseDate:  t.CloseDate,
		RealizedPL: t.RealizedPL,
		Reason:     t.Reason,
		RuleID:     t.RuleID,
	}
	return j.db.Create(&row).Error
}

func (j *Gorm) RecordEquity(e EquitySnapshot) error {
	row := EquityRow{
		Date:         e.Date,
		Cash:         e.Cash,
		OpenTrades:   e.OpenTrades,
		OpenNotional: e.OpenNotional,
	}
	return j.db.Create(&row).Error
}

// GetTrade returns a single trade record by ID.
func (j *Gorm) GetTrade(tradeID string) (TradeRecord, error) {
	var row TradeRow
	err := j.db.First(&row, "trade_id = ?", tradeID).Error
	if err == gorm.ErrRecordNotFound {
		return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
	}
	if err != nil {
		return TradeRecord{}, err
	}
	return TradeRecord{
		TradeID:    row.TradeID,
		Underlying: row.Underlying,
		AssetClass: row.AssetClass,
		Instrument: row.Instrument,
		Direction:  row.Direction,
		Strike:     row.Strike,
		Contracts:  row.Contracts,
		Notional:   row.Notional,
		OpenPrice:  row.OpenPrice,
		ClosePrice: row.ClosePrice,
		TradeDate:  row.TradeDate,
		CloseDate:  row.CloseDate,
		RealizedPL: row.RealizedPL,
		Reason:     row.Reason,
		RuleID:     row.RuleID,
	}, nil
}

func (j *Gorm) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
