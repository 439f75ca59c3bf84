// Package account is the single-currency cash ledger a run mutates when
// trades open and close.
package account

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/trade"
)

var daysPerYear = decimal.NewFromInt(365)

// Account holds cash as a decimal so repeated debits and credits do not
// drift.
type Account struct {
	currency string
	initial  decimal.Decimal
	cash     decimal.Decimal
}

// New validates and returns an account whose cash equals the initial
// balance.
func New(currency string, initial float64) (*Account, error) {
	if currency == "" {
		return nil, errors.New("account: currency is required")
	}
	if initial <= 0 {
		return nil, fmt.Errorf("account: initial balance must be > 0, got %g", initial)
	}
	bal := decimal.NewFromFloat(initial)
	return &Account{currency: currency, initial: bal, cash: bal}, nil
}

func (a *Account) Currency() string { return a.currency }

func (a *Account) InitialBalance() float64 { return a.initial.InexactFloat64() }

func (a *Account) CashBalance() float64 { return a.cash.InexactFloat64() }

// Cash returns the exact balance.
func (a *Account) Cash() decimal.Decimal { return a.cash }

// OpenTrade debits the trade's notional.
func (a *Account) OpenTrade(t *trade.Trade) {
	a.cash = a.cash.Sub(decimal.NewFromFloat(t.NotionalAmount))
}

// CloseTrade credits a closed trade. Bills return notional plus simple
// interest for the days held; everything else returns notional plus
// realised PnL.
func (a *Account) CloseTrade(t *trade.Trade) error {
	if !t.Closed() {
		return fmt.Errorf("account: trade %s is not closed", t.ID)
	}
	notional := decimal.NewFromFloat(t.NotionalAmount)

	if t.Type() == trade.TreasuryBill {
		rate, ok := t.InterestRate()
		if !ok {
			return fmt.Errorf("account: treasury bill %s has no interest rate", t.ID)
		}
		days := decimal.NewFromInt(int64(calendar.DaysBetween(t.TradeDate, t.ValueDate)))
		accrual := decimal.NewFromFloat(rate).Mul(days).Div(daysPerYear)
		a.cash = a.cash.Add(notional.Mul(decimal.NewFromInt(1).Add(accrual)))
		return nil
	}

	a.cash = a.cash.Add(notional).Add(decimal.NewFromFloat(t.PnL()))
	return nil
}

// Release credits notional freed by shrinking a live position.
func (a *Account) Release(amount float64) {
	a.cash = a.cash.Add(decimal.NewFromFloat(amount))
}

func (a *Account) String() string {
	return fmt.Sprintf("%s %s", a.cash.StringFixed(2), a.currency)
}
