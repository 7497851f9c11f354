// Package pricing holds the money math for land purchases: unit-price
// resolution, platform fee splits and installment schedules. All arithmetic
// runs on decimals and rounds to 2 places only at the final step so
// intermediate rounding error cannot compound.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/PeterAforo/ghanaland-sub000/internal/apperrors"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

// Round2 rounds a money value to 2 decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// BaseCost is unit price times requested units, rounded to 2 places.
func BaseCost(unitPrice float64, units int) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(units))).
		Round(2).InexactFloat64()
}

// FeeSplit derives the platform fee and the seller's net from an agreed
// price at the given fee percentage.
func FeeSplit(agreedPrice, feePercent float64) (fee, net float64) {
	price := decimal.NewFromFloat(agreedPrice)
	f := price.Mul(decimal.NewFromFloat(feePercent)).Div(decimal.NewFromInt(100)).Round(2)
	return f.InexactFloat64(), price.Sub(f).Round(2).InexactFloat64()
}

// Schedule is the outcome of pricing an installment purchase.
type Schedule struct {
	TotalWithInterest float64
	InitialDeposit    float64
	MonthlyPayment    float64
	Entries           []models.InstallmentEntry
}

// BuildSchedule prices baseCost under a financing package. Entry 0 is the
// initial deposit, due immediately; entries 1..DurationMonths fall on the
// same day of each following month.
func BuildSchedule(baseCost float64, pkg models.InstallmentPackage, now time.Time) (*Schedule, error) {
	if pkg.DurationMonths <= 0 {
		return nil, apperrors.Validationf("installment package duration must be at least one month")
	}

	base := decimal.NewFromFloat(baseCost)
	hundred := decimal.NewFromInt(100)

	interest := base.Mul(decimal.NewFromFloat(pkg.InterestRate)).Div(hundred)
	total := base.Add(interest)
	deposit := total.Mul(decimal.NewFromFloat(pkg.DepositPercent)).Div(hundred)
	monthly := total.Sub(deposit).Div(decimal.NewFromInt(int64(pkg.DurationMonths)))

	s := &Schedule{
		TotalWithInterest: total.Round(2).InexactFloat64(),
		InitialDeposit:    deposit.Round(2).InexactFloat64(),
		MonthlyPayment:    monthly.Round(2).InexactFloat64(),
	}

	s.Entries = append(s.Entries, models.InstallmentEntry{
		Number:  0,
		Type:    models.InstallmentDeposit,
		Amount:  s.InitialDeposit,
		DueDate: now,
		Status:  models.InstallmentPending,
	})
	for i := 1; i <= pkg.DurationMonths; i++ {
		s.Entries = append(s.Entries, models.InstallmentEntry{
			Number:  i,
			Type:    models.InstallmentMonthly,
			Amount:  s.MonthlyPayment,
			DueDate: now.AddDate(0, i, 0),
			Status:  models.InstallmentPending,
		})
	}
	return s, nil
}
