package settlement_test

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sangkips/investify-till/internal/domain/settlement"
	"github.com/sangkips/investify-till/pkg/money"
	"github.com/shopspring/decimal"
)

func cents(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

// Property: whichever non-last split is edited, the last split absorbs the
// remainder so splits + credit + points meet the target.
func TestEditsBeforeLastKeepPaymentBalanced(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sum(amounts) + credit + points == target", prop.ForAll(
		func(targetCents int64, shares []int, creditShare, pointsShare int) bool {
			target := cents(targetCents)
			limits := settlement.Limits{
				Credit:        cents(targetCents * int64(creditShare) / 100),
				LoyaltyPoints: decimal.NewFromInt(targetCents * int64(pointsShare) / 100),
				PointValue:    decimal.New(1, -2),
			}
			a := settlement.NewAllocator(target, "Cash", "credit", limits)
			for range shares {
				a.AddSplit()
			}
			a.SetCreditUsed(limits.Credit)
			a.SetPointsRedeemed(limits.LoyaltyPoints)

			splits := a.Splits()
			for i, share := range shares {
				amount := cents(targetCents * int64(share) / 100)
				if err := a.UpdateSplit(splits[i].ID, settlement.FieldAmount, amount.String()); err != nil {
					return false
				}
			}

			total := money.Sum(a.SplitTotal(), a.CreditUsed(), a.PointsValue())
			return money.NearlyEqual(total, a.Target()) && a.IsComplete()
		},
		gen.Int64Range(1, 10_000_000),
		gen.SliceOfN(3, gen.IntRange(0, 20)),
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

// Property: creditUsed stays within [0, min(credit, target)].
func TestCreditNeverExceedsCeiling(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("0 <= creditUsed <= min(credit, target)", prop.ForAll(
		func(targetCents, creditCents, requestCents int64) bool {
			a := settlement.NewAllocator(cents(targetCents), "Cash", "credit", settlement.Limits{
				Credit:     cents(creditCents),
				PointValue: decimal.NewFromInt(1),
			})

			used := a.SetCreditUsed(cents(requestCents))

			ceiling := decimal.Min(cents(creditCents), cents(targetCents))
			return !used.IsNegative() && used.LessThanOrEqual(ceiling) && used.Equal(a.CreditUsed())
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(-1_000_000, 2_000_000),
	))

	properties.TestingRun(t)
}

// Property: pointsRedeemed stays within [0, loyalty points].
func TestPointsNeverExceedBalance(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("0 <= pointsRedeemed <= loyaltyPoints", prop.ForAll(
		func(balance, request int64) bool {
			a := settlement.NewAllocator(decimal.NewFromInt(1000), "Cash", "credit", settlement.Limits{
				LoyaltyPoints: decimal.NewFromInt(balance),
				PointValue:    decimal.NewFromInt(1),
			})

			got := a.SetPointsRedeemed(decimal.NewFromInt(request))

			return !got.IsNegative() && got.LessThanOrEqual(decimal.NewFromInt(balance))
		},
		gen.Int64Range(0, 5000),
		gen.Int64Range(-5000, 10_000),
	))

	properties.TestingRun(t)
}

// Property: a walk-in customer can never move any split to credit, and the
// attempt leaves every split untouched.
func TestWalkInCreditAlwaysRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("walk-in credit edit is rejected without change", prop.ForAll(
		func(targetCents int64, extra int, pick int) bool {
			a := settlement.NewAllocator(cents(targetCents), "Cash", "credit", settlement.Limits{
				PointValue: decimal.NewFromInt(1),
				WalkIn:     true,
			})
			for i := 0; i < extra; i++ {
				a.AddSplit()
			}
			before := a.Splits()
			target := before[pick%len(before)]

			err := a.UpdateSplit(target.ID, settlement.FieldMode, "credit")

			return err != nil && reflect.DeepEqual(before, a.Splits())
		},
		gen.Int64Range(0, 1_000_000),
		gen.IntRange(0, 4),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// Property: a split only reports confirmed after a successful attempt.
func TestConfirmedOnlyAfterSuccess(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("confirmed implies success", prop.ForAll(
		func(steps []int) bool {
			a := settlement.NewAllocator(decimal.NewFromInt(100), "M-Pesa", "credit", settlement.Limits{
				PointValue: decimal.NewFromInt(1),
				WalkIn:     true,
			})
			id := a.Splits()[0].ID
			for i, step := range steps {
				switch step {
				case 0:
					_, _ = a.BeginConfirmation(id)
				case 1:
					a.CompleteConfirmation(id, "REF"+strconv.Itoa(i))
				case 2:
					a.FailConfirmation(id, "declined")
				default:
					_ = a.UpdateSplit(id, settlement.FieldPhone, "07"+strconv.Itoa(i))
				}
				split, _ := a.Split(id)
				if split.Confirmed != split.ReadOnly() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}
