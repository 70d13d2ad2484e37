package entity

import (
	"fmt"
	"slices"
	"time"
)

type InstallmentPlan struct {
	DueDate time.Time `json:"due_date"`
	Amount  Money     `json:"amount"`
}

// Schedule replaces the booking's installment plan. The plan must add up to
// the booking total with non-decreasing due dates. A plan cannot be replaced
// once any installment was paid.
func (l Lifecycle) Schedule(b Booking, plan []InstallmentPlan, key string, at time.Time) (Booking, bool, error) {
	if b.HasApplied(key) {
		return b, false, nil
	}
	if b.Status.Terminal() {
		return Booking{}, false, newError(KindIllegalTransition, "booking %s is %s", b.BookingID, b.Status)
	}
	if slices.ContainsFunc(b.Schedule, func(in Installment) bool { return in.Status == InstallmentPaid }) {
		return Booking{}, false, newError(KindIllegalTransition, "booking %s already has paid installments", b.BookingID)
	}
	if len(plan) == 0 {
		return Booking{}, false, newError(KindScheduleMismatch, "schedule has no installments")
	}

	installments := make([]Installment, 0, len(plan))
	for i, p := range plan {
		if !p.Amount.IsPositive() {
			return Booking{}, false, InvalidAmount("installment %d amount %s must be positive", i+1, p.Amount)
		}
		if i > 0 && p.DueDate.Before(plan[i-1].DueDate) {
			return Booking{}, false, newError(KindScheduleMismatch,
				"installment %d is due before installment %d", i+1, i)
		}
		installments = append(installments, Installment{
			DueDate: p.DueDate,
			Amount:  p.Amount,
			Status:  InstallmentPending,
		})
	}
	if err := validateSchedule(installments, b.Total); err != nil {
		return Booking{}, false, err
	}

	b = b.Clone()
	b.Schedule = installments
	b.markApplied(key)
	b.UpdatedAt = at
	return b, true, nil
}

// MarkInstallmentPaid records the installment's amount as a payment. index is
// 1-based.
func (l Lifecycle) MarkInstallmentPaid(b Booking, index int, paidAt time.Time, key string) (Booking, bool, error) {
	if b.HasApplied(key) {
		return b, false, nil
	}
	if index < 1 || index > len(b.Schedule) {
		return Booking{}, false, NotFound("installment", fmt.Sprintf("%s#%d", b.BookingID, index))
	}
	if b.Schedule[index-1].Status == InstallmentPaid {
		return Booking{}, false, newError(KindAlreadyPaid, "installment %d of booking %s is already paid", index, b.BookingID)
	}

	b = b.Clone()
	in := &b.Schedule[index-1]
	in.Status = InstallmentPaid
	in.PaidAt = &paidAt

	b, err := l.recordPayment(b, in.Amount, key, index, paidAt)
	if err != nil {
		return Booking{}, false, err
	}
	return b, true, nil
}

// ScheduleView returns the schedule as seen at now: pending installments past
// their due date read as overdue. The booking is not modified.
func ScheduleView(b Booking, now time.Time) []Installment {
	view := slices.Clone(b.Schedule)
	for i, in := range view {
		if in.Status == InstallmentPending && in.DueDate.Before(now) {
			view[i].Status = InstallmentOverdue
		}
	}
	return view
}

func validateSchedule(installments []Installment, total Money) error {
	sum := Zero
	for _, in := range installments {
		sum = sum.Add(in.Amount)
	}
	if !sum.Equal(total) {
		return newError(KindScheduleMismatch, "installments add up to %s, booking total is %s", sum, total)
	}
	return nil
}

// CheckSchedule verifies that an existing schedule still matches the total.
// An empty schedule always passes.
func (b Booking) CheckSchedule() error {
	if len(b.Schedule) == 0 {
		return nil
	}
	return validateSchedule(b.Schedule, b.Total)
}

// rebalance takes amount out of the schedule after a refund shrank the total.
// Paid installments give back first, latest first, then pending ones from the
// end. Installments that reach zero stay in place so indexes do not shift.
func rebalance(schedule []Installment, amount Money) []Installment {
	if len(schedule) == 0 {
		return schedule
	}
	left := amount
	take := func(in *Installment) {
		if !left.IsPositive() || !in.Amount.IsPositive() {
			return
		}
		cut := MinMoney(in.Amount, left)
		in.Amount = in.Amount.Sub(cut)
		left = left.Sub(cut)
	}
	for i := len(schedule) - 1; i >= 0; i-- {
		if schedule[i].Status == InstallmentPaid {
			take(&schedule[i])
		}
	}
	for i := len(schedule) - 1; i >= 0; i-- {
		if schedule[i].Status != InstallmentPaid {
			take(&schedule[i])
		}
	}
	for i := range schedule {
		if schedule[i].Status != InstallmentPaid && schedule[i].Amount.IsZero() {
			schedule[i].Status = InstallmentPaid
		}
	}
	return schedule
}
