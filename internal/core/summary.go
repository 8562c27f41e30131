package core

// MonthSummary is the balance picture for a month as of today.
type MonthSummary struct {
	Month             Month
	CurrentBalance    Money
	Income            Money
	ProjectedExpenses Money
}

// CycleState is the lifecycle of one card's billing cycle.
type CycleState string

const (
	CycleOpen   CycleState = "OPEN"
	CycleClosed CycleState = "CLOSED"
	CyclePaid   CycleState = "PAID"
	CycleUnpaid CycleState = "UNPAID"
)
