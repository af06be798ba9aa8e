package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// BudgetStatus tracks a budget through review.
type BudgetStatus string

const (
    BudgetDraft     BudgetStatus = "draft"
    BudgetSubmitted BudgetStatus = "submitted"
    BudgetApproved  BudgetStatus = "approved"
    BudgetRejected  BudgetStatus = "rejected"
)

// Budget represents a row in the `budgets` table.  Total always equals the
// sum of the budget's items; the repository recomputes it on every write.
type Budget struct {
    ID         uint64
    Title      string
    FiscalYear int
    Status     BudgetStatus
    Total      decimal.Decimal
    CreatedBy  uint64
    CreatedAt  time.Time
    UpdatedAt  time.Time
    Items      []BudgetItem
}

// BudgetItem is a single line of a budget (`budget_items` table).
type BudgetItem struct {
    ID          uint64
    BudgetID    uint64
    Description string
    Amount      decimal.Decimal
}

// SumItems returns the total of the given items.
func SumItems(items []BudgetItem) decimal.Decimal {
    total := decimal.Zero
    for _, it := range items {
        total = total.Add(it.Amount)
    }
    return total
}
