package handler

import (
    "context"
    "fmt"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/src-portal/internal/authz"
    "github.com/iliyamo/src-portal/internal/guard"
    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
)

type BudgetStore interface {
    List(ctx context.Context) ([]model.Budget, error)
    Get(ctx context.Context, id uint64) (model.Budget, error)
    Create(ctx context.Context, b model.Budget) (uint64, error)
    Update(ctx context.Context, b model.Budget) error
    SetStatus(ctx context.Context, id uint64, to model.BudgetStatus) error
}

type BudgetHandler struct {
    Base
    Budgets BudgetStore
}

type budgetRow struct {
    Description string
    Amount      string
}

type budgetForm struct {
    Action string
    Budget model.Budget
    Rows   []budgetRow
}

// parseBudget reads title, fiscal year and item rows from the form.  Rows
// with neither description nor amount are ignored.
func parseBudget(c echo.Context) (model.Budget, string) {
    var b model.Budget
    b.Title = form(c, "title")
    if b.Title == "" {
        return b, "A title is required."
    }
    year, err := strconv.Atoi(form(c, "fiscal_year"))
    if err != nil || year < 2000 || year > 2100 {
        return b, "Enter a valid fiscal year."
    }
    b.FiscalYear = year

    params, err := c.FormParams()
    if err != nil {
        return b, "The form could not be read."
    }
    descs, amounts := params["item_description"], params["item_amount"]
    for i := 0; i < len(descs) || i < len(amounts); i++ {
        var d, a string
        if i < len(descs) {
            d = trim(descs[i])
        }
        if i < len(amounts) {
            a = trim(amounts[i])
        }
        if d == "" && a == "" {
            continue
        }
        if d == "" {
            return b, fmt.Sprintf("Item %d needs a description.", i+1)
        }
        amt, err := decimal.NewFromString(a)
        if err != nil || !amt.IsPositive() || !amt.Equal(amt.Round(2)) {
            return b, fmt.Sprintf("Item %d needs a positive amount with at most two decimals.", i+1)
        }
        b.Items = append(b.Items, model.BudgetItem{Description: d, Amount: amt})
    }
    if len(b.Items) == 0 {
        return b, "Add at least one item."
    }
    return b, ""
}

func formRows(items []model.BudgetItem, blank int) []budgetRow {
    rows := make([]budgetRow, 0, len(items)+blank)
    for _, it := range items {
        rows = append(rows, budgetRow{Description: it.Description, Amount: it.Amount.StringFixed(2)})
    }
    for i := 0; i < blank; i++ {
        rows = append(rows, budgetRow{})
    }
    return rows
}

func (h *BudgetHandler) List(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    list, err := h.Budgets.List(ctx)
    if err != nil {
        return h.internal(c, err, guard.DefaultFallback)
    }
    return h.render(c, http.StatusOK, "budgets", "Budgets", list)
}

func (h *BudgetHandler) Show(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown budget.", "/budgets")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    b, err := h.Budgets.Get(ctx, id)
    if err != nil {
        return h.storeError(c, err, "/budgets")
    }
    return h.render(c, http.StatusOK, "budget_show", b.Title, b)
}

func (h *BudgetHandler) NewForm(c echo.Context) error {
    return h.render(c, http.StatusOK, "budget_form", "New budget", budgetForm{Action: "/budgets", Rows: formRows(nil, 5)})
}

func (h *BudgetHandler) Create(c echo.Context) error {
    b, msg := parseBudget(c)
    if msg != "" {
        return h.failure(c, msg, "/budgets/new")
    }
    b.CreatedBy = middleware.Current(c).User.ID

    ctx, cancel := dbctx(c)
    defer cancel()
    id, err := h.Budgets.Create(ctx, b)
    if err != nil {
        return h.internal(c, err, "/budgets/new")
    }
    return h.success(c, "Budget created.", fmt.Sprintf("/budgets/%d", id))
}

func (h *BudgetHandler) EditForm(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown budget.", "/budgets")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    b, err := h.Budgets.Get(ctx, id)
    if err != nil {
        return h.storeError(c, err, "/budgets")
    }
    if b.Status == model.BudgetApproved {
        return h.failure(c, "Approved budgets cannot be edited.", fmt.Sprintf("/budgets/%d", id))
    }
    return h.render(c, http.StatusOK, "budget_form", "Edit "+b.Title,
        budgetForm{Action: fmt.Sprintf("/budgets/%d", id), Budget: b, Rows: formRows(b.Items, 2)})
}

// Update replaces the budget's fields and items; the repository recomputes
// the total in the same transaction.
func (h *BudgetHandler) Update(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown budget.", "/budgets")
    }
    back := fmt.Sprintf("/budgets/%d/edit", id)
    b, msg := parseBudget(c)
    if msg != "" {
        return h.failure(c, msg, back)
    }
    b.ID = id

    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Budgets.Update(ctx, b); err != nil {
        return h.storeError(c, err, fmt.Sprintf("/budgets/%d", id))
    }
    return h.success(c, "Budget saved.", fmt.Sprintf("/budgets/%d", id))
}

// SetStatus submits, approves or rejects a budget.  Submitting needs
// manage_budget (enforced on the route); approving and rejecting also need
// approve_budget.
func (h *BudgetHandler) SetStatus(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown budget.", "/budgets")
    }
    show := fmt.Sprintf("/budgets/%d", id)
    to := model.BudgetStatus(form(c, "status"))
    switch to {
    case model.BudgetSubmitted:
    case model.BudgetApproved, model.BudgetRejected:
        if d := guard.RequireCapability(middleware.GuardRequest(c), authz.CapApproveBudget, show); !d.Allow {
            return h.failure(c, d.Flash, d.Redirect)
        }
    default:
        return h.failure(c, "Unknown status.", show)
    }

    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Budgets.SetStatus(ctx, id, to); err != nil {
        return h.storeError(c, err, show)
    }
    return h.success(c, "Budget "+string(to)+".", show)
}
