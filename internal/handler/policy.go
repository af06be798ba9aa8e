package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

type policy struct {
    Slug       string
    Title      string
    Paragraphs []string
}

var policies = []policy{
    {
        Slug:  "constitution",
        Title: "SRC Constitution",
        Paragraphs: []string{
            "The Students' Representative Council is the highest body of student governance and represents every registered student.",
            "Council members are elected annually by secret ballot. A member serves a single term and may stand for re-election once.",
            "The council meets at least once a month during term. Minutes of every meeting are published on this portal.",
        },
    },
    {
        Slug:  "finance",
        Title: "Finance Policy",
        Paragraphs: []string{
            "Every expenditure must be covered by an approved budget. Budgets are drafted by the finance office and approved by an administrator.",
            "Approved budgets cannot be edited. A rejected budget returns to draft and may be resubmitted.",
        },
    },
    {
        Slug:  "elections",
        Title: "Election Rules",
        Paragraphs: []string{
            "Any registered student may stand as a candidate while nominations are open.",
            "A candidate may register for a position only once per election. Nominations are reviewed by the electoral commission before the ballot.",
        },
    },
    {
        Slug:  "privacy",
        Title: "Privacy Notice",
        Paragraphs: []string{
            "The portal stores your student number, email address and, if provided, a mobile number for council notices.",
            "Your details are never shared outside the council. You may ask the secretariat to correct them at any time.",
        },
    },
}

func findPolicy(slug string) (policy, bool) {
    for _, p := range policies {
        if p.Slug == slug {
            return p, true
        }
    }
    return policy{}, false
}

// PolicyHandler serves the static policy pages.  They are public.
type PolicyHandler struct {
    Base
}

func (h *PolicyHandler) List(c echo.Context) error {
    return h.render(c, http.StatusOK, "policies", "Policies", policies)
}

func (h *PolicyHandler) Show(c echo.Context) error {
    p, ok := findPolicy(c.Param("slug"))
    if !ok {
        return echo.ErrNotFound
    }
    return h.render(c, http.StatusOK, "policy_show", p.Title, p)
}
