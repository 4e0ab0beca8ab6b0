package http

import (
	"context"
	"errors"
	"net/http"

	"montra/internal/core"
	"montra/internal/ledger"
	"montra/internal/report"
)

func categoryIndex(cats []core.Category) map[int64]core.Category {
	idx := make(map[int64]core.Category, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx
}

func categoryViews(cats []core.Category, uid int64) []report.CategoryView {
	out := make([]report.CategoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, report.NewCategoryView(c, uid))
	}
	return out
}

// ---- categories ----

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	cats, err := s.ledger.Categories.List(r.Context(), ledger.CategoryFilter{UserID: uid})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]any{"categories": categoryViews(cats, uid)}).Write(w)
}

func (s *Server) categoryFromForm(r *http.Request) (core.Category, error) {
	f, err := readForm(r, s.ledger.Location())
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		Name:  f.String("name"),
		Icon:  f.String("icon"),
		Color: f.String("color"),
	}, f.Err()
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	c, err := s.categoryFromForm(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	created, err := s.ledger.Categories.Create(r.Context(), uid, c)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(report.NewCategoryView(created, uid)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	c, err := s.categoryFromForm(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	updated, err := s.ledger.Categories.Update(r.Context(), uid, id, c)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(report.NewCategoryView(updated, uid)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.Categories.Delete(r.Context(), userID(r), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- budgets ----

func (s *Server) budgetViews(ctx context.Context, uid int64, sts []core.BudgetStatus) ([]report.BudgetView, error) {
	cats, err := s.reports.CategoryIndex(ctx, uid)
	if err != nil {
		return nil, err
	}
	prefs, err := s.reports.Preferences(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]report.BudgetView, 0, len(sts))
	for _, st := range sts {
		out = append(out, report.NewBudgetView(st, cats, prefs))
	}
	return out, nil
}

// budgetView evaluates b against the spending of its month.
func (s *Server) budgetView(ctx context.Context, uid int64, b core.Budget) (report.BudgetView, error) {
	catID := b.CategoryID
	sts, err := s.reports.BudgetStatuses(ctx, ledger.BudgetFilter{UserID: uid, Month: b.Month, CategoryID: &catID})
	if err != nil {
		return report.BudgetView{}, err
	}
	st := core.BudgetStatus{Budget: b, Remaining: b.Amount}
	for _, candidate := range sts {
		if candidate.Budget.ID == b.ID {
			st = candidate
		}
	}
	views, err := s.budgetViews(ctx, uid, []core.BudgetStatus{st})
	if err != nil {
		return report.BudgetView{}, err
	}
	return views[0], nil
}

// handleListBudgets lists budgets with their derived status. An optional
// month=YYYY-MM narrows the list to one month.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	filter := ledger.BudgetFilter{UserID: uid}
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := core.ParseMonthKey(raw, s.ledger.Location())
		if err != nil {
			WriteError(w, r, core.FieldError("month", err, msgMonth))
			return
		}
		filter.Month = m
	}
	sts, err := s.reports.BudgetStatuses(ctx, filter)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	views, err := s.budgetViews(ctx, uid, sts)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]any{"budgets": views}).Write(w)
}

func (s *Server) budgetFromForm(r *http.Request) (core.Budget, error) {
	f, err := readForm(r, s.ledger.Location())
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		CategoryID: f.ID("category"),
		Amount:     f.Amount("amount"),
		Month:      f.Month("month"),
	}, f.Err()
}

// budgetConflict turns the unique (category, month) violation into a field
// error.
func budgetConflict(err error) error {
	if errors.Is(err, ledger.ErrConflict) {
		return core.FieldError("month", err, "A budget for this category and month already exists.")
	}
	return err
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	b, err := s.budgetFromForm(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	created, err := s.ledger.Budgets.Create(ctx, uid, b)
	if err != nil {
		WriteError(w, r, budgetConflict(err))
		return
	}
	view, err := s.budgetView(ctx, uid, created)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(view).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	b, err := s.budgetFromForm(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	updated, err := s.ledger.Budgets.Update(ctx, uid, id, b)
	if err != nil {
		WriteError(w, r, budgetConflict(err))
		return
	}
	view, err := s.budgetView(ctx, uid, updated)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.Budgets.Delete(r.Context(), userID(r), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- savings goals ----

func (s *Server) goalResponse(w http.ResponseWriter, r *http.Request, status int, g core.SavingsGoal) {
	prefs, err := s.reports.Preferences(r.Context(), userID(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().Status(status).JSON(report.NewGoalView(g, prefs)).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	goals, err := s.ledger.Goals.List(ctx, ledger.GoalFilter{UserID: uid})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	prefs, err := s.reports.Preferences(ctx, uid)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	views := make([]report.GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, report.NewGoalView(g, prefs))
	}
	NewResponse().JSON(map[string]any{"goals": views}).Write(w)
}

func (s *Server) goalFromForm(r *http.Request) (core.SavingsGoal, error) {
	f, err := readForm(r, s.ledger.Location())
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return core.SavingsGoal{
		Name:          f.String("name"),
		TargetAmount:  f.Amount("target_amount"),
		CurrentAmount: f.OptionalAmount("current_amount"),
		Icon:          f.String("icon"),
		Color:         f.String("color"),
		Deadline:      f.Date("deadline"),
	}, f.Err()
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.goalFromForm(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	created, err := s.ledger.Goals.Create(r.Context(), userID(r), g)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	s.goalResponse(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	g, err := s.goalFromForm(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	updated, err := s.ledger.Goals.Update(r.Context(), userID(r), id, g)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	s.goalResponse(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.Goals.Delete(r.Context(), userID(r), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddMoney increments the saved amount. Zero and negative amounts are
// rejected without touching the goal.
func (s *Server) handleAddMoney(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	f, err := readForm(r, s.ledger.Location())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	raw := f.String("amount")
	amount, perr := core.ParseAmount(raw)
	switch {
	case raw == "":
		f.fail("amount", msgRequired)
	case errors.Is(perr, core.ErrNonPositiveAmount):
		f.fail("amount", msgPositiveOnly)
	case perr != nil:
		f.fail("amount", "Invalid amount.")
	}
	if err := f.Err(); err != nil {
		WriteError(w, r, err)
		return
	}
	g, err := s.ledger.AddMoney(r.Context(), userID(r), id, amount)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	s.goalResponse(w, r, http.StatusOK, g)
}

// ---- profile ----

type profileView struct {
	UserID      int64          `json:"user_id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Currency    string         `json:"currency"`
	Theme       core.Theme     `json:"theme"`
	Currencies  []string       `json:"currencies"`
	Display     report.Display `json:"display"`
}

func newProfileView(p core.Profile) profileView {
	return profileView{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Currency:    p.Currency,
		Theme:       p.Theme,
		Currencies:  core.Currencies(),
		Display:     report.NewDisplay(p.Preferences()),
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Profile(r.Context(), userID(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(newProfileView(p)).Write(w)
}

// handleUpdateProfile changes only the fields present in the body.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	f, err := readForm(r, s.ledger.Location())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := s.ledger.Profile(ctx, uid)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if f.p.Has("display_name") {
		p.DisplayName = f.String("display_name")
	}
	if f.p.Has("email") {
		p.Email = f.String("email")
	}
	if f.p.Has("currency") {
		p.Currency = f.String("currency")
	}
	if f.p.Has("theme") {
		p.Theme = core.Theme(f.String("theme"))
	}
	saved, err := s.ledger.UpdateProfile(ctx, uid, p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(newProfileView(saved)).Write(w)
}
