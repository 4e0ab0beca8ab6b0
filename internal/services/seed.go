package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/core"
	"montra/internal/ledger"
	applog "montra/internal/log"
)

// SystemCategories is the shared category set every user starts with.
var SystemCategories = []core.Category{
	{Name: "Food & Dining", Icon: "restaurant", Color: "#FFB74D"},
	{Name: "Transportation", Icon: "directions_car", Color: "#64B5F6"},
	{Name: "Housing", Icon: "home", Color: "#7986CB"},
	{Name: "Entertainment", Icon: "movie", Color: "#F06292"},
	{Name: "Shopping", Icon: "shopping_bag", Color: "#FF8A65"},
	{Name: "Healthcare", Icon: "local_hospital", Color: "#E57373"},
	{Name: "Education", Icon: "school", Color: "#4FC3F7"},
	{Name: "Salary", Icon: "payments", Color: "#81C784"},
	{Name: "Freelance", Icon: "work", Color: "#4DB6AC"},
	{Name: "Investment", Icon: "trending_up", Color: "#AED581"},
	{Name: "Gift", Icon: "redeem", Color: "#BA68C8"},
	{Name: "Bills & Utilities", Icon: "receipt_long", Color: "#90A4AE"},
	{Name: "Travel", Icon: "flight", Color: "#4DD0E1"},
	{Name: "Clothing", Icon: "checkroom", Color: "#CE93D8"},
	{Name: "Fitness", Icon: "fitness_center", Color: "#DCE775"},
	{Name: "Coffee", Icon: "coffee", Color: "#A1887F"},
	{Name: "Pets", Icon: "pets", Color: "#BCAAA4"},
	{Name: "Other", Icon: "category", Color: "#78909C"},
}

// SeedResult counts what a seeding run wrote.
type SeedResult struct {
	Created      int
	Updated      int
	Transactions int
	Budgets      int
}

// SeedSystemCategories creates the missing system categories and refreshes
// icon and color of the existing ones. It is idempotent.
func (s *LedgerService) SeedSystemCategories(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	for _, c := range SystemCategories {
		_, created, err := s.store.Categories().UpsertSystem(ctx, c)
		if err != nil {
			return res, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	s.logger.InfoContext(ctx, "System categories seeded",
		applog.FieldOperation, applog.OpSeed,
		"created", res.Created,
		"existing", res.Updated)
	return res, nil
}

var incomeCategories = map[string]bool{"Salary": true, "Freelance": true, "Investment": true, "Gift": true}

var demoNotes = map[string][]string{
	"Food & Dining":     {"Lunch at cafe", "Grocery shopping", "Dinner takeout", "Morning coffee", "Snacks"},
	"Transportation":    {"Uber ride", "Gas refill", "Bus ticket", "Parking fee", "Metro card"},
	"Housing":           {"Rent payment", "Electricity bill", "Water bill", "Internet bill", "Home repair"},
	"Entertainment":     {"Netflix subscription", "Movie tickets", "Concert tickets", "Gaming", "Books"},
	"Shopping":          {"New shoes", "Phone case", "Headphones", "Clothes", "Online order"},
	"Healthcare":        {"Doctor visit", "Pharmacy", "Lab tests", "Vitamins"},
	"Education":         {"Online course", "Books", "Workshop fee", "Certification", "Stationery"},
	"Salary":            {"Monthly salary", "Bonus", "Overtime pay"},
	"Freelance":         {"Client project", "Consulting fee", "Design work", "Development gig"},
	"Investment":        {"Dividend income", "Stock sale", "Interest earned"},
	"Gift":              {"Birthday gift received", "Cash gift"},
	"Bills & Utilities": {"Phone bill", "Insurance", "Subscription", "Cloud storage"},
	"Travel":            {"Hotel booking", "Flight ticket", "Travel insurance", "Souvenirs"},
	"Clothing":          {"Winter jacket", "Formal shirt", "Running shoes", "Accessories"},
	"Fitness":           {"Gym fee", "Protein powder", "Yoga class", "Sports gear"},
	"Pets":              {"Pet food", "Vet visit", "Pet toys", "Grooming"},
	"Coffee":            {"Local cafe", "Cold brew", "Espresso beans"},
}

var demoRanges = map[string][2]float64{
	"Housing":           {800, 2000},
	"Food & Dining":     {5, 80},
	"Transportation":    {5, 50},
	"Entertainment":     {10, 60},
	"Shopping":          {20, 200},
	"Healthcare":        {20, 150},
	"Education":         {30, 200},
	"Bills & Utilities": {15, 100},
	"Travel":            {50, 500},
	"Clothing":          {25, 150},
	"Fitness":           {20, 80},
	"Coffee":            {3, 12},
}

var (
	demoSalaries = []int64{2500, 3000, 3500, 4000, 4500, 5000, 5500, 6000}
	demoBudgets  = []int64{200, 300, 400, 500, 750, 1000}
	demoPayments = []core.PaymentMethod{core.Cash, core.Card, core.BankTransfer, core.UPI}
)

type DemoOptions struct {
	Months int
	Rand   *rand.Rand
	// Progress is called after every stored record.
	Progress func(done, total int)
}

// SeedDemoData fills the ledger of userID with Months of random but plausible
// income and expenses plus up to four budgets for the current month.
func (s *LedgerService) SeedDemoData(ctx context.Context, userID int64, opts DemoOptions) (SeedResult, error) {
	var res SeedResult
	if opts.Months <= 0 {
		opts.Months = 6
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	r := opts.Rand

	cats, err := s.store.Categories().List(ctx, ledger.CategoryFilter{UserID: userID})
	if err != nil {
		return res, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		return res, errors.New("no categories found, seed categories first")
	}
	var income, expense []core.Category
	for _, c := range cats {
		if incomeCategories[c.Name] {
			income = append(income, c)
		} else {
			expense = append(expense, c)
		}
	}
	if len(income) == 0 {
		income = cats
	}
	if len(expense) == 0 {
		expense = cats
	}

	today := core.DayStart(s.Now())
	plan := s.demoTransactions(r, today, opts.Months, income, expense)
	budgetCats := pick(r, expense, 4)
	total := len(plan) + len(budgetCats)

	for _, tx := range plan {
		if _, err := s.Transactions.Create(ctx, userID, tx); err != nil {
			return res, fmt.Errorf("seed transaction: %w", err)
		}
		res.Transactions++
		if opts.Progress != nil {
			opts.Progress(res.Transactions, total)
		}
	}
	for _, c := range budgetCats {
		b := core.Budget{
			CategoryID: c.ID,
			Amount:     decimal.NewFromInt(demoBudgets[r.IntN(len(demoBudgets))]),
			Month:      core.MonthStart(today),
		}
		_, err := s.Budgets.Create(ctx, userID, b)
		switch {
		case errors.Is(err, ledger.ErrConflict):
		case err != nil:
			return res, fmt.Errorf("seed budget: %w", err)
		default:
			res.Budgets++
		}
		if opts.Progress != nil {
			opts.Progress(res.Transactions+res.Budgets, total)
		}
	}

	s.logger.InfoContext(ctx, "Demo data seeded",
		applog.FieldOperation, applog.OpSeed,
		applog.FieldUserID, userID,
		"transactions", res.Transactions,
		"budgets", res.Budgets)
	return res, nil
}

func (s *LedgerService) demoTransactions(r *rand.Rand, today time.Time, months int, income, expense []core.Category) []core.Transaction {
	var out []core.Transaction
	add := func(c core.Category, typ core.TransactionType, amount decimal.Decimal, day time.Time, pm core.PaymentMethod) {
		id := c.ID
		notes := demoNotes[c.Name]
		note := "Expense"
		if typ == core.Income {
			note = "Income"
		}
		if len(notes) > 0 {
			note = notes[r.IntN(len(notes))]
		}
		out = append(out, core.Transaction{
			Amount:        amount,
			Type:          typ,
			CategoryID:    &id,
			Date:          day.Add(12 * time.Hour),
			PaymentMethod: pm,
			Notes:         note,
		})
	}

	for offset := 0; offset < months; offset++ {
		start := core.AddMonths(core.MonthStart(today), -offset)
		end := core.AddMonths(start, 1).AddDate(0, 0, -1)
		if offset == 0 {
			end = today
		}
		days := end.Day()
		randomDay := func() time.Time {
			d := start.AddDate(0, 0, r.IntN(min(28, days)))
			if d.After(today) {
				return today
			}
			return d
		}

		for i, n := 0, 1+r.IntN(2); i < n; i++ {
			c := income[r.IntN(len(income))]
			amount := decimal.NewFromInt(demoSalaries[r.IntN(len(demoSalaries))])
			add(c, core.Income, amount, randomDay(), core.BankTransfer)
		}
		for i, n := 0, 8+r.IntN(8); i < n; i++ {
			c := expense[r.IntN(len(expense))]
			bounds, ok := demoRanges[c.Name]
			if !ok {
				bounds = [2]float64{10, 100}
			}
			amount := decimal.NewFromFloat(bounds[0] + r.Float64()*(bounds[1]-bounds[0])).Round(2)
			add(c, core.Expense, amount, randomDay(), demoPayments[r.IntN(len(demoPayments))])
		}
	}
	return out
}

func pick(r *rand.Rand, cats []core.Category, n int) []core.Category {
	shuffled := append([]core.Category(nil), cats...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if len(shuffled) > n {
		shuffled = shuffled[:n]
	}
	return shuffled
}
