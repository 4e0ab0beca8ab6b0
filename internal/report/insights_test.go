package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func kinds(in []Insight) []InsightKind {
	out := make([]InsightKind, 0, len(in))
	for _, i := range in {
		out = append(out, i.Kind)
	}
	return out
}

func TestGenerateInsights(t *testing.T) {
	cases := []struct {
		name                      string
		income, expense, previous string
		want                      []InsightKind
		percents                  []int64
	}{
		{"spent more and saving", "300", "220", "200", []InsightKind{InsightSpentMore, InsightSavingsRate}, []int64{10, 27}},
		{"small decrease is noise", "0", "97", "100", []InsightKind{InsightStartTracking}, nil},
		{"large decrease", "0", "90", "100", []InsightKind{InsightSpentLess}, []int64{10}},
		{"overspending", "100", "150", "0", []InsightKind{InsightOverspending}, nil},
		{"spent more and overspending", "100", "150", "100", []InsightKind{InsightSpentMore, InsightOverspending}, []int64{50}},
		{"no income no warning", "0", "150", "0", []InsightKind{InsightStartTracking}, nil},
		{"nothing recorded", "0", "0", "0", []InsightKind{InsightStartTracking}, nil},
		{"income only", "500", "0", "200", []InsightKind{InsightSavingsRate}, []int64{100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateInsights(d(tc.income), d(tc.expense), d(tc.previous))
			require.Equal(t, tc.want, kinds(got))
			for i, pct := range tc.percents {
				assert.Equal(t, pct, got[i].Percent)
			}
			for _, in := range got {
				assert.NotEmpty(t, in.Message)
			}
		})
	}
}

func TestGenerateInsightsMessages(t *testing.T) {
	got := GenerateInsights(d("300"), d("220"), d("200"))
	require.Len(t, got, 2)
	assert.Equal(t, "You spent 10% more than last month.", got[0].Message)
	assert.Equal(t, "Your savings rate this month is 27%.", got[1].Message)
}
