package payroll

import (
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestParseBandHint(t *testing.T) {
	tests := []struct {
		name    string
		hint    string
		salary  string
		ok      bool
		matches bool
	}{
		{"range lower bound inclusive", "Band 5000-10000", "5000", true, true},
		{"range upper bound inclusive", "Band 5000-10000", "10000", true, true},
		{"range outside", "Band 5000-10000", "10001", true, false},
		{"range with commas and to", "5,000 to 10,000", "7500", true, true},
		{"above", "Above 10000", "20000", true, true},
		{"above excludes lower", "over 10000", "9999", true, false},
		{"below", "Below 5000", "4999.99", true, true},
		{"up to", "Up to 5000", "5000", true, true},
		{"no hint", "Standard", "1", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := parseBandHint(tt.hint)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.matches, b.contains(d(tt.salary)))
			}
		})
	}
}

func TestResolveTaxRule(t *testing.T) {
	rules := []payconfig.TaxRule{
		{ID: "low", Name: "Below 5000", Rate: d("5")},
		{ID: "mid", Name: "5000-10000", Rate: d("10")},
		{ID: "explicit", Name: "Top", Rate: d("20"), MinSalary: dp("10000.01")},
	}

	t.Run("first match wins on shared bound", func(t *testing.T) {
		rule, ok := ResolveTaxRule(rules, d("5000"))
		require.True(t, ok)
		assert.Equal(t, "low", rule.ID)
	})

	t.Run("range band", func(t *testing.T) {
		rule, ok := ResolveTaxRule(rules, d("7500"))
		require.True(t, ok)
		assert.Equal(t, "mid", rule.ID)
	})

	t.Run("explicit band", func(t *testing.T) {
		rule, ok := ResolveTaxRule(rules, d("25000"))
		require.True(t, ok)
		assert.Equal(t, "explicit", rule.ID)
	})

	t.Run("falls back to first rule", func(t *testing.T) {
		rule, ok := ResolveTaxRule([]payconfig.TaxRule{
			{ID: "flat", Name: "Flat", Rate: d("10")},
			{ID: "other", Name: "above 1000000", Rate: d("30")},
		}, d("6000"))
		require.True(t, ok)
		assert.Equal(t, "flat", rule.ID)
	})

	t.Run("no rules is no match", func(t *testing.T) {
		_, ok := ResolveTaxRule(nil, d("6000"))
		assert.False(t, ok)
	})
}

func TestResolveInsuranceBracket(t *testing.T) {
	brackets := []payconfig.InsuranceBracket{
		{ID: "a", MinSalary: d("0"), MaxSalary: d("4999.99"), EmployeeRate: d("1")},
		{ID: "b", MinSalary: d("5000"), MaxSalary: d("10000"), EmployeeRate: d("2")},
	}

	b, ok := ResolveInsuranceBracket(brackets, d("10000"))
	require.True(t, ok)
	assert.Equal(t, "b", b.ID)

	_, ok = ResolveInsuranceBracket(brackets, d("10000.01"))
	assert.False(t, ok)

	_, ok = ResolveInsuranceBracket(nil, d("1"))
	assert.False(t, ok)
}

func TestResolveAllowances(t *testing.T) {
	emp := "emp-1"
	rules := []payconfig.AllowanceRule{
		{Name: "Transport", Amount: d("100")},
		{Name: "Meal", Amount: d("50")},
		{Name: "Housing", Amount: d("300"), EmployeeID: &emp},
	}

	total, breakdown := ResolveAllowances(rules, emp)
	assert.True(t, d("300").Equal(total))
	assert.Len(t, breakdown, 1)

	total, breakdown = ResolveAllowances(rules, "emp-2")
	assert.True(t, d("150").Equal(total))
	assert.Len(t, breakdown, 2)

	total, breakdown = ResolveAllowances(nil, emp)
	assert.True(t, total.IsZero())
	assert.Empty(t, breakdown)
}
