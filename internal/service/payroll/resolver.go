package payroll

import (
	"regexp"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	number        = `(\d+(?:\.\d+)?)`
	rangeHint     = regexp.MustCompile(number + `\s*(?:-|to)\s*` + number)
	lowerOnlyHint = regexp.MustCompile(`(?:above|over|from|more than|>=?)\s*` + number)
	upperOnlyHint = regexp.MustCompile(`(?:below|under|up to|less than|<=?)\s*` + number)
)

// band is an inclusive salary range; a nil bound is open.
type band struct {
	min *decimal.Decimal
	max *decimal.Decimal
}

func (b band) contains(salary decimal.Decimal) bool {
	if b.min != nil && salary.LessThan(*b.min) {
		return false
	}
	if b.max != nil && salary.GreaterThan(*b.max) {
		return false
	}
	return true
}

// taxBand returns the explicit band of a rule, or the one hinted by its name.
func taxBand(rule payconfig.TaxRule) (band, bool) {
	if rule.MinSalary != nil || rule.MaxSalary != nil {
		return band{min: rule.MinSalary, max: rule.MaxSalary}, true
	}
	return parseBandHint(rule.Name)
}

// parseBandHint reads "5000-10000", "5,000 to 10,000", "above 10000" or
// "below 5000" out of a rule name.
func parseBandHint(name string) (band, bool) {
	s := strings.ToLower(strings.ReplaceAll(name, ",", ""))

	if m := rangeHint.FindStringSubmatch(s); m != nil {
		lo, errLo := decimal.NewFromString(m[1])
		hi, errHi := decimal.NewFromString(m[2])
		if errLo == nil && errHi == nil {
			if lo.GreaterThan(hi) {
				lo, hi = hi, lo
			}
			return band{min: &lo, max: &hi}, true
		}
	}
	if m := lowerOnlyHint.FindStringSubmatch(s); m != nil {
		if lo, err := decimal.NewFromString(m[1]); err == nil {
			return band{min: &lo}, true
		}
	}
	if m := upperOnlyHint.FindStringSubmatch(s); m != nil {
		if hi, err := decimal.NewFromString(m[1]); err == nil {
			return band{max: &hi}, true
		}
	}
	return band{}, false
}

// ResolveTaxRule returns the first rule whose band contains base. When no
// band matches, the first configured rule applies. ok is false only when no
// rules are configured, which callers treat as zero tax.
func ResolveTaxRule(rules []payconfig.TaxRule, base decimal.Decimal) (payconfig.TaxRule, bool) {
	if len(rules) == 0 {
		return payconfig.TaxRule{}, false
	}
	for _, rule := range rules {
		if b, ok := taxBand(rule); ok && b.contains(base) {
			return rule, true
		}
	}
	return rules[0], true
}

// ResolveInsuranceBracket returns the first bracket with Min <= base <= Max.
func ResolveInsuranceBracket(brackets []payconfig.InsuranceBracket, base decimal.Decimal) (payconfig.InsuranceBracket, bool) {
	for _, b := range brackets {
		if b.Contains(base) {
			return b, true
		}
	}
	return payconfig.InsuranceBracket{}, false
}

// ResolveAllowances sums the employee's own allowance rules, or the system
// defaults when the employee has none.
func ResolveAllowances(rules []payconfig.AllowanceRule, employeeID string) (decimal.Decimal, map[string]decimal.Decimal) {
	var own, defaults []payconfig.AllowanceRule
	for _, r := range rules {
		switch {
		case r.EmployeeID == nil:
			defaults = append(defaults, r)
		case *r.EmployeeID == employeeID:
			own = append(own, r)
		}
	}

	selected := defaults
	if len(own) > 0 {
		selected = own
	}

	total := decimal.Zero
	breakdown := make(map[string]decimal.Decimal, len(selected))
	for _, r := range selected {
		total = total.Add(r.Amount)
		breakdown[r.Name] = breakdown[r.Name].Add(r.Amount)
	}
	return total, breakdown
}

// percentOf returns amount * rate / 100.
func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// money rounds to two decimal places.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
