package hiringflow

import (
	"fmt"
	"strconv"
	"strings"
)

// allowanceRatioThreshold is the share of total salary above which the
// allowance mix is flagged for the verifier.
const allowanceRatioThreshold = 30.0

// SalaryAnalysis is the derived view of a salary proposal shown to the
// verifier: resolved totals, band fit, internal parity and budget fit texts,
// and risk flags.
type SalaryAnalysis struct {
	BasicSalary          float64  `json:"basic_salary"`
	AllowancesTotal      float64  `json:"allowances_total"`
	TotalSalary          float64  `json:"total_salary"`
	EmployerContribution float64  `json:"employer_contribution"`
	TotalCTC             float64  `json:"total_ctc"`
	BandMin              float64  `json:"band_min"`
	BandMid              float64  `json:"band_mid"`
	BandMax              float64  `json:"band_max"`
	RangeFitLabel        string   `json:"range_fit_label"`
	InternalParityText   string   `json:"internal_parity_text"`
	BudgetFitText        string   `json:"budget_fit_text"`
	RiskFlags            []string `json:"risk_flags"`
}

// AnalyzeSalary computes the verification projection for a proposal. Missing
// totals are derived from their components; missing band, median, or budget
// data yields the corresponding "no data" text rather than an error.
func AnalyzeSalary(p SalaryProposal) SalaryAnalysis {
	totalSalary := p.TotalSalary
	if totalSalary == 0 {
		totalSalary = p.BasicSalary + p.AllowancesTotal
	}
	totalCTC := p.TotalCTC
	if totalCTC == 0 {
		totalCTC = totalSalary + p.EmployerContribution
	}

	a := SalaryAnalysis{
		BasicSalary:          p.BasicSalary,
		AllowancesTotal:      p.AllowancesTotal,
		TotalSalary:          totalSalary,
		EmployerContribution: p.EmployerContribution,
		TotalCTC:             totalCTC,
		BandMin:              p.BandMin,
		BandMid:              p.BandMid,
		BandMax:              p.BandMax,
		RangeFitLabel:        rangeFitLabel(p.BasicSalary, p.BandMin, p.BandMid, p.BandMax),
		InternalParityText:   internalParityText(p.BasicSalary, p.TeamMedianSalary),
		BudgetFitText:        budgetFitText(totalCTC, p.RoleBudgetMaxCTC),
		RiskFlags:            []string{},
	}

	if p.BandMax > 0 && p.BasicSalary > p.BandMax {
		a.RiskFlags = append(a.RiskFlags, "Basic salary above band maximum")
	}
	if totalSalary > 0 {
		ratio := p.AllowancesTotal / totalSalary * 100
		if ratio > allowanceRatioThreshold {
			a.RiskFlags = append(a.RiskFlags,
				fmt.Sprintf("Allowance ratio is %.1f%% (exceeds %.0f%% threshold)", ratio, allowanceRatioThreshold))
		}
	}
	if p.RoleBudgetMaxCTC > 0 && totalCTC > p.RoleBudgetMaxCTC {
		a.RiskFlags = append(a.RiskFlags, "Total CTC exceeds role budget")
	}

	return a
}

func rangeFitLabel(basic, min, mid, max float64) string {
	if min <= 0 || max <= 0 {
		return "No band data"
	}
	switch {
	case basic < min:
		return "Below Band"
	case basic <= mid:
		return "Within Band (Below/Near Midpoint)"
	case basic <= max:
		return "Within Band (Near Upper Range)"
	default:
		return "Above Band"
	}
}

func internalParityText(basic, teamMedian float64) string {
	if teamMedian <= 0 {
		return "No team median data available"
	}
	diff := basic - teamMedian
	percent := diff / teamMedian * 100
	switch {
	case diff > 0:
		return fmt.Sprintf("Basic salary is RM %s (%.1f%%) above team median", formatAmount(diff), percent)
	case diff < 0:
		return fmt.Sprintf("Basic salary is RM %s (%.1f%%) below team median", formatAmount(-diff), -percent)
	default:
		return "Basic salary matches team median"
	}
}

func budgetFitText(totalCTC, budgetMax float64) string {
	if budgetMax <= 0 {
		return "No budget data available"
	}
	if totalCTC <= budgetMax {
		return "Within budget"
	}
	return fmt.Sprintf("Exceeds budget by RM %s", formatAmount(totalCTC-budgetMax))
}

// formatAmount renders an amount with thousands separators, dropping the
// fraction when it is whole (1234567.5 → "1,234,567.5", 2000 → "2,000").
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte(',')
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
