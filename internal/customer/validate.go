package customer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reasons a field fails validation.
const (
	ReasonMissing    = "missing"
	ReasonNotNumber  = "not a number"
	ReasonNotInteger = "not a whole number"
	ReasonOutOfRange = "out of range"
	ReasonNotOption  = "not an allowed option"
)

// Problem is one invalid field.
type Problem struct {
	Field  FieldName
	Reason string
}

// ValidationError lists every missing or invalid field of a draft, in
// schema order.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Field, p.Reason))
	}
	return "please fill out all fields: " + strings.Join(parts, ", ")
}

// Fields returns the offending field names.
func (e *ValidationError) Fields() []FieldName {
	out := make([]FieldName, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, p.Field)
	}
	return out
}

// Reason returns the problem recorded for name, if any.
func (e *ValidationError) Reason(name FieldName) (string, bool) {
	for _, p := range e.Problems {
		if p.Field == name {
			return p.Reason, true
		}
	}
	return "", false
}

// Validate checks that every field of the draft is present and inside its
// domain and returns the typed record. Values are trimmed before checking.
func Validate(d Draft) (Record, error) {
	var problems []Problem
	nums := make(map[FieldName]float64)
	for _, f := range Schema {
		raw := strings.TrimSpace(d[f.Name])
		if raw == "" {
			problems = append(problems, Problem{Field: f.Name, Reason: ReasonMissing})
			continue
		}
		if f.Input == SelectInput {
			if !f.Allows(raw) {
				problems = append(problems, Problem{Field: f.Name, Reason: ReasonNotOption})
			}
			continue
		}
		v, reason := checkNumber(f, raw)
		if reason != "" {
			problems = append(problems, Problem{Field: f.Name, Reason: reason})
			continue
		}
		nums[f.Name] = v
	}
	if len(problems) > 0 {
		return Record{}, &ValidationError{Problems: problems}
	}

	products, _ := strconv.Atoi(strings.TrimSpace(d[NumOfProducts]))
	return Record{
		CreditScore:     int(nums[CreditScore]),
		Geography:       strings.TrimSpace(d[Geography]),
		Gender:          strings.TrimSpace(d[Gender]),
		Age:             int(nums[Age]),
		Tenure:          int(nums[Tenure]),
		Balance:         nums[Balance],
		NumOfProducts:   products,
		HasCreditCard:   strings.TrimSpace(d[HasCreditCard]) == "1",
		IsActiveMember:  strings.TrimSpace(d[IsActiveMember]) == "1",
		EstimatedSalary: nums[EstimatedSalary],
	}, nil
}

func checkNumber(f Field, raw string) (float64, string) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ReasonNotNumber
	}
	if f.Integer && v != math.Trunc(v) {
		return 0, ReasonNotInteger
	}
	// whole-number fields become ints on the record
	if f.Integer && (v < math.MinInt32 || v > math.MaxInt32) {
		return 0, ReasonOutOfRange
	}
	if (f.Min != nil && v < *f.Min) || (f.Max != nil && v > *f.Max) {
		return 0, ReasonOutOfRange
	}
	return v, ""
}
