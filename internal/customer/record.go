package customer

import (
	"encoding/json"
	"strconv"
)

// Draft is a partially filled customer form keyed by wire name. Values are
// kept exactly as entered.
type Draft map[FieldName]string

// Clone returns a copy of the draft.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Record is a complete, validated customer record.
type Record struct {
	CreditScore     int
	Geography       string
	Gender          string
	Age             int
	Tenure          int
	Balance         float64
	NumOfProducts   int
	HasCreditCard   bool
	IsActiveMember  bool
	EstimatedSalary float64
}

// Values serializes the record to its wire form: every value a string, the
// way the form holds it.
func (r Record) Values() map[string]string {
	return map[string]string{
		string(CreditScore):     strconv.Itoa(r.CreditScore),
		string(Geography):       r.Geography,
		string(Gender):          r.Gender,
		string(Age):             strconv.Itoa(r.Age),
		string(Tenure):          strconv.Itoa(r.Tenure),
		string(Balance):         formatDecimal(r.Balance),
		string(NumOfProducts):   strconv.Itoa(r.NumOfProducts),
		string(HasCreditCard):   formatFlag(r.HasCreditCard),
		string(IsActiveMember):  formatFlag(r.IsActiveMember),
		string(EstimatedSalary): formatDecimal(r.EstimatedSalary),
	}
}

// MarshalJSON encodes the record as a flat object of strings.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Values())
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
