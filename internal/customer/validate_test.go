package customer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeDraft() Draft {
	return Draft{
		CreditScore:     "650",
		Geography:       "France",
		Gender:          "Female",
		Age:             "34",
		Tenure:          "5",
		Balance:         "0",
		NumOfProducts:   "2",
		HasCreditCard:   "1",
		IsActiveMember:  "1",
		EstimatedSalary: "50000",
	}
}

func TestValidate_CompleteDraft(t *testing.T) {
	rec, err := Validate(completeDraft())
	require.NoError(t, err)

	assert.Equal(t, Record{
		CreditScore:     650,
		Geography:       "France",
		Gender:          "Female",
		Age:             34,
		Tenure:          5,
		Balance:         0,
		NumOfProducts:   2,
		HasCreditCard:   true,
		IsActiveMember:  true,
		EstimatedSalary: 50000,
	}, rec)
}

func TestValidate_EmptyDraftReportsEveryField(t *testing.T) {
	_, err := Validate(Draft{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	want := make([]FieldName, 0, len(Schema))
	for _, f := range Schema {
		want = append(want, f.Name)
	}
	assert.Equal(t, want, verr.Fields())
	for _, p := range verr.Problems {
		assert.Equal(t, ReasonMissing, p.Reason)
	}
}

func TestValidate_InvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		field  FieldName
		value  string
		reason string
	}{
		{"blank", Age, "   ", ReasonMissing},
		{"credit score below range", CreditScore, "299", ReasonOutOfRange},
		{"credit score above range", CreditScore, "901", ReasonOutOfRange},
		{"age above range", Age, "201", ReasonOutOfRange},
		{"negative tenure", Tenure, "-1", ReasonOutOfRange},
		{"tenure overflows int", Tenure, "1e20", ReasonOutOfRange},
		{"tenure just past int32", Tenure, "2147483648", ReasonOutOfRange},
		{"negative balance", Balance, "-0.01", ReasonOutOfRange},
		{"negative salary", EstimatedSalary, "-5", ReasonOutOfRange},
		{"fractional age", Age, "34.5", ReasonNotInteger},
		{"text credit score", CreditScore, "abc", ReasonNotNumber},
		{"nan balance", Balance, "NaN", ReasonNotNumber},
		{"unknown geography", Geography, "Italy", ReasonNotOption},
		{"unknown gender", Gender, "other", ReasonNotOption},
		{"five products", NumOfProducts, "5", ReasonNotOption},
		{"flag not 0/1", HasCreditCard, "yes", ReasonNotOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := completeDraft()
			d[tt.field] = tt.value

			_, err := Validate(d)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, []FieldName{tt.field}, verr.Fields())
			reason, ok := verr.Reason(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestValidate_LargeTenureKeepsItsValue(t *testing.T) {
	d := completeDraft()
	d[Tenure] = "2147483647"

	rec, err := Validate(d)
	require.NoError(t, err)
	assert.Equal(t, 2147483647, rec.Tenure)
	assert.Equal(t, "2147483647", rec.Values()["tenure"])
}

func TestValidate_BoundariesAccepted(t *testing.T) {
	d := completeDraft()
	d[CreditScore] = "300"
	d[Age] = "0"
	d[Tenure] = "0"
	d[NumOfProducts] = "4"
	d[Balance] = "125000.75"
	_, err := Validate(d)
	require.NoError(t, err)

	d[CreditScore] = "900"
	d[Age] = "200"
	_, err = Validate(d)
	require.NoError(t, err)
}

func TestValidate_ExactProblemSet(t *testing.T) {
	d := completeDraft()
	delete(d, Gender)
	d[Tenure] = "x"
	d[EstimatedSalary] = ""

	_, err := Validate(d)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldName{Gender, Tenure, EstimatedSalary}, verr.Fields())
	assert.Contains(t, verr.Error(), "gender (missing)")
}

func TestRecord_ValuesRoundTripTheForm(t *testing.T) {
	rec, err := Validate(completeDraft())
	require.NoError(t, err)

	vals := rec.Values()
	for name, raw := range completeDraft() {
		assert.Equal(t, raw, vals[string(name)], string(name))
	}

	body, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"creditScore":"650","geography":"France","gender":"Female","age":"34",
		"tenure":"5","balance":"0","numofproducts":"2","hascrcard":"1",
		"isactivemember":"1","estimatedsalary":"50000"}`, string(body))
}

func TestRecord_FlagsSerializeAsZero(t *testing.T) {
	d := completeDraft()
	d[HasCreditCard] = "0"
	d[IsActiveMember] = "0"
	rec, err := Validate(d)
	require.NoError(t, err)

	assert.False(t, rec.HasCreditCard)
	assert.Equal(t, "0", rec.Values()[string(IsActiveMember)])
}

func TestDraft_CloneIsIndependent(t *testing.T) {
	d := completeDraft()
	c := d.Clone()
	c[Age] = "99"
	assert.Equal(t, "34", d[Age])
}
