package customer

// FieldName is the wire name of a customer field. Names are the form's
// native input names and are sent to the backend verbatim.
type FieldName string

const (
	CreditScore     FieldName = "creditScore"
	Geography       FieldName = "geography"
	Gender          FieldName = "gender"
	Age             FieldName = "age"
	Tenure          FieldName = "tenure"
	Balance         FieldName = "balance"
	NumOfProducts   FieldName = "numofproducts"
	HasCreditCard   FieldName = "hascrcard"
	IsActiveMember  FieldName = "isactivemember"
	EstimatedSalary FieldName = "estimatedsalary"
)

// InputKind selects the widget used for a field.
type InputKind string

const (
	NumberInput InputKind = "number"
	SelectInput InputKind = "select"
)

// Option is one selectable value of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one field of the customer form and its domain.
type Field struct {
	Name    FieldName
	Label   string
	Input   InputKind
	Options []Option
	Integer bool
	Min     *float64
	Max     *float64
}

func bound(v float64) *float64 { return &v }

var yesNo = []Option{{Value: "1", Label: "Yes"}, {Value: "0", Label: "No"}}

// Schema lists the customer fields in form order.
var Schema = []Field{
	{Name: CreditScore, Label: "Credit Score", Input: NumberInput, Integer: true, Min: bound(300), Max: bound(900)},
	{Name: Geography, Label: "Geography", Input: SelectInput, Options: []Option{
		{Value: "France", Label: "France"},
		{Value: "Germany", Label: "Germany"},
		{Value: "Spain", Label: "Spain"},
	}},
	{Name: Gender, Label: "Gender", Input: SelectInput, Options: []Option{
		{Value: "Male", Label: "Male"},
		{Value: "Female", Label: "Female"},
	}},
	{Name: Age, Label: "Age", Input: NumberInput, Integer: true, Min: bound(0), Max: bound(200)},
	{Name: Tenure, Label: "Tenure", Input: NumberInput, Integer: true, Min: bound(0)},
	{Name: Balance, Label: "Balance", Input: NumberInput, Min: bound(0)},
	{Name: NumOfProducts, Label: "Number of Products", Input: SelectInput, Options: []Option{
		{Value: "1", Label: "1"},
		{Value: "2", Label: "2"},
		{Value: "3", Label: "3"},
		{Value: "4", Label: "4"},
	}},
	{Name: HasCreditCard, Label: "Has Credit Card", Input: SelectInput, Options: yesNo},
	{Name: IsActiveMember, Label: "Is Active Member", Input: SelectInput, Options: yesNo},
	{Name: EstimatedSalary, Label: "Estimated Salary", Input: NumberInput, Min: bound(0)},
}

// Lookup returns the schema entry for name.
func Lookup(name FieldName) (Field, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Allows reports whether value is one of the field's options.
func (f Field) Allows(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
