package churnapi

import "fmt"

// Endpoint identifies one evaluation endpoint of the backend.
type Endpoint string

const (
	EDA                Endpoint = "eda"
	MLAggregate        Endpoint = "ml-aggregate"
	DecisionTree       Endpoint = "decision-tree"
	RandomForest       Endpoint = "random-forest"
	LogisticRegression Endpoint = "logistic-regression"
	XGBoost            Endpoint = "xgboost"
	SVM                Endpoint = "svm"
)

// Kind groups endpoints that share a payload shape.
type Kind string

const (
	KindEDA       Kind = "eda"
	KindAggregate Kind = "aggregate"
	KindModel     Kind = "model"
)

type endpointInfo struct {
	path  string
	title string
	kind  Kind
}

var endpoints = map[Endpoint]endpointInfo{
	EDA:                {path: "/run-eda", title: "EDA Results", kind: KindEDA},
	MLAggregate:        {path: "/run-ml", title: "ML Model Results", kind: KindAggregate},
	DecisionTree:       {path: "/run-dt", title: "Decision Tree Results", kind: KindModel},
	RandomForest:       {path: "/run-rf", title: "Random Forest Results", kind: KindModel},
	LogisticRegression: {path: "/run-lr", title: "Logistic Regression Results", kind: KindModel},
	XGBoost:            {path: "/run-xg", title: "XGBoost Results", kind: KindModel},
	SVM:                {path: "/run-svm", title: "SVM Results", kind: KindModel},
}

// Endpoints lists every endpoint in navigation order.
func Endpoints() []Endpoint {
	return []Endpoint{EDA, MLAggregate, DecisionTree, RandomForest, LogisticRegression, XGBoost, SVM}
}

// ParseEndpoint validates an endpoint id.
func ParseEndpoint(s string) (Endpoint, error) {
	e := Endpoint(s)
	if _, ok := endpoints[e]; !ok {
		return "", fmt.Errorf("unknown endpoint %q", s)
	}
	return e, nil
}

// Path is the backend path bound to the endpoint.
func (e Endpoint) Path() string { return endpoints[e].path }

// Title is the panel heading for the endpoint.
func (e Endpoint) Title() string { return endpoints[e].title }

// Kind is the payload family of the endpoint.
func (e Endpoint) Kind() Kind { return endpoints[e].kind }
