// Package normalize maps the raw, endpoint-specific evaluation bundles into
// a uniform DisplayBundle. It is the only place that interprets payload
// shapes; a bundle either normalizes completely or fails with
// churnapi.ErrMalformedResponse.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
)

type artifact struct {
	key      string
	label    string
	required bool
	summary  bool
}

// Canonical order of the per-model evaluation endpoints.
var modelArtifacts = []artifact{
	{key: "accuracy_plot", label: "Accuracy Plot", required: true},
	{key: "classification_report", label: "Classification Report", required: true},
	{key: "confusion_matrix", label: "Confusion Matrix", required: true},
	{key: "feature_importance", label: "Feature Importance"},
	{key: "precision_recall_curve", label: "Precision-Recall Curve"},
	{key: "roc_curve", label: "ROC Curve"},
}

// Canonical order of the EDA endpoint.
var edaArtifacts = []artifact{
	{key: "summary", label: "Summary Statistics", summary: true},
	{key: "churn_risk_by_gender", label: "Churn Risk by Gender", required: true},
	{key: "churn_risk_by_geography", label: "Churn Risk by Geography", required: true},
	{key: "histogram", label: "Histograms"},
	{key: "gender_distribution", label: "Gender Distribution", required: true},
	{key: "geography_distribution", label: "Geography Distribution", required: true},
	{key: "correlation_heatmap", label: "Correlation Heatmap"},
}

// Normalize converts bundle into its display form using the layout of kind.
func Normalize(bundle churnapi.EvaluationBundle, kind churnapi.Kind) (DisplayBundle, error) {
	if bundle.Fields == nil {
		return DisplayBundle{}, churnapi.Malformed("%s: empty bundle", bundle.Endpoint)
	}
	if msg, ok := backendError(bundle.Fields); ok {
		return DisplayBundle{}, churnapi.Malformed("%s: backend reported: %s", bundle.Endpoint, msg)
	}

	var (
		entries []Entry
		err     error
	)
	switch kind {
	case churnapi.KindModel:
		entries, err = fixedOrder(bundle.Fields, modelArtifacts)
	case churnapi.KindEDA:
		entries, err = fixedOrder(bundle.Fields, edaArtifacts)
	case churnapi.KindAggregate:
		entries, err = aggregate(bundle.Fields)
	default:
		return DisplayBundle{}, fmt.Errorf("unknown endpoint kind %q", kind)
	}
	if err != nil {
		return DisplayBundle{}, churnapi.Malformed("%s: %v", bundle.Endpoint, err)
	}
	return DisplayBundle{Entries: entries}, nil
}

func backendError(fields map[string]json.RawMessage) (string, bool) {
	raw, ok := fields["error"]
	if !ok {
		return "", false
	}
	var msg string
	if json.Unmarshal(raw, &msg) != nil {
		msg = string(raw)
	}
	return msg, true
}

func fixedOrder(fields map[string]json.RawMessage, layout []artifact) ([]Entry, error) {
	for _, a := range layout {
		if _, ok := fields[a.key]; a.required && !ok {
			return nil, fmt.Errorf("missing %s", a.key)
		}
	}

	entries := make([]Entry, 0, len(layout))
	for _, a := range layout {
		raw, ok := fields[a.key]
		if !ok {
			continue
		}
		if a.summary {
			t, err := parseSummary(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.key, err)
			}
			entries = append(entries, Entry{Key: a.key, Label: a.label, Kind: KindTable, Table: t})
			continue
		}
		img, err := decodeImage(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.key, err)
		}
		entries = append(entries, Entry{Key: a.key, Label: a.label, Kind: KindImage, Image: img})
	}
	return entries, nil
}

// parseSummary accepts the describe() table either as an embedded JSON
// string or as an object.
func parseSummary(raw json.RawMessage) (*Table, error) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		raw = json.RawMessage(s)
	}
	return parseTable(raw)
}
