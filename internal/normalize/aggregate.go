package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
)

// metricOrder is the display order of the known metric names; other
// metrics follow alphabetically.
var metricOrder = map[string]int{
	"precision": 0,
	"recall":    1,
	"f1_macro":  2,
	"accuracy":  3,
}

type modelTable struct {
	model string
	table *Table
}

// aggregate flattens the /run-ml bundle into one entry per model and
// artifact, labelled "<model> — <artifact>".
func aggregate(fields map[string]json.RawMessage) ([]Entry, error) {
	metrics, ok := fields["model_metrics"]
	if !ok {
		return nil, fmt.Errorf("missing model_metrics")
	}
	matrices, ok := fields["confusion_matrices"]
	if !ok {
		return nil, fmt.Errorf("missing confusion_matrices")
	}

	var entries []Entry
	es, err := metricEntries("model_metrics", "Metrics", metrics)
	if err != nil {
		return nil, err
	}
	entries = append(entries, es...)

	if svm, ok := fields["svm_metrics"]; ok {
		es, err := metricEntries("svm_metrics", "SMOTE Metrics", svm)
		if err != nil {
			return nil, err
		}
		entries = append(entries, es...)
	}

	es, err = matrixEntries(matrices)
	if err != nil {
		return nil, err
	}
	return append(entries, es...), nil
}

func compositeLabel(model, artifact string) string {
	return model + " — " + artifact
}

func metricEntries(key, label string, raw json.RawMessage) ([]Entry, error) {
	tables, err := modelTables(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	entries := make([]Entry, 0, len(tables))
	for _, mt := range tables {
		entries = append(entries, Entry{
			Key:   key + "/" + mt.model,
			Label: compositeLabel(mt.model, label),
			Kind:  KindTable,
			Table: mt.table,
		})
	}
	return entries, nil
}

// modelTables reads a metric table keyed model → metric → value. A table
// keyed metric → model → value (every top-level key a known metric) is
// transposed first. Models keep their first-appearance order.
func modelTables(raw json.RawMessage) ([]modelTable, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return nil, err
	}
	if metricMajor(members) {
		return transpose(members)
	}

	out := make([]modelTable, 0, len(members))
	for _, m := range members {
		t, err := parseFlatTable(m.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Key, err)
		}
		sortMetrics(t)
		out = append(out, modelTable{model: m.Key, table: t})
	}
	return out, nil
}

func metricMajor(members []member) bool {
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if _, known := metricOrder[m.Key]; !known {
			return false
		}
	}
	return true
}

func transpose(members []member) ([]modelTable, error) {
	var out []modelTable
	index := make(map[string]int)
	for _, m := range members {
		byModel, err := parseFlatTable(m.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Key, err)
		}
		for _, r := range byModel.Rows {
			i, ok := index[r.Name]
			if !ok {
				i = len(out)
				index[r.Name] = i
				out = append(out, modelTable{model: r.Name, table: &Table{}})
			}
			out[i].table.Rows = append(out[i].table.Rows, Row{Name: m.Key, Value: r.Value})
		}
	}
	for _, mt := range out {
		sortMetrics(mt.table)
	}
	return out, nil
}

func sortMetrics(t *Table) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		ri, iKnown := metricOrder[t.Rows[i].Name]
		rj, jKnown := metricOrder[t.Rows[j].Name]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		}
		return t.Rows[i].Name < t.Rows[j].Name
	})
}

var matrixVariants = []struct {
	key   string
	label string
}{
	{key: "normal", label: "Confusion Matrix"},
	{key: "normalized", label: "Normalized Confusion Matrix"},
}

// matrixEntries emits the normal then normalized confusion matrix of every
// model, in payload order.
func matrixEntries(raw json.RawMessage) ([]Entry, error) {
	models, err := objectMembers(raw)
	if err != nil {
		return nil, fmt.Errorf("confusion_matrices: %w", err)
	}

	var entries []Entry
	for _, m := range models {
		pair, err := objectMembers(m.Value)
		if err != nil {
			return nil, fmt.Errorf("confusion_matrices/%s: %w", m.Key, err)
		}
		images := make(map[string]json.RawMessage, len(pair))
		for _, p := range pair {
			images[p.Key] = p.Value
		}

		found := 0
		for _, v := range matrixVariants {
			raw, ok := images[v.key]
			if !ok {
				continue
			}
			img, err := decodeImage(raw)
			if err != nil {
				return nil, fmt.Errorf("confusion_matrices/%s/%s: %w", m.Key, v.key, err)
			}
			found++
			entries = append(entries, Entry{
				Key:   "confusion_matrices/" + m.Key + "/" + v.key,
				Label: compositeLabel(m.Key, v.label),
				Kind:  KindImage,
				Image: img,
			})
		}
		if found == 0 {
			return nil, fmt.Errorf("confusion_matrices/%s: no normal or normalized image", m.Key)
		}
	}
	return entries, nil
}
