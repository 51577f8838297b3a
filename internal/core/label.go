package core

import (
	"sort"
	"time"
)

// LabeledCustomer is one piece of human feedback: the observed churn outcome
// for a customer together with the features the prediction was made from.
type LabeledCustomer struct {
	CustomerID string
	Features   map[string]float64
	// Target is true when the customer churned.
	Target    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dataset is the training set handed to a Trainer.
type Dataset struct {
	Records []LabeledCustomer
}

// Len returns the number of labeled records in the dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Churned returns the number of records labeled as churned.
func (d *Dataset) Churned() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, r := range d.Records {
		if r.Target {
			n++
		}
	}
	return n
}

// Columns returns the sorted union of feature names across all records.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range d.Records {
		for k := range r.Features {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// LabelStats summarizes the labels held by a label store.
type LabelStats struct {
	Total      int
	Churned    int
	NotChurned int
	Oldest     *time.Time
	Newest     *time.Time
}
