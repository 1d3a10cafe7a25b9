// Package planner decides where a grid query is evaluated: pushed to the
// store, or loaded whole and evaluated in process with the same filter and
// sort functions.
package planner

import (
	"fmt"

	"github.com/zakazai/ulin-grid/internal/types"
)

// Strategy names an evaluation path.
type Strategy int

const (
	// Plain pages through rows in ascending order with no operations.
	Plain Strategy = iota
	// Remote asks the store to filter, sort and search.
	Remote
	// Local loads every row and evaluates in process.
	Local
)

func (s Strategy) String() string {
	switch s {
	case Plain:
		return "plain"
	case Remote:
		return "remote"
	case Local:
		return "local"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// DefaultLocalThreshold is the largest table evaluated in process when the
// store can also evaluate remotely.
const DefaultLocalThreshold = 5000

// Capabilities describes the backend a plan runs against.
type Capabilities struct {
	// Operations is true when the store implements GetRowsWithOperations.
	Operations bool
	// RowCount is the table size, or -1 when unknown.
	RowCount int
}

// Plan is the chosen strategy with a short reason for logs.
type Plan struct {
	Strategy Strategy
	Query    types.Query
	Reason   string
}

type Planner struct {
	localThreshold int
}

// NewPlanner creates a planner. A threshold of 0 never picks Local when
// remote evaluation is available; a negative one uses the default.
func NewPlanner(localThreshold int) *Planner {
	if localThreshold < 0 {
		localThreshold = DefaultLocalThreshold
	}
	return &Planner{localThreshold: localThreshold}
}

// IsOperational reports whether q changes the remote result set, i.e. it
// has an effective filter, a sort key or a search term.
func IsOperational(q types.Query, cols types.Columns) bool {
	if q.Search != "" {
		return true
	}
	for _, k := range q.Sort {
		if _, ok := cols.Lookup(k.ColumnID); ok {
			return true
		}
	}
	for _, f := range q.Filters {
		if f.Type != "" && f.Value != "" {
			if _, ok := cols.Lookup(f.ColumnID); ok {
				return true
			}
		}
	}
	return false
}

// CreatePlan picks a strategy for q.
func (p *Planner) CreatePlan(q types.Query, cols types.Columns, caps Capabilities) Plan {
	plan := Plan{Query: q}
	switch {
	case !caps.Operations:
		plan.Strategy = Local
		plan.Reason = "store cannot evaluate operations"
	case caps.RowCount >= 0 && caps.RowCount <= p.localThreshold && p.localThreshold > 0:
		plan.Strategy = Local
		plan.Reason = fmt.Sprintf("%d rows within local threshold %d", caps.RowCount, p.localThreshold)
	case !IsOperational(q, cols):
		plan.Strategy = Plain
		plan.Reason = "no effective filter, sort or search"
	default:
		plan.Strategy = Remote
		plan.Reason = q.String()
	}
	return plan
}
