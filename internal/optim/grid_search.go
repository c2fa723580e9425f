// Package optim searches parameter grids for the point minimizing an
// objective.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrNoFeasible = errors.New("optim: objective failed at every grid point")

// Objective scores one parameter assignment. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameter names, %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %q", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Result is the best point found and the number of evaluations.
type Result struct {
	Params      map[string]float64
	Value       float64
	Evaluations int
	Failures    int
}

// Search evaluates objective at every grid point. Points where objective
// fails or returns NaN are skipped.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (Result, error) {
	res := Result{Value: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, &res); err != nil {
		return res, err
	}
	if res.Params == nil {
		return res, fmt.Errorf("%w (%d points)", ErrNoFeasible, res.Failures)
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	res *Result,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Evaluations++
		val, err := objective(ctx, current)
		if err != nil || math.IsNaN(val) {
			res.Failures++
			return nil
		}
		if val < res.Value {
			res.Value = val
			res.Params = make(map[string]float64, len(current))
			for k, v := range current {
				res.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, res); err != nil {
			return err
		}
	}
	return nil
}

// Around returns steps values spread evenly over center*(1±span).
func Around(center, span float64, steps int) []float64 {
	if steps <= 1 {
		return []float64{center}
	}
	lo := center * (1 - span)
	hi := center * (1 + span)
	out := make([]float64, steps)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(steps-1)
	}
	return out
}
