package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"sfneuman.com/goril/mdp"
)

// Result records one method's performance on one demonstration set.
type Result struct {
	Method   string  `json:"method"`
	Episodes int     `json:"episodes"`
	Return   float64 `json:"return"`
	Radius   float64 `json:"radius"`
}

// Normalized rescales a return into [0, 1] between the model's
// worst-case and optimal returns.
func Normalized(m *mdp.Model, ret float64) float64 {
	spread := m.OptimalReturn() - m.WorstReturn()
	if spread == 0 {
		return 1
	}
	return (ret - m.WorstReturn()) / spread
}

// Save writes results to path as JSON.
func Save(results []Result, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("experiment: encoding results: %v", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Plot writes a chart of mean normalized return against episode count,
// one line per method, to path. The image format follows the path
// extension.
func Plot(m *mdp.Model, results []Result, path string) error {
	byMethod := make(map[string]map[int][]float64)
	var methods []string
	for _, result := range results {
		if _, ok := byMethod[result.Method]; !ok {
			byMethod[result.Method] = make(map[int][]float64)
			methods = append(methods, result.Method)
		}
		byMethod[result.Method][result.Episodes] = append(
			byMethod[result.Method][result.Episodes],
			Normalized(m, result.Return))
	}
	sort.Strings(methods)

	p := plot.New()
	p.Title.Text = "Imitation performance"
	p.X.Label.Text = "Expert episodes"
	p.Y.Label.Text = "Normalized return"

	var lines []interface{}
	for _, method := range methods {
		episodes := make([]int, 0, len(byMethod[method]))
		for count := range byMethod[method] {
			episodes = append(episodes, count)
		}
		sort.Ints(episodes)

		points := make(plotter.XYs, len(episodes))
		for i, count := range episodes {
			returns := byMethod[method][count]
			mean := 0.0
			for _, r := range returns {
				mean += r
			}
			mean /= float64(len(returns))
			points[i] = plotter.XY{X: float64(count), Y: mean}
		}
		lines = append(lines, method, points)
	}

	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("experiment: plotting results: %v", err)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
