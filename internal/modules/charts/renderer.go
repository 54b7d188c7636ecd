// Package charts renders PNG price and comparison charts.
package charts

import (
	"errors"
	"strings"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/aristath/fincalc/internal/domain"
)

// ErrNotEnoughData is returned when a series is too short to draw.
var ErrNotEnoughData = errors.New("not enough data points to render")

// PriceChart renders the close series of one instrument as a line chart.
func PriceChart(title string, points []domain.PricePoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, ErrNotEnoughData
	}

	labels := make([]string, len(points))
	closes := make([]float64, len(points))
	yMin, yMax := points[0].Close, points[0].Close
	for i, p := range points {
		labels[i] = p.TradeDate.Format("2006-01-02")
		closes[i] = p.Close
		if p.Close < yMin {
			yMin = p.Close
		}
		if p.Close > yMax {
			yMax = p.Close
		}
	}
	yMin, yMax = padRange(yMin, yMax)

	painter, err := charts.LineRender([][]float64{closes},
		charts.TitleTextOptionFunc(strings.ToUpper(title)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 10,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// StrategyChart renders several cumulative portfolio value series on one
// axis with a legend. The series share one contribution schedule, so the
// raw currency values are directly comparable.
func StrategyChart(title string, labels []string, names []string, series [][]float64) ([]byte, error) {
	if len(series) == 0 || len(names) != len(series) {
		return nil, errors.New("series and names must be non-empty and equal length")
	}
	for _, s := range series {
		if len(s) != len(labels) || len(s) < 2 {
			return nil, ErrNotEnoughData
		}
	}

	var yMin, yMax float64
	first := true
	for _, s := range series {
		for _, v := range s {
			if first {
				yMin, yMax = v, v
				first = false
				continue
			}
			if v < yMin {
				yMin = v
			}
			if v > yMax {
				yMax = v
			}
		}
	}
	yMin, yMax = padRange(yMin, yMax)

	seriesList := charts.NewSeriesListDataFromValues(series, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, strings.Join(names, ", ")),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 10,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

func padRange(min, max float64) (float64, float64) {
	pad := (max - min) * 0.05
	if pad < max*0.002 {
		pad = max * 0.002
	}
	min -= pad
	if min < 0 {
		min = 0
	}
	return min, max + pad
}
