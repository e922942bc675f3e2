package charts

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/studiowebux/loadreport/internal/config"
	"github.com/studiowebux/loadreport/internal/types"
)

// Chart file names
const (
	SuccessFailureFile = "grafico_sucesso_falhas.png"
	FailureRateFile    = "grafico_taxa_falhas.png"
	ResponseTimesFile  = "grafico_tempos_resposta.png"
	ThroughputFile     = "grafico_throughput.png"
	ThroughputMeanFile = "grafico_throughput2.png"
	PercentilesFile    = "grafico_percentis_latencia.png"
)

// DPI of every exported chart
const DPI = 300

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
	barWidth    = vg.Points(18)
)

var (
	colorSuccess = color.RGBA{R: 46, G: 139, B: 87, A: 255}
	colorFailure = color.RGBA{R: 205, G: 55, B: 55, A: 255}
	palette      = []color.Color{
		color.RGBA{R: 70, G: 130, B: 180, A: 255},
		color.RGBA{R: 255, G: 140, B: 0, A: 255},
		color.RGBA{R: 60, G: 179, B: 113, A: 255},
		color.RGBA{R: 147, G: 112, B: 219, A: 255},
	}
)

// chart builds one plot from the aggregates
type chart struct {
	file  string
	build func([]types.ScenarioAggregate) (*plot.Plot, error)
}

var all = []chart{
	{SuccessFailureFile, successFailure},
	{FailureRateFile, failureRate},
	{ResponseTimesFile, responseTimes},
	{ThroughputFile, throughputErrorBars},
	{ThroughputMeanFile, throughputMean},
	{PercentilesFile, percentiles},
}

// Files returns the chart file names in render order
func Files() []string {
	files := make([]string, len(all))
	for i, c := range all {
		files[i] = c.file
	}
	return files
}

// Renderer writes the report charts as PNG files
type Renderer struct {
	logger *zap.Logger
}

// NewRenderer creates a chart renderer
func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{logger: logger.With(zap.String("mod", "charts"))}
}

// Render writes every chart into dir and returns the written paths.
// Aggregates are plotted in the order given.
func (r *Renderer) Render(dir string, aggs []types.ScenarioAggregate) ([]string, error) {
	if len(aggs) == 0 {
		return nil, fmt.Errorf("no scenarios to plot")
	}
	if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create chart directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(all))
	for _, c := range all {
		p, err := c.build(aggs)
		if err != nil {
			return paths, fmt.Errorf("failed to build %s: %w", c.file, err)
		}

		path := filepath.Join(dir, c.file)
		if err := save(p, path); err != nil {
			return paths, err
		}
		r.logger.Debug("chart written", zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

// save draws the plot on a 300 DPI canvas and writes it as PNG
func save(p *plot.Plot, path string) error {
	c := vgimg.NewWith(vgimg.UseWH(chartWidth, chartHeight), vgimg.UseDPI(DPI))
	p.Draw(draw.New(c))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.FilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func newPlot(title, ylabel string, aggs []types.ScenarioAggregate) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Cenário"
	p.Y.Label.Text = ylabel
	p.Y.Min = 0
	p.Legend.Top = true
	p.NominalX(labels(aggs)...)
	return p
}

func labels(aggs []types.ScenarioAggregate) []string {
	names := make([]string, len(aggs))
	for i, a := range aggs {
		names[i] = a.Scenario
	}
	return names
}

// finite replaces NaN and infinities with zero so bars and error bars can be drawn
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func values(aggs []types.ScenarioAggregate, pick func(types.ScenarioAggregate) float64) plotter.Values {
	vs := make(plotter.Values, len(aggs))
	for i, a := range aggs {
		vs[i] = finite(pick(a))
	}
	return vs
}

func newBars(vs plotter.Values, c color.Color) (*plotter.BarChart, error) {
	bars, err := plotter.NewBarChart(vs, barWidth)
	if err != nil {
		return nil, err
	}
	bars.Color = c
	bars.LineStyle.Width = vg.Length(0)
	return bars, nil
}

// groupedBars adds one bar series per picker, offset side by side
func groupedBars(p *plot.Plot, aggs []types.ScenarioAggregate, names []string, pickers []func(types.ScenarioAggregate) float64) error {
	n := len(pickers)
	for i, pick := range pickers {
		bars, err := newBars(values(aggs, pick), palette[i%len(palette)])
		if err != nil {
			return err
		}
		bars.Offset = barWidth * vg.Length(2*i-n+1) / 2
		p.Add(bars)
		p.Legend.Add(names[i], bars)
	}
	return nil
}

// valueLabels annotates each bar with its value
func valueLabels(vs plotter.Values, format string) (*plotter.Labels, error) {
	xys := make(plotter.XYs, len(vs))
	texts := make([]string, len(vs))
	for i, v := range vs {
		xys[i] = plotter.XY{X: float64(i), Y: v}
		texts[i] = fmt.Sprintf(format, v)
	}

	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	for i := range lbls.TextStyle {
		lbls.TextStyle[i].XAlign = draw.XCenter
		lbls.TextStyle[i].YAlign = draw.YBottom
	}
	return lbls, nil
}

func successFailure(aggs []types.ScenarioAggregate) (*plot.Plot, error) {
	p := newPlot("Requisições com sucesso e falha", "Requisições", aggs)

	success, err := newBars(values(aggs, func(a types.ScenarioAggregate) float64 {
		return float64(a.SuccessCount())
	}), colorSuccess)
	if err != nil {
		return nil, err
	}
	failures, err := newBars(values(aggs, func(a types.ScenarioAggregate) float64 {
		return float64(a.TotalFailures)
	}), colorFailure)
	if err != nil {
		return nil, err
	}
	failures.StackOn(success)

	p.Add(success, failures)
	p.Legend.Add("Sucesso", success)
	p.Legend.Add("Falha", failures)
	return p, nil
}

func failureRate(aggs []types.ScenarioAggregate) (*plot.Plot, error) {
	p := newPlot("Taxa de falhas por cenário", "Taxa de falhas (%)", aggs)

	vs := values(aggs, func(a types.ScenarioAggregate) float64 { return a.FailureRate })
	bars, err := newBars(vs, colorFailure)
	if err != nil {
		return nil, err
	}
	lbls, err := valueLabels(vs, "%.2f%%")
	if err != nil {
		return nil, err
	}

	p.Add(bars, lbls)
	return p, nil
}

func responseTimes(aggs []types.ScenarioAggregate) (*plot.Plot, error) {
	p := newPlot("Tempos de resposta", "Tempo (ms)", aggs)

	err := groupedBars(p, aggs, []string{"Mínimo", "Médio", "Máximo"}, []func(types.ScenarioAggregate) float64{
		func(a types.ScenarioAggregate) float64 { return a.MinResponseTime },
		func(a types.ScenarioAggregate) float64 { return a.AvgResponseTime.Mean },
		func(a types.ScenarioAggregate) float64 { return a.MaxResponseTime },
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// meanStdErrors plots symmetric error bars of one standard deviation
type meanStdErrors struct {
	plotter.XYs
	plotter.YErrors
}

func throughputErrorBars(aggs []types.ScenarioAggregate) (*plot.Plot, error) {
	p := newPlot("Throughput médio (± desvio padrão)", "Requisições/s", aggs)

	vs := values(aggs, func(a types.ScenarioAggregate) float64 { return a.RequestsPerSecond.Mean })
	bars, err := newBars(vs, palette[0])
	if err != nil {
		return nil, err
	}

	errs := meanStdErrors{
		XYs:     make(plotter.XYs, len(aggs)),
		YErrors: make(plotter.YErrors, len(aggs)),
	}
	for i, a := range aggs {
		std := finite(a.RequestsPerSecond.Std)
		errs.XYs[i] = plotter.XY{X: float64(i), Y: vs[i]}
		errs.YErrors[i] = struct{ Low, High float64 }{std, std}
	}
	errBars, err := plotter.NewYErrorBars(errs)
	if err != nil {
		return nil, err
	}

	p.Add(bars, errBars)
	return p, nil
}

func throughputMean(aggs []types.ScenarioAggregate) (*plot.Plot, error) {
	p := newPlot("Throughput médio", "Requisições/s", aggs)

	vs := values(aggs, func(a types.ScenarioAggregate) float64 { return a.RequestsPerSecond.Mean })
	bars, err := newBars(vs, palette[0])
	if err != nil {
		return nil, err
	}
	lbls, err := valueLabels(vs, "%.1f")
	if err != nil {
		return nil, err
	}

	p.Add(bars, lbls)
	return p, nil
}

func percentiles(aggs []types.ScenarioAggregate) (*plot.Plot, error) {
	p := newPlot("Percentis de latência", "Tempo (ms)", aggs)

	err := groupedBars(p, aggs, []string{"P50", "P90", "P95", "P99"}, []func(types.ScenarioAggregate) float64{
		func(a types.ScenarioAggregate) float64 { return a.Percentiles.P50 },
		func(a types.ScenarioAggregate) float64 { return a.Percentiles.P90 },
		func(a types.ScenarioAggregate) float64 { return a.Percentiles.P95 },
		func(a types.ScenarioAggregate) float64 { return a.Percentiles.P99 },
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
