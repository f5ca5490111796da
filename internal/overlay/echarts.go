package overlay

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// EChartsBackend renders the overlay to a self-contained HTML chart, with
// longitude on X and latitude on Y. It accumulates draw/remove calls and
// materializes the chart on WriteHTML.
type EChartsBackend struct {
	path      string
	title     string
	next      Handle
	markers   map[Handle]Marker
	polylines map[Handle][][2]float64
}

func NewEChartsBackend(path, title string) *EChartsBackend {
	return &EChartsBackend{
		path:      path,
		title:     title,
		markers:   make(map[Handle]Marker),
		polylines: make(map[Handle][][2]float64),
	}
}

func (b *EChartsBackend) DrawMarker(m Marker) Handle {
	b.next++
	b.markers[b.next] = m
	return b.next
}

func (b *EChartsBackend) DrawPolyline(coords [][2]float64) Handle {
	b.next++
	b.polylines[b.next] = coords
	return b.next
}

func (b *EChartsBackend) Remove(h Handle) {
	delete(b.markers, h)
	delete(b.polylines, h)
}

// WriteHTML renders the current overlay state to the output file.
func (b *EChartsBackend) WriteHTML() error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: b.title, Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: b.title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Longitude", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Latitude", Scale: opts.Bool(true)}),
	)

	for _, h := range sortedHandles(b.polylines) {
		coords := b.polylines[h]
		data := make([]opts.LineData, 0, len(coords))
		for _, c := range coords {
			data = append(data, opts.LineData{Value: []interface{}{c[1], c[0]}})
		}
		line.AddSeries("trajectory path", data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}

	scatter := charts.NewScatter()
	byKind := map[MarkerKind][]opts.ScatterData{}
	for _, h := range sortedHandles(b.markers) {
		m := b.markers[h]
		byKind[m.Kind] = append(byKind[m.Kind], opts.ScatterData{
			Name:  m.Label,
			Value: []interface{}{m.Longitude, m.Latitude},
		})
	}
	for _, kind := range []MarkerKind{KindPoint, KindGroundTruth, KindPredicted} {
		data, ok := byKind[kind]
		if !ok {
			continue
		}
		size := 10
		if kind != KindPoint {
			size = 16
		}
		scatter.AddSeries(kind.String(), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: size}),
		)
	}
	line.Overlap(scatter)

	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("creating overlay output: %w", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return fmt.Errorf("rendering overlay chart: %w", err)
	}
	return nil
}

func sortedHandles[V any](m map[Handle]V) []Handle {
	handles := make([]Handle, 0, len(m))
	for h := range m {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}
