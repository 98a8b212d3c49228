// Package render draws the weather table as a 2x2 grid of time-series charts.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/i474232898/weather-history/internal/common"
	"github.com/i474232898/weather-history/internal/weather"
)

const (
	DefaultTitle   = "Weather Data Overview"
	DefaultCaption = "Source: Open-Meteo historical weather API (archive-api.open-meteo.com)"
)

// panel binds one table column to one chart.
type panel struct {
	column string
	title  string
	yLabel string
	color  color.Color
}

var panels = [2][2]panel{
	{
		{weather.ColTemperature, "Temperature Over Time", "Temperature (°F)", color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}},
		{weather.ColPrecipitation, "Precipitation Over Time", "Precipitation (mm)", color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}},
	},
	{
		{weather.ColRelativeHumidity, "Relative Humidity Over Time", "Relative Humidity (%)", color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}},
		{weather.ColDewPoint, "Dew Point Over Time", "Dew Point (°F)", color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}},
	},
}

// PNG renders the table into a square PNG file.
type PNG struct {
	Title   string
	Caption string
	// Size is the edge length in pixels.
	Size int
	DPI  int
}

// NewPNG returns a renderer producing a 1400x1400 image.
func NewPNG() *PNG {
	return &PNG{
		Title:   DefaultTitle,
		Caption: DefaultCaption,
		Size:    1400,
		DPI:     100,
	}
}

// Render writes the image to path. The file appears only once it is complete.
func (r *PNG) Render(t *weather.Table, path string) error {
	plots, err := r.buildPlots(t)
	if err != nil {
		return err
	}

	edge := vg.Length(r.Size) * vg.Inch / vg.Length(r.DPI)
	img := vgimg.NewWith(vgimg.UseWH(edge, edge), vgimg.UseDPI(r.DPI))
	dc := draw.New(img)

	titleStyle := textStyle(vg.Points(22), text.XCenter)
	captionStyle := textStyle(vg.Points(10), text.XRight)

	pad := vg.Points(12)
	header := titleStyle.Height(r.Title) + captionStyle.Height(r.Caption) + 3*pad

	tiles := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadTop:    header,
		PadBottom: pad,
		PadLeft:   pad,
		PadRight:  pad,
		PadX:      2 * pad,
		PadY:      2 * pad,
	}

	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	top := dc.Max.Y - pad
	dc.FillText(titleStyle, vg.Point{X: dc.Center().X, Y: top}, r.Title)
	captionTop := top - titleStyle.Height(r.Title) - pad
	dc.FillText(captionStyle, vg.Point{X: dc.Max.X - pad, Y: captionTop}, r.Caption)

	return common.WriteAtomic(path, func(f *os.File) error {
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(f)
		return err
	})
}

func (r *PNG) buildPlots(t *weather.Table) ([][]*plot.Plot, error) {
	out := make([][]*plot.Plot, len(panels))
	for i, row := range panels {
		out[i] = make([]*plot.Plot, len(row))
		for j, pn := range row {
			p, err := linePlot(t, pn)
			if err != nil {
				return nil, err
			}
			out[i][j] = p
		}
	}
	return out, nil
}

func linePlot(t *weather.Table, pn panel) (*plot.Plot, error) {
	col, err := t.Column(pn.column)
	if err != nil {
		return nil, err
	}

	xys := make(plotter.XYs, 0, t.Len())
	for i, ts := range t.Time {
		// gaps in the source are NaN; plotter rejects them
		if math.IsNaN(col[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(ts.Unix()), Y: col[i]})
	}

	p := plot.New()
	p.Title.Text = pn.title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = pn.yLabel
	p.Add(plotter.NewGrid())

	if t.Len() > 0 {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01", Time: plot.UnixTimeIn(t.Location)}
	}

	if len(xys) > 0 {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", pn.column, err)
		}
		line.Color = pn.color
		line.Width = vg.Points(0.5)
		p.Add(line)
	}
	return p, nil
}

func textStyle(size vg.Length, align text.XAlignment) text.Style {
	return text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, size),
		XAlign:  align,
		YAlign:  text.YTop,
		Handler: plot.DefaultTextHandler,
	}
}
