package service

import (
	"fmt"
	"math"

	"github.com/jengzang/simplegis/internal/database"
	"github.com/jengzang/simplegis/internal/models"
	"github.com/jengzang/simplegis/internal/spatial"
)

// AggregateOptions controls how rows turn into elements
type AggregateOptions struct {
	Type    models.ElementType
	GroupBy string
	Color   models.Value // injected when a row has no color column
	Frame   spatial.Frame
	MaxRows int
}

// Aggregation is the outcome of one scan
type Aggregation struct {
	Elements []models.Element
	Notice   string // set when the row cap stopped the scan
	Rows     int    // rows consumed from the cursor
}

// TruncationNotice is the advisory returned when MaxRows is hit
func TruncationNotice(maxRows int) string {
	return fmt.Sprintf("only showing the first %d rows", maxRows)
}

// Aggregate consumes cur row by row and builds the elements for opts.Type.
// The cursor is closed before returning, whatever the outcome.
func Aggregate(cur database.Cursor, opts AggregateOptions) (res Aggregation, err error) {
	defer func() {
		if cerr := cur.Close(); cerr != nil && err == nil {
			err = &database.SourceError{Err: cerr}
			res = Aggregation{}
		}
	}()

	acc := newAccumulator(opts)
	heatmap := opts.Type == models.ElementHeatmap

	for i := 0; cur.Next(); i++ {
		row := cur.Row()
		res.Rows++

		pos, err := extractPosition(&row, opts.Frame)
		if err != nil {
			return Aggregation{}, err
		}
		row.Set("type", models.Text(string(opts.Type)))
		if !row.Has("color") {
			row.Set("color", opts.Color)
		}
		if err := acc.add(row, pos); err != nil {
			return Aggregation{}, err
		}

		if !heatmap && i > opts.MaxRows {
			res.Notice = TruncationNotice(opts.MaxRows)
			break
		}
	}
	if err := cur.Err(); err != nil {
		return Aggregation{}, err
	}

	res.Elements = acc.elements()
	return res, nil
}

// accumulator is one aggregation policy
type accumulator interface {
	add(row models.Row, pos models.Position) error
	elements() []models.Element
}

func newAccumulator(opts AggregateOptions) accumulator {
	switch {
	case opts.Type.IsMarker():
		return &markerAccumulator{}
	case opts.Type == models.ElementHeatmap:
		return &heatmapAccumulator{color: opts.Color, max: 1}
	}
	return &groupAccumulator{groupBy: opts.GroupBy, index: make(map[models.Value]int)}
}

// markerAccumulator emits one element per row in scan order
type markerAccumulator struct {
	out []models.Element
}

func (m *markerAccumulator) add(row models.Row, pos models.Position) error {
	p := pos
	m.out = append(m.out, models.Element{Attrs: row, Pos: &p})
	return nil
}

func (m *markerAccumulator) elements() []models.Element { return m.out }

// groupAccumulator buckets rows by group key. The attribute record of a
// group is replaced by each new row; positions are appended.
type groupAccumulator struct {
	groupBy string
	index   map[models.Value]int
	groups  []models.Element
}

func (g *groupAccumulator) add(row models.Row, pos models.Position) error {
	key := models.Int(0)
	if g.groupBy != "" {
		if v, ok := row.Get(g.groupBy); ok {
			key = groupKey(v)
		}
	}

	i, ok := g.index[key]
	if !ok {
		i = len(g.groups)
		g.index[key] = i
		g.groups = append(g.groups, models.Element{})
	}
	g.groups[i].Attrs = row
	g.groups[i].Points = append(g.groups[i].Points, pos)
	return nil
}

func (g *groupAccumulator) elements() []models.Element { return g.groups }

// groupKey folds whole floats onto integers so 1 and 1.0 share a group
func groupKey(v models.Value) models.Value {
	if v.Kind() != models.KindFloat {
		return v
	}
	f, _ := v.Float64()
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return models.Int(int64(f))
	}
	return v
}

// heatmapAccumulator folds every row into a single element
type heatmapAccumulator struct {
	color models.Value
	attrs models.Row
	seen  bool
	heat  []models.HeatPoint
	max   float64
}

func (h *heatmapAccumulator) add(row models.Row, pos models.Position) error {
	z := 1.0
	if v, ok := row.Delete("z"); ok && !v.IsNull() {
		f, ok := v.Float64()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: z = %s", ErrInvalidIntensity, v)
		}
		z = f
	}
	if z > h.max {
		h.max = z
	}
	if !h.seen {
		h.attrs = row
		h.seen = true
	}
	h.heat = append(h.heat, models.HeatPoint{Position: pos, Intensity: z})
	return nil
}

func (h *heatmapAccumulator) elements() []models.Element {
	attrs := h.attrs
	if !h.seen {
		attrs = models.NewRow(
			[]string{"type", "color"},
			[]models.Value{models.Text(string(models.ElementHeatmap)), h.color},
		)
	}
	return []models.Element{{Attrs: attrs, Heat: h.heat, Max: h.resolvedMax()}}
}

// resolvedMax prefers a non-zero maxz attribute over the running maximum
func (h *heatmapAccumulator) resolvedMax() float64 {
	if v, ok := h.attrs.Get("maxz"); ok {
		if f, ok := v.Float64(); ok && f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	if h.max != 0 {
		return h.max
	}
	return 1
}

// extractPosition removes the geometry columns of frame from row and
// returns the normalized WGS84 position
func extractPosition(row *models.Row, frame spatial.Frame) (models.Position, error) {
	cols := frame.Columns()

	if frame == spatial.FrameCoords {
		v, ok := row.Delete(cols[0])
		if !ok {
			return models.Position{}, missingColumn(cols[0])
		}
		p, ok := v.Point()
		if !ok {
			return models.Position{}, fmt.Errorf("%w: %s is %s, not a point", ErrInvalidCoordinate, cols[0], v.Kind())
		}
		return finite(p)
	}

	var raw [2]float64
	var vals [2]models.Value
	for i, c := range cols {
		v, ok := row.Delete(c)
		if !ok {
			return models.Position{}, missingColumn(c)
		}
		vals[i] = v
	}
	for i, v := range vals {
		f, ok := v.Float64()
		if !ok {
			return models.Position{}, fmt.Errorf("%w: %s = %s", ErrInvalidCoordinate, cols[i], v)
		}
		raw[i] = f
	}

	lat, lon := spatial.Normalize(frame, raw[0], raw[1])
	return finite(models.Position{Lat: lat, Lon: lon})
}

func finite(p models.Position) (models.Position, error) {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return models.Position{}, fmt.Errorf("%w: (%g, %g)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	return p, nil
}

func missingColumn(col string) error {
	return &database.SourceError{Err: fmt.Errorf("missing geometry column %q", col)}
}
