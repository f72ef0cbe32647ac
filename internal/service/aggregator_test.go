package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/simplegis/internal/database"
	"github.com/jengzang/simplegis/internal/models"
	"github.com/jengzang/simplegis/internal/spatial"
)

// fakeCursor replays canned rows and records how it was used
type fakeCursor struct {
	rows     []models.Row
	pos      int
	failAt   int // Next fails when pos reaches failAt (0 disables)
	err      error
	closed   int
	closeErr error
}

func (c *fakeCursor) Next() bool {
	if c.closed > 0 || c.pos >= len(c.rows) {
		return false
	}
	if c.failAt > 0 && c.pos+1 == c.failAt {
		c.err = &database.SourceError{Err: errors.New("connection reset")}
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Row() models.Row { return c.rows[c.pos-1] }

func (c *fakeCursor) Err() error { return c.err }

func (c *fakeCursor) Close() error {
	c.closed++
	return c.closeErr
}

func val(v interface{}) models.Value {
	switch t := v.(type) {
	case nil:
		return models.Null()
	case bool:
		return models.Bool(t)
	case int:
		return models.Int(int64(t))
	case float64:
		return models.Float(t)
	case string:
		return models.Text(t)
	case models.Value:
		return t
	}
	panic("unsupported test value")
}

func mkRow(kv ...interface{}) models.Row {
	var r models.Row
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), val(kv[i+1]))
	}
	return r
}

func markerOpts() AggregateOptions {
	return AggregateOptions{Type: models.ElementMarker, Frame: spatial.FrameWGS, MaxRows: 100}
}

func TestAggregate_MarkerOnePerRow(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("id", 1, "lat", 39.9, "lon", 116.4),
		mkRow("id", 2, "lat", 31.2, "lon", 121.5, "color", "blue"),
		mkRow("id", 3, "lat", 22.5, "lon", 114.1),
	}}
	opts := markerOpts()
	opts.Color = models.Text("red")

	res, err := Aggregate(cur, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, cur.closed)
	assert.Empty(t, res.Notice)
	assert.Equal(t, 3, res.Rows)

	want := []models.Element{
		{Attrs: mkRow("id", 1, "type", "marker", "color", "red"), Pos: &models.Position{Lat: 39.9, Lon: 116.4}},
		{Attrs: mkRow("id", 2, "color", "blue", "type", "marker"), Pos: &models.Position{Lat: 31.2, Lon: 121.5}},
		{Attrs: mkRow("id", 3, "type", "marker", "color", "red"), Pos: &models.Position{Lat: 22.5, Lon: 114.1}},
	}
	if diff := cmp.Diff(want, res.Elements); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_PointBehavesLikeMarker(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("lat", 1.0, "lon", 2.0),
		mkRow("lat", 1.0, "lon", 2.0),
	}}
	opts := markerOpts()
	opts.Type = models.ElementPoint

	res, err := Aggregate(cur, opts)
	require.NoError(t, err)
	require.Len(t, res.Elements, 2)
	assert.Equal(t, models.ElementPoint, res.Elements[0].Type())
}

func TestAggregate_WGSPositionsUnchanged(t *testing.T) {
	coords := [][2]float64{{0, 0}, {-45.123456789, 170.987654321}, {89.5, -179.5}}
	var rows []models.Row
	for _, c := range coords {
		rows = append(rows, mkRow("lat", c[0], "lon", c[1]))
	}

	res, err := Aggregate(&fakeCursor{rows: rows}, markerOpts())
	require.NoError(t, err)
	for i, c := range coords {
		assert.Equal(t, c[0], res.Elements[i].Pos.Lat)
		assert.Equal(t, c[1], res.Elements[i].Pos.Lon)
	}
}

func TestAggregate_GroupLastRowWins(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("trip", 7, "name", "first", "speed", 10, "lat", 1.0, "lon", 1.0),
		mkRow("trip", 3, "name", "other", "lat", 5.0, "lon", 5.0),
		mkRow("trip", 7, "name", "second", "lat", 2.0, "lon", 2.0),
		mkRow("trip", 7, "name", "third", "lat", 3.0, "lon", 3.0),
	}}
	opts := AggregateOptions{Type: models.ElementLine, GroupBy: "trip", Frame: spatial.FrameWGS, MaxRows: 100}

	res, err := Aggregate(cur, opts)
	require.NoError(t, err)
	require.Len(t, res.Elements, 2)

	// first-seen key order
	first := res.Elements[0]
	k, _ := first.Attrs.Get("trip")
	assert.Equal(t, models.Int(7), k)

	// attributes of the last row with key 7, not merged
	want := mkRow("trip", 7, "name", "third", "type", "line", "color", nil)
	assert.True(t, want.Equal(first.Attrs), "got %v", first.Attrs.Columns())
	assert.False(t, first.Attrs.Has("speed"))

	assert.Equal(t, []models.Position{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 3, Lon: 3}}, first.Points)
	assert.Len(t, res.Elements[1].Points, 1)
}

func TestAggregate_GroupDefaultKey(t *testing.T) {
	rows := []models.Row{
		mkRow("lat", 1.0, "lon", 1.0),
		mkRow("lat", 2.0, "lon", 2.0, "seg", "a"),
	}

	// no groupby column requested: everything in key 0
	res, err := Aggregate(&fakeCursor{rows: rows}, AggregateOptions{Type: models.ElementPolygon, Frame: spatial.FrameWGS, MaxRows: 10})
	require.NoError(t, err)
	require.Len(t, res.Elements, 1)
	assert.Len(t, res.Elements[0].Points, 2)

	// rows lacking the column fall into key 0
	rows = []models.Row{
		mkRow("lat", 1.0, "lon", 1.0),
		mkRow("lat", 2.0, "lon", 2.0, "seg", "a"),
		mkRow("lat", 3.0, "lon", 3.0, "seg", 0),
	}
	res, err = Aggregate(&fakeCursor{rows: rows}, AggregateOptions{Type: models.ElementLine, GroupBy: "seg", Frame: spatial.FrameWGS, MaxRows: 10})
	require.NoError(t, err)
	require.Len(t, res.Elements, 2)
	assert.Equal(t, []models.Position{{Lat: 1, Lon: 1}, {Lat: 3, Lon: 3}}, res.Elements[0].Points)
}

func TestAggregate_GroupNumericKeysMerge(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("g", 1, "lat", 1.0, "lon", 1.0),
		mkRow("g", 1.0, "lat", 2.0, "lon", 2.0),
		mkRow("g", 1.5, "lat", 3.0, "lon", 3.0),
		mkRow("g", "1", "lat", 4.0, "lon", 4.0),
	}}
	res, err := Aggregate(cur, AggregateOptions{Type: models.ElementLine, GroupBy: "g", Frame: spatial.FrameWGS, MaxRows: 10})
	require.NoError(t, err)
	require.Len(t, res.Elements, 3)
	assert.Len(t, res.Elements[0].Points, 2)

	// the record keeps the last row's own value
	g, _ := res.Elements[0].Attrs.Get("g")
	assert.Equal(t, models.Float(1.0), g)
}

func TestAggregate_Heatmap(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("name", "a", "lat", 1.0, "lon", 2.0, "z", 1),
		mkRow("name", "b", "lat", 3.0, "lon", 4.0, "z", 5.0),
		mkRow("name", "c", "lat", 5.0, "lon", 6.0),
	}}
	opts := AggregateOptions{Type: models.ElementHeatmap, Frame: spatial.FrameWGS, MaxRows: 100}

	res, err := Aggregate(cur, opts)
	require.NoError(t, err)
	require.Len(t, res.Elements, 1)

	el := res.Elements[0]
	assert.Equal(t, 5.0, el.Max)
	assert.Equal(t, []models.HeatPoint{
		{Position: models.Position{Lat: 1, Lon: 2}, Intensity: 1},
		{Position: models.Position{Lat: 3, Lon: 4}, Intensity: 5},
		{Position: models.Position{Lat: 5, Lon: 6}, Intensity: 1},
	}, el.Heat)

	// attributes come from the first row, z is consumed
	name, _ := el.Attrs.Get("name")
	assert.Equal(t, models.Text("a"), name)
	assert.False(t, el.Attrs.Has("z"))
}

func TestAggregate_HeatmapMaxNeverDecreases(t *testing.T) {
	acc := &heatmapAccumulator{max: 1}
	prev := acc.max
	for _, z := range []interface{}{0.5, 3, nil, 2, 7.5, 1} {
		require.NoError(t, acc.add(mkRow("z", z), models.Position{}))
		assert.GreaterOrEqual(t, acc.max, prev)
		assert.GreaterOrEqual(t, acc.max, 1.0)
		prev = acc.max
	}
	assert.Equal(t, 7.5, acc.max)
}

func TestAggregate_HeatmapMaxzOverride(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("maxz", 20, "lat", 1.0, "lon", 2.0, "z", 3),
		mkRow("maxz", 0, "lat", 1.0, "lon", 2.0, "z", 4),
	}}
	res, err := Aggregate(cur, AggregateOptions{Type: models.ElementHeatmap, Frame: spatial.FrameWGS})
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Elements[0].Max)

	// zero override falls back to the running maximum
	cur = &fakeCursor{rows: []models.Row{
		mkRow("maxz", 0, "lat", 1.0, "lon", 2.0, "z", 3),
	}}
	res, err = Aggregate(cur, AggregateOptions{Type: models.ElementHeatmap, Frame: spatial.FrameWGS})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Elements[0].Max)
}

func TestAggregate_HeatmapNoRows(t *testing.T) {
	opts := AggregateOptions{Type: models.ElementHeatmap, Frame: spatial.FrameWGS, Color: models.Text("#f00")}
	res, err := Aggregate(&fakeCursor{}, opts)
	require.NoError(t, err)
	require.Len(t, res.Elements, 1)
	assert.Equal(t, 1.0, res.Elements[0].Max)
	assert.Empty(t, res.Elements[0].Heat)

	b, err := json.Marshal(res.Elements[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heatmap","color":"#f00","points":[],"max":1}`, string(b))
}

func TestAggregate_HeatmapInvalidZ(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{mkRow("lat", 1.0, "lon", 2.0, "z", "hot")}}
	_, err := Aggregate(cur, AggregateOptions{Type: models.ElementHeatmap, Frame: spatial.FrameWGS})
	assert.ErrorIs(t, err, ErrInvalidIntensity)
	assert.Equal(t, CategoryServer, Category(err))
	assert.Equal(t, 1, cur.closed)
}

func TestAggregate_RowCapMarker(t *testing.T) {
	var rows []models.Row
	for i := 0; i < 6; i++ {
		rows = append(rows, mkRow("id", i, "lat", 1.0, "lon", 1.0))
	}
	cur := &fakeCursor{rows: rows}
	opts := markerOpts()
	opts.MaxRows = 2

	res, err := Aggregate(cur, opts)
	require.NoError(t, err)
	assert.Equal(t, "only showing the first 2 rows", res.Notice)
	// rows 0..3 are processed, the break happens after index 3
	assert.Len(t, res.Elements, 4)
	assert.Equal(t, 4, cur.pos, "scan must stop at the cap")
	assert.Equal(t, 1, cur.closed)
}

func TestAggregate_RowCapFourRows(t *testing.T) {
	var rows []models.Row
	for i := 0; i < 4; i++ {
		rows = append(rows, mkRow("id", i, "lat", 1.0, "lon", 1.0))
	}
	opts := markerOpts()
	opts.MaxRows = 2

	res, err := Aggregate(&fakeCursor{rows: rows}, opts)
	require.NoError(t, err)
	assert.Equal(t, "only showing the first 2 rows", res.Notice)
	assert.Len(t, res.Elements, 4)
}

func TestAggregate_RowCapUnderLimit(t *testing.T) {
	rows := []models.Row{
		mkRow("lat", 1.0, "lon", 1.0),
		mkRow("lat", 1.0, "lon", 1.0),
		mkRow("lat", 1.0, "lon", 1.0),
	}
	opts := markerOpts()
	opts.MaxRows = 2

	res, err := Aggregate(&fakeCursor{rows: rows}, opts)
	require.NoError(t, err)
	assert.Empty(t, res.Notice)
	assert.Len(t, res.Elements, 3)
}

func TestAggregate_RowCapGroup(t *testing.T) {
	var rows []models.Row
	for i := 0; i < 10; i++ {
		rows = append(rows, mkRow("lat", 1.0, "lon", 1.0))
	}
	cur := &fakeCursor{rows: rows}
	res, err := Aggregate(cur, AggregateOptions{Type: models.ElementLine, Frame: spatial.FrameWGS, MaxRows: 3})
	require.NoError(t, err)
	assert.Equal(t, TruncationNotice(3), res.Notice)
	assert.Len(t, res.Elements[0].Points, 5)
}

func TestAggregate_RowCapIgnoredForHeatmap(t *testing.T) {
	var rows []models.Row
	for i := 0; i < 10; i++ {
		rows = append(rows, mkRow("lat", 1.0, "lon", 1.0))
	}
	cur := &fakeCursor{rows: rows}
	res, err := Aggregate(cur, AggregateOptions{Type: models.ElementHeatmap, Frame: spatial.FrameWGS, MaxRows: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Notice)
	assert.Len(t, res.Elements[0].Heat, 10)
	assert.Equal(t, 10, cur.pos)
}

func TestAggregate_MissingGeometryColumn(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("lat", 1.0, "lon", 1.0),
		mkRow("lat", 1.0),
	}}
	res, err := Aggregate(cur, markerOpts())
	require.Error(t, err)
	assert.Nil(t, res.Elements, "partial results are discarded")
	assert.Equal(t, CategorySource, Category(err))
	assert.Contains(t, err.Error(), `"lon"`)
	assert.Equal(t, 1, cur.closed)
}

func TestAggregate_CursorFailure(t *testing.T) {
	cur := &fakeCursor{
		rows:   []models.Row{mkRow("lat", 1.0, "lon", 1.0), mkRow("lat", 2.0, "lon", 2.0)},
		failAt: 2,
	}
	_, err := Aggregate(cur, markerOpts())
	require.Error(t, err)
	assert.Equal(t, CategorySource, Category(err))
	assert.Equal(t, 1, cur.closed)
}

func TestAggregate_CloseFailure(t *testing.T) {
	cur := &fakeCursor{
		rows:     []models.Row{mkRow("lat", 1.0, "lon", 1.0)},
		closeErr: errors.New("cursor gone"),
	}
	res, err := Aggregate(cur, markerOpts())
	require.Error(t, err)
	assert.Empty(t, res.Elements)
	assert.Equal(t, CategorySource, Category(err))
}

func TestAggregate_InvalidCoordinate(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{mkRow("lat", "north", "lon", 1.0)}}
	_, err := Aggregate(cur, markerOpts())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	assert.Equal(t, CategoryServer, Category(err))

	cur = &fakeCursor{rows: []models.Row{mkRow("lat", nil, "lon", 1.0)}}
	_, err = Aggregate(cur, markerOpts())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestAggregate_TextCoordinates(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{mkRow("lat", " 12.5", "lon", "-3")}}
	res, err := Aggregate(cur, markerOpts())
	require.NoError(t, err)
	assert.Equal(t, models.Position{Lat: 12.5, Lon: -3}, *res.Elements[0].Pos)
}

func TestAggregate_MercatorFrame(t *testing.T) {
	x, y := spatial.WGSToMercator(39.9, 116.4)
	cur := &fakeCursor{rows: []models.Row{mkRow("x", x, "y", y, "name", "bj")}}
	opts := markerOpts()
	opts.Frame = spatial.FrameMercator

	res, err := Aggregate(cur, opts)
	require.NoError(t, err)
	el := res.Elements[0]
	assert.InDelta(t, 39.9, el.Pos.Lat, 1e-9)
	assert.InDelta(t, 116.4, el.Pos.Lon, 1e-9)
	assert.False(t, el.Attrs.Has("x"))
	assert.False(t, el.Attrs.Has("y"))

	// lat/lon are not geometry in this frame
	_, err = Aggregate(&fakeCursor{rows: []models.Row{mkRow("lat", 1.0, "lon", 1.0)}}, opts)
	assert.Equal(t, CategorySource, Category(err))
}

func TestAggregate_CoordsFrame(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("id", 1, "coords", models.Point(10, 20)),
		mkRow("id", 2, "coords", "(30.5, 40.5)"),
	}}
	opts := markerOpts()
	opts.Frame = spatial.FrameCoords

	res, err := Aggregate(cur, opts)
	require.NoError(t, err)
	assert.Equal(t, models.Position{Lat: 10, Lon: 20}, *res.Elements[0].Pos)
	assert.Equal(t, models.Position{Lat: 30.5, Lon: 40.5}, *res.Elements[1].Pos)
	assert.False(t, res.Elements[0].Attrs.Has("coords"))

	_, err = Aggregate(&fakeCursor{rows: []models.Row{mkRow("coords", 5)}}, opts)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestAggregate_ChinaGridFrames(t *testing.T) {
	wLat, wLon := 31.2304, 121.4737
	gLat, gLon := spatial.WGSToGCJ(wLat, wLon)
	bLat, bLon := spatial.GCJToBD(gLat, gLon)

	for frame, in := range map[spatial.Frame][2]float64{
		spatial.FrameGCJ:   {gLat, gLon},
		spatial.FrameBaidu: {bLat, bLon},
	} {
		opts := markerOpts()
		opts.Frame = frame
		res, err := Aggregate(&fakeCursor{rows: []models.Row{mkRow("lat", in[0], "lon", in[1])}}, opts)
		require.NoError(t, err)
		p := res.Elements[0].Pos
		assert.Less(t, spatial.HaversineDistance(wLat, wLon, p.Lat, p.Lon), 10.0, string(frame))
	}
}

func TestElementJSON(t *testing.T) {
	cur := &fakeCursor{rows: []models.Row{
		mkRow("id", 1, "lat", 1.5, "lon", 2.0),
	}}
	res, err := Aggregate(cur, markerOpts())
	require.NoError(t, err)
	b, err := json.Marshal(res.Elements)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"type":"marker","color":null,"pos":[1.5,2]}]`, string(b))

	cur = &fakeCursor{rows: []models.Row{
		mkRow("g", "a", "lat", 1.0, "lon", 2.0),
		mkRow("g", "a", "lat", 3.0, "lon", 4.0, "color", "green"),
	}}
	res, err = Aggregate(cur, AggregateOptions{Type: "line", GroupBy: "g", Frame: spatial.FrameWGS, MaxRows: 10})
	require.NoError(t, err)
	b, err = json.Marshal(res.Elements)
	require.NoError(t, err)
	assert.Equal(t, `[{"g":"a","color":"green","type":"line","points":[[1,2],[3,4]]}]`, string(b))
}
