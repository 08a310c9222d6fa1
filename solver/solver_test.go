package solver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/httputil"
)

func grid2D(t *testing.T, n int) field.Grid {
	t.Helper()
	g, err := field.NewGrid2D(field.Axis{Min: -1, Max: 1, Count: n}, field.Axis{Min: -1, Max: 1, Count: n})
	require.NoError(t, err)
	return g
}

func grid3D(t *testing.T, n int) field.Grid {
	t.Helper()
	a := field.Axis{Min: -1, Max: 1, Count: n}
	g, err := field.NewGrid3D(a, a, a)
	require.NoError(t, err)
	return g
}

func singleCharge() []charges.Charge {
	return []charges.Charge{{ID: 0, Q: 1e-9}}
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestEndToEndProbeAtChargeCentre(t *testing.T) {
	srv := httptest.NewServer(NewHandler(DefaultLimits, nil))
	defer srv.Close()

	g := grid2D(t, 5)
	set := charges.NewSet(g, charges.Placement{Inset: 0.1, Jitter: 0.2, Charge: 1e-9}, rand.New(rand.NewSource(1)))
	_, err := set.Add(charges.At(0, 0), charges.WithQ(1e-9))
	require.NoError(t, err)
	require.NoError(t, set.Validate())

	client := NewClient(srv.URL, httputil.NewStandardClient(0), true, nil)
	require.NoError(t, client.Health(context.Background()))

	res, err := client.SolveField(context.Background(), NewRequest(set.All(), g, 1e-6, true))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dims)
	assert.False(t, res.FellBack)

	probe := field.Nearest(res.Field, r3.Vec{})
	require.True(t, probe.OK)
	assert.Equal(t, 2, probe.I)
	assert.Equal(t, 2, probe.J)
	assert.Equal(t, res.Field.Scalar(2, 2, 0), probe.Scalar)
	assert.InEpsilon(t, CoulombK*1e-9/1e-6, probe.Scalar, 1e-9)
}

func TestSolveFieldFallsBackTo2D(t *testing.T) {
	resp2D, err := Compute(NewRequest(singleCharge(), grid2D(t, 5), 1e-6, true), DefaultLimits)
	require.NoError(t, err)

	mock := httputil.NewMockClient().
		Respond(http.MethodPost, Solve3DPath, http.StatusServiceUnavailable, `{"detail":"3d disabled"}`).
		Respond(http.MethodPost, Solve2DPath, http.StatusOK, encode(t, resp2D))
	client := NewClient("http://solver", mock, true, nil)

	res, err := client.SolveField(context.Background(), NewRequest(singleCharge(), grid3D(t, 5), 1e-6, true))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 2, res.Dims)
	assert.True(t, res.FellBack)
	assert.False(t, res.Field.Grid().Is3D())

	// The retried request carries no z
	_, body := mock.Request(1)
	assert.NotContains(t, string(body), `"nz"`)
	assert.NotContains(t, string(body), `"z"`)
}

func TestSolveFieldWithoutFallback(t *testing.T) {
	mock := httputil.NewMockClient().
		Respond(http.MethodPost, Solve3DPath, http.StatusInternalServerError, `{"error":"boom"}`)
	client := NewClient("http://solver", mock, false, nil)

	res, err := client.SolveField(context.Background(), NewRequest(singleCharge(), grid3D(t, 5), 1e-6, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSolve)
	assert.False(t, res.Exhausted)
	assert.Equal(t, 0, mock.Calls(http.MethodPost, Solve2DPath))

	var se *SolveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "boom", se.Detail)
	assert.Equal(t, 3, se.Dims)
}

func TestSolveFieldBothModesFail(t *testing.T) {
	mock := httputil.NewMockClient().
		Respond(http.MethodPost, Solve3DPath, http.StatusBadGateway, "upstream down").
		Respond(http.MethodPost, Solve2DPath, http.StatusBadGateway, "upstream down")
	client := NewClient("http://solver", mock, true, nil)

	res, err := client.SolveField(context.Background(), NewRequest(singleCharge(), grid3D(t, 3), 1e-6, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSolve)
	assert.Nil(t, res.Field)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 1, mock.Calls(http.MethodPost, Solve2DPath))
	assert.Contains(t, err.Error(), "upstream down")
}

func TestSolveSetsRequestHeaders(t *testing.T) {
	resp, err := Compute(NewRequest(singleCharge(), grid2D(t, 3), 1e-6, false), DefaultLimits)
	require.NoError(t, err)
	mock := httputil.NewMockClient().Respond(http.MethodPost, Solve2DPath, http.StatusOK, encode(t, resp))
	client := NewClient("http://solver/", mock, true, nil)

	_, err = client.Solve(context.Background(), NewRequest(singleCharge(), grid2D(t, 3), 1e-6, false))
	require.NoError(t, err)

	req, _ := mock.Request(0)
	assert.Equal(t, "/simulate/2d", req.URL.Path)
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
	assert.Equal(t, client.Session(), req.Header.Get("X-Session-ID"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestSolveMalformedResponse(t *testing.T) {
	mock := httputil.NewMockClient().Respond(http.MethodPost, Solve2DPath, http.StatusOK, `{"grid":`)
	client := NewClient("http://solver", mock, true, nil)

	_, err := client.Solve(context.Background(), NewRequest(singleCharge(), grid2D(t, 3), 1e-6, true))
	assert.ErrorIs(t, err, ErrSolve)
}

func TestToFieldShapeMismatch(t *testing.T) {
	resp, err := Compute(NewRequest(singleCharge(), grid2D(t, 4), 1e-6, true), DefaultLimits)
	require.NoError(t, err)
	resp.Grid.NX = 5

	_, err = resp.ToField()
	assert.ErrorIs(t, err, field.ErrShapeMismatch)
}

func TestHealth(t *testing.T) {
	mock := httputil.NewMockClient().
		Respond(http.MethodGet, HealthPath, http.StatusServiceUnavailable, "").
		Respond(http.MethodGet, HealthPath, http.StatusOK, `{"status":"ok"}`)
	client := NewClient("http://solver", mock, true, nil)

	assert.ErrorIs(t, client.Health(context.Background()), ErrUnhealthy)
	assert.NoError(t, client.Health(context.Background()))
}

func TestLayerNullDecodesToNaN(t *testing.T) {
	var l Layer
	require.NoError(t, json.Unmarshal([]byte(`[[1, null], [3, 4]]`), &l))
	assert.Equal(t, []int{2, 2}, l.Shape)
	assert.True(t, math.IsNaN(l.Values[1]))

	out, err := json.Marshal(NewLayer([]float64{1, math.Inf(1), 3, 4, 5, 6, 7, 8}, 2, 2, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `[[[1,null],[3,4]],[[5,6],[7,8]]]`, string(out))
}

func TestLayerRejectsRagged(t *testing.T) {
	var l Layer
	err := json.Unmarshal([]byte(`[[1, 2], [3]]`), &l)
	assert.ErrorIs(t, err, field.ErrShapeMismatch)
}

func TestComputeSymmetry(t *testing.T) {
	resp, err := Compute(NewRequest(singleCharge(), grid3D(t, 5), 1e-6, true), DefaultLimits)
	require.NoError(t, err)
	f, err := resp.ToField()
	require.NoError(t, err)

	// Field points away from a positive charge
	assert.Greater(t, f.Vector(4, 2, 2).X, 0.0)
	assert.Less(t, f.Vector(0, 2, 2).X, 0.0)
	assert.Greater(t, f.Vector(2, 2, 4).Z, 0.0)
	assert.InDelta(t, f.Scalar(0, 2, 2), f.Scalar(4, 2, 2), 1e-6)
	assert.InDelta(t, f.Scalar(2, 0, 2), f.Scalar(2, 2, 0), 1e-6)
}

func TestComputeRejects(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no charges", NewRequest(nil, grid2D(t, 5), 1e-6, true)},
		{"zero charge", NewRequest([]charges.Charge{{Q: 0}}, grid2D(t, 5), 1e-6, true)},
		{"too large", NewRequest(singleCharge(), grid2D(t, 201), 1e-6, true)},
		{"3d too large", NewRequest(singleCharge(), grid3D(t, 101), 1e-6, true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.req, DefaultLimits)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestHandlerErrors(t *testing.T) {
	h := NewHandler(DefaultLimits, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Solve2DPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, Solve2DPath, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	body := encode(t, NewRequest(nil, grid2D(t, 5), 1e-6, true))
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, Solve2DPath, strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one charge")
}

func TestHandler3DDefaultsZ(t *testing.T) {
	srv := httptest.NewServer(NewHandler(DefaultLimits, nil))
	defer srv.Close()
	client := NewClient(srv.URL, httputil.NewStandardClient(0), false, nil)

	// A 2D-shaped request posted to the 3D endpoint gets the default z axis
	req := NewRequest(singleCharge(), grid2D(t, 5), 1e-6, true)
	nz := 3
	req.Grid.NZ = &nz

	res, err := client.SolveField(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Dims)
	assert.Equal(t, -1.0, res.Field.Grid().Z.Min)
	assert.Equal(t, 1.0, res.Field.Grid().Z.Max)
}

func TestLocalSolveField(t *testing.T) {
	local := NewLocal(DefaultLimits)
	require.NoError(t, local.Health(context.Background()))

	res, err := local.SolveField(context.Background(), NewRequest(singleCharge(), grid3D(t, 5), 1e-6, true))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 3, res.Dims)
	require.NotNil(t, res.Field)
	assert.True(t, res.Field.Grid().Is3D())

	_, err = local.SolveField(context.Background(), NewRequest(nil, grid2D(t, 5), 1e-6, true))
	assert.ErrorIs(t, err, ErrSolve)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = local.SolveField(ctx, NewRequest(singleCharge(), grid2D(t, 5), 1e-6, true))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFieldAtMatchesCompute(t *testing.T) {
	req := NewRequest([]charges.Charge{{ID: 0, X: 0.2, Y: -0.1, Q: 2e-9}, {ID: 1, X: -0.4, Y: 0.3, Q: -1e-9}}, grid2D(t, 5), 1e-6, true)
	resp, err := Compute(req, DefaultLimits)
	require.NoError(t, err)
	f, err := resp.ToField()
	require.NoError(t, err)

	g := f.Grid()
	e, v := FieldAt(req, g.Point(3, 1, 0))
	assert.InDelta(t, f.Vector(3, 1, 0).X, e.X, 1e-9*math.Abs(e.X))
	assert.InDelta(t, f.Vector(3, 1, 0).Y, e.Y, 1e-9*math.Abs(e.Y))
	assert.InDelta(t, f.Scalar(3, 1, 0), v, 1e-9*math.Abs(v))
}

func TestFindNullBetweenLikeCharges(t *testing.T) {
	like := []charges.Charge{{ID: 0, X: -0.5, Q: 1e-9}, {ID: 1, X: 0.5, Q: 1e-9}}

	t.Run("2d", func(t *testing.T) {
		req := NewRequest(like, grid2D(t, 11), 1e-6, true)
		null, err := FindNull(req, r3.Vec{X: 0.2, Y: 0.3}, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0, null.Point.X, 1e-3)
		assert.InDelta(t, 0, null.Point.Y, 1e-3)
		assert.Positive(t, null.Evaluations)
		assert.Positive(t, null.Potential)
	})

	t.Run("3d", func(t *testing.T) {
		req := NewRequest(like, grid3D(t, 5), 1e-6, true)
		null, err := FindNull(req, r3.Vec{X: 0.1, Y: -0.2, Z: 0.3}, 4000)
		require.NoError(t, err)
		assert.InDelta(t, 0, r3.Norm(null.Point), 1e-2)
	})

	t.Run("start in a far corner", func(t *testing.T) {
		pair := []charges.Charge{{ID: 0, X: -0.5, Q: 4e-9}, {ID: 1, X: 0.5, Q: 1e-9}}
		req := NewRequest(pair, grid2D(t, 11), 1e-6, true)
		null, err := FindNull(req, r3.Vec{X: 0.95, Y: -0.95}, 0)
		require.NoError(t, err)
		assert.InDelta(t, 1.0/6, null.Point.X, 1e-3)
		assert.InDelta(t, 0, null.Point.Y, 1e-3)
		assert.Less(t, null.Magnitude, 1.0)
	})

	t.Run("stays inside the grid", func(t *testing.T) {
		dipole := []charges.Charge{{ID: 0, X: -0.1, Q: 1e-9}, {ID: 1, X: 0.1, Q: -1e-9}}
		req := NewRequest(dipole, grid2D(t, 11), 1e-6, true)
		null, err := FindNull(req, r3.Vec{X: 0.9, Y: 0.9}, 0)
		require.NoError(t, err)
		g, err := req.Grid.Grid()
		require.NoError(t, err)
		assert.True(t, g.Contains(null.Point), "null %v outside grid", null.Point)
	})

	t.Run("no charges", func(t *testing.T) {
		_, err := FindNull(NewRequest(nil, grid2D(t, 5), 1e-6, true), r3.Vec{}, 0)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestNullStarts(t *testing.T) {
	g := grid2D(t, 5)
	like := NewRequest([]charges.Charge{{ID: 0, X: -0.5, Q: 1e-9}, {ID: 1, X: 0.5, Q: 1e-9}}, g, 0, false)

	starts := nullStarts(g, like.Charges, r3.Vec{X: 3, Y: 0.2})
	// Clamped start, then centroid and pair midpoint (both the centre)
	want := []r3.Vec{{X: 1, Y: 0.2}, {}}
	assert.Equal(t, want, starts)
}
