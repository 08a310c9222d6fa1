package solver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pthm-cable/fieldscope/httputil"
)

// maxRequestBytes caps the size of a solve request body.
const maxRequestBytes = 1 << 20

// Defaults applied to 3D requests that omit the z axis.
const (
	defaultZMin = -1.0
	defaultZMax = 1.0
	defaultNZ   = 21
)

// Handler serves the solver API backed by Compute.
type Handler struct {
	limits Limits
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates the HTTP handler. A nil logger uses slog.Default().
func NewHandler(limits Limits, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{limits: limits, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc(HealthPath, h.health)
	h.mux.HandleFunc(Solve2DPath, h.simulate(2))
	h.mux.HandleFunc(Solve3DPath, h.simulate(3))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) simulate(dims int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}

		var req Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&req); err != nil {
			httputil.BadRequest(w, "invalid request body: "+err.Error())
			return
		}
		if dims == 2 {
			req = req.Flatten()
		} else {
			fill3D(&req)
		}

		start := time.Now()
		resp, err := Compute(req, h.limits)
		if err != nil {
			if errors.Is(err, ErrInvalidRequest) {
				httputil.UnprocessableEntity(w, err.Error())
				return
			}
			h.logger.Error("solve failed", "dims", dims, "error", err)
			httputil.WriteJSONError(w, http.StatusInternalServerError, "solve failed")
			return
		}
		h.logger.Info("solved",
			"dims", dims,
			"charges", len(req.Charges),
			"samples", req.Grid.NX*req.Grid.NY*nz(req.Grid),
			"duration", time.Since(start),
			"request_id", r.Header.Get("X-Request-ID"),
		)
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// fill3D supplies the default z axis and z=0 for charges that omit it.
func fill3D(req *Request) {
	if req.Grid.ZMin == nil {
		v := defaultZMin
		req.Grid.ZMin = &v
	}
	if req.Grid.ZMax == nil {
		v := defaultZMax
		req.Grid.ZMax = &v
	}
	if req.Grid.NZ == nil {
		v := defaultNZ
		req.Grid.NZ = &v
	}
	for i := range req.Charges {
		if req.Charges[i].Z == nil {
			z := 0.0
			req.Charges[i].Z = &z
		}
	}
}

func nz(g GridSpec) int {
	if g.NZ == nil {
		return 1
	}
	return *g.NZ
}
