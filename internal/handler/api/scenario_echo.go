package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"AlphaKit/internal/cachekey"
	"AlphaKit/internal/domain/models"
	"AlphaKit/internal/usecase"
	"AlphaKit/pkg/cache"
	xhttp "AlphaKit/pkg/http"
	xlogger "AlphaKit/pkg/logger"
	"AlphaKit/pkg/util"
)

const reportPrefix = "report:"

// ScenarioEchoHandler serves the registry, the cache key codec and scenario runs.
type ScenarioEchoHandler struct {
	logger    *xlogger.Logger
	runner    *usecase.ScenarioRunner
	reports   cache.Service
	reportTTL time.Duration
}

func NewScenarioEchoHandler(logger *xlogger.Logger, runner *usecase.ScenarioRunner, reports cache.Service, reportTTL time.Duration) *ScenarioEchoHandler {
	return &ScenarioEchoHandler{logger: logger, runner: runner, reports: reports, reportTTL: reportTTL}
}

func (h *ScenarioEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/datasets", h.Datasets)
	g.GET("/datasets/:id/cachekey", h.EncodeKey)
	g.GET("/cachekeys/:key", h.DecodeKey)
	g.POST("/scenarios", h.RunScenario)
	g.GET("/reports/:id", h.Report)
}

func (h *ScenarioEchoHandler) Datasets(c echo.Context) error {
	specs := h.runner.Registry().List()
	rows := make([]DatasetView, 0, len(specs))
	for _, s := range specs {
		v := DatasetView{
			ID:        s.ShortID,
			Source:    s.SourceName(),
			Code:      s.ShortCode(),
			Frequency: string(s.Frequency),
			TestVars:  s.TestVars,
			Value:     s.ValueField,
		}
		if s.HasRatio() {
			v.Ratio = s.RatioFields[:]
		}
		rows = append(rows, v)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ScenarioEchoHandler) EncodeKey(c echo.Context) error {
	req := &CacheKeyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	spec, err := h.runner.Registry().Lookup(req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	}
	start, end, err := req.Dates()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	window, err := h.runner.Window(usecase.RunParams{Start: start, End: end})
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_WINDOW", "start", err.Error()))
	}
	key, err := cachekey.Encode(spec, window)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, keyView(key, cachekey.KeyFields{
		SourceName:   spec.SourceName(),
		DatabaseCode: spec.DatabaseCode,
		DatasetCode:  spec.DatasetCode,
		Window:       window,
	}))
}

func (h *ScenarioEchoHandler) DecodeKey(c echo.Context) error {
	key := c.Param("key")
	f, err := cachekey.Decode(key)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_FORMAT", "key", err.Error()))
	}
	return xhttp.SuccessResponse(c, keyView(key, f))
}

func (h *ScenarioEchoHandler) RunScenario(c echo.Context) error {
	req := &ScenarioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, end, err := req.Dates()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	ctx := c.Request().Context()
	report, err := h.runner.Run(ctx, usecase.RunParams{Datasets: req.Datasets, Start: start, End: end})
	if err != nil {
		appErr := xhttp.MapError(err, runErrors...)
		if appErr == nil {
			h.logger.Error("scenario usecase error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		if errors.Is(err, models.ErrAlignment) {
			h.logger.Warn("scenario alignment failed", xlogger.Error(err))
			if report != nil {
				appErr.WithParam("run_id", report.RunID)
			}
		}
		return xhttp.AppErrorResponse(c, appErr)
	}

	if h.reports != nil {
		if err := cache.SetJSON(ctx, h.reports, reportPrefix+report.RunID, report, h.reportTTL); err != nil {
			h.logger.Warn("report cache set failed", xlogger.String("run_id", report.RunID), xlogger.Error(err))
		}
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/reports/"+report.RunID)
	return xhttp.CreatedResponse(c, report)
}

func (h *ScenarioEchoHandler) Report(c echo.Context) error {
	id := c.Param("id")
	if h.reports == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("report %s not found", id))
	}
	data, err := h.reports.Get(c.Request().Context(), reportPrefix+id)
	if errors.Is(err, cache.ErrCacheMiss) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("report %s not found", id))
	}
	if err != nil {
		h.logger.Error("report cache get failed", xlogger.String("run_id", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, json.RawMessage(data))
}

// runErrors maps runner failures caused by the request onto client errors.
var runErrors = []xhttp.ErrorRule{
	{Target: models.ErrUnknownDataset, Code: "ERR_UNKNOWN_DATASET", Field: "datasets", Status: http.StatusBadRequest},
	{Target: models.ErrInvalidWindow, Code: "ERR_WINDOW", Field: "start", Status: http.StatusBadRequest},
	{Target: models.ErrFormat, Code: "ERR_FORMAT", Status: http.StatusBadRequest},
	{Target: models.ErrAlignment, Code: "ERR_ALIGNMENT", Status: http.StatusUnprocessableEntity},
}

func keyView(key string, f cachekey.KeyFields) CacheKeyView {
	return CacheKeyView{
		Key:          key,
		SourceName:   f.SourceName,
		DatabaseCode: f.DatabaseCode,
		DatasetCode:  f.DatasetCode,
		Start:        f.Window.Start.Format(util.ISODate),
		End:          f.Window.End.Format(util.ISODate),
	}
}
