package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
	"cta-backtester/internal/strategy"
)

const defaultListLimit = 50

// runRequest is the POST /api/runs body. Omitted settings take the server
// defaults.
type runRequest struct {
	Strategy  string             `json:"strategy" binding:"required"`
	Params    map[string]float64 `json:"params"`
	Symbol    string             `json:"symbol"`
	Mode      string             `json:"mode"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	InitDays  *int               `json:"init_days"`
	Capital   *decimal.Decimal   `json:"capital"`
	Slippage  *decimal.Decimal   `json:"slippage"`
	Rate      *decimal.Decimal   `json:"rate"`
	Size      *decimal.Decimal   `json:"size"`
	PriceTick *decimal.Decimal   `json:"price_tick"`
}

func (req *runRequest) settings(base backtest.Settings) (backtest.Settings, error) {
	s := base
	if req.Symbol != "" {
		s.Symbol = req.Symbol
	}
	if req.Mode != "" {
		mode, err := domain.ParseMode(req.Mode)
		if err != nil {
			return s, err
		}
		s.Mode = mode
	}
	if req.StartDate != "" {
		d, err := time.Parse(time.DateOnly, req.StartDate)
		if err != nil {
			return s, fmt.Errorf("start_date: %w", err)
		}
		s.StartDate = d
	}
	if req.EndDate != "" {
		d, err := time.Parse(time.DateOnly, req.EndDate)
		if err != nil {
			return s, fmt.Errorf("end_date: %w", err)
		}
		s.EndDate = d
	}
	if req.InitDays != nil {
		s.InitDays = *req.InitDays
	}
	setDecimal(&s.Capital, req.Capital)
	setDecimal(&s.Slippage, req.Slippage)
	setDecimal(&s.Rate, req.Rate)
	setDecimal(&s.Size, req.Size)
	setDecimal(&s.PriceTick, req.PriceTick)
	return s, nil
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func abortError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	settings, err := req.settings(s.defaults)
	if err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}

	run, err := s.submit(c.Request.Context(), settings, req.Strategy, req.Params)
	switch {
	case errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, strategy.ErrInvalidParam),
		errors.Is(err, backtest.ErrInvalidSettings):
		abortError(c, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.WithError(err).Error("submit run")
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusAccepted, newRunView(run))
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			abortError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.stores.Runs.List(c.Request.Context(), limit)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]runView, len(runs))
	for i, r := range runs {
		out[i] = newRunView(r)
	}
	c.JSON(http.StatusOK, out)
}

// lookupRun loads the run named by the :id parameter, writing the error
// response when it cannot.
func (s *Server) lookupRun(c *gin.Context) (*domain.Run, bool) {
	run, err := s.stores.Runs.GetByID(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		abortError(c, http.StatusNotFound, fmt.Errorf("run %q not found", c.Param("id")))
		return nil, false
	case err != nil:
		abortError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return run, true
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newRunView(run))
}

func (s *Server) handleGetTrades(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	trades, err := s.stores.Trades.GetByRunID(c.Request.Context(), run.RunID)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]tradeView, len(trades))
	for i, t := range trades {
		out[i] = newTradeView(t)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetDaily(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	results, err := s.stores.Daily.GetByRunID(c.Request.Context(), run.RunID)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]dailyView, len(results))
	for i, d := range results {
		out[i] = newDailyView(d)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleStream(c *gin.Context) {
	if s.hub == nil {
		abortError(c, http.StatusServiceUnavailable, errors.New("event stream disabled"))
		return
	}
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	if err := s.hub.ServeWS(c.Writer, c.Request, run.RunID); err != nil {
		s.log.WithError(err).WithField("run_id", run.RunID).Debug("stream closed")
	}
}
