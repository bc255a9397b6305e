package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounting-engine/internal/models"
	"accounting-engine/internal/service"
)

// ReportHandler exposes the read-only query surface: balances, general
// ledgers, trial balances, balance sheets and reconciliation.
type ReportHandler struct {
	reports *service.ReportingService
	logger  *zap.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports *service.ReportingService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func parseWindow(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	// An absent from means open-ended history; a zero time flows through
	// to the stores unchanged.
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			respond(c, models.Fail(http.StatusBadRequest, "from must be YYYY-MM-DD"))
			return from, to, false
		}
	}
	to, err = time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		respond(c, models.Fail(http.StatusBadRequest, "to must be YYYY-MM-DD"))
		return from, to, false
	}
	// Window is inclusive of the whole end day.
	to = to.Add(24*time.Hour - time.Nanosecond)
	return from, to, true
}

func (h *ReportHandler) AccountBalance(c *gin.Context) {
	account, entries, err := h.reports.AccountBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, gin.H{"account": account, "entries": entries}))
}

func (h *ReportHandler) GeneralLedger(c *gin.Context) {
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	ledger, err := h.reports.GeneralLedger(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, ledger))
}

func (h *ReportHandler) TrialBalance(c *gin.Context) {
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	report, err := h.reports.TrialBalance(c.Request.Context(), c.Query("bank_id"), c.Query("branch_id"), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, report))
}

func (h *ReportHandler) TrialBalance6(c *gin.Context) {
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	report, err := h.reports.TrialBalance6(c.Request.Context(), c.Query("bank_id"), c.Query("branch_id"), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, report))
}

func (h *ReportHandler) BalanceSheet(c *gin.Context) {
	asOf, err := time.Parse("2006-01-02", c.Query("as_of"))
	if err != nil {
		respond(c, models.Fail(http.StatusBadRequest, "as_of must be YYYY-MM-DD"))
		return
	}
	asOf = asOf.Add(24*time.Hour - time.Nanosecond)

	report, err := h.reports.BalanceSheet(c.Request.Context(), c.Query("bank_id"), c.Query("branch_id"), asOf)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, report))
}

func (h *ReportHandler) Reconcile(c *gin.Context) {
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	report, err := h.reports.Reconcile(c.Request.Context(), c.Query("bank_id"), c.Query("branch_id"), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, report))
}
