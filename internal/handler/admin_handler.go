package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounting-engine/internal/models"
	"accounting-engine/internal/service"
)

// AdminHandler exposes the chart-of-account and rule configuration surface.
type AdminHandler struct {
	chart  *service.ChartService
	rules  *service.RuleService
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(chart *service.ChartService, rules *service.RuleService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{chart: chart, rules: rules, logger: logger}
}

func (h *AdminHandler) CreateChartAccount(c *gin.Context) {
	var req models.ChartOfAccount
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, models.Fail(http.StatusBadRequest, err.Error()))
		return
	}
	account, err := h.chart.CreateAccount(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusCreated, account))
}

func (h *AdminHandler) UpdateChartAccount(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, models.Fail(http.StatusBadRequest, err.Error()))
		return
	}
	account, err := h.chart.UpdateAccount(c.Request.Context(), c.Param("number"), req.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, account))
}

func (h *AdminHandler) DeleteChartAccount(c *gin.Context) {
	if err := h.chart.DeleteAccount(c.Request.Context(), c.Param("number")); err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, nil))
}

func (h *AdminHandler) ListChart(c *gin.Context) {
	tree, err := h.chart.Tree(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	type row struct {
		Number string              `json:"number"`
		Name   string              `json:"name"`
		Class  models.AccountClass `json:"class"`
		Level  int                 `json:"level"`
	}
	var rows []row
	tree.Walk(func(n *models.ChartNode) {
		rows = append(rows, row{
			Number: n.Account.Number,
			Name:   n.Account.Name,
			Class:  n.Account.Class,
			Level:  n.Depth(),
		})
	})
	respond(c, models.OK(http.StatusOK, rows))
}

func (h *AdminHandler) SaveRule(c *gin.Context) {
	var req models.AccountingRule
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, models.Fail(http.StatusBadRequest, err.Error()))
		return
	}
	rule, err := h.rules.SaveRule(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusCreated, rule))
}

func (h *AdminHandler) DeleteRule(c *gin.Context) {
	if err := h.rules.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, nil))
}

func (h *AdminHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.ListRules(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusOK, rules))
}
