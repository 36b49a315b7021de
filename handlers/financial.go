package handlers

import (
	"net/http"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

type FinancialHandler struct {
	Finance *services.FinancialService
}

// ============================================================================
// ANALYTICS
// ============================================================================

func (h *FinancialHandler) Overview(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	w, err := window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	m, err := h.Finance.Overview(c.Request.Context(), userID, w)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, m)
}

func (h *FinancialHandler) ClientProfitability(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	w, err := window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := h.Finance.ClientProfitability(c.Request.Context(), userID, c.Param("clientId"), w)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

// ============================================================================
// CLIENTS & VENDORS
// ============================================================================

func (h *FinancialHandler) ListClients(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	clients, err := h.Finance.Clients(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, clients)
}

func (h *FinancialHandler) GetClient(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := services.ParseID("id", c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	client, err := h.Finance.GetClient(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, client)
}

func (h *FinancialHandler) CreateClient(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreateClientRequest
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.Finance.CreateClient(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, client)
}

func (h *FinancialHandler) ListVendors(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	vendors, err := h.Finance.Vendors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, vendors)
}

func (h *FinancialHandler) CreateVendor(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreateVendorRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.Finance.CreateVendor(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, v)
}

// ============================================================================
// BUDGETS
// ============================================================================

func (h *FinancialHandler) ListBudgets(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	budgets, warnings, err := h.Finance.ListBudgets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"budgets": budgets, "warnings": warnings})
}

func (h *FinancialHandler) GetBudget(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	b, warnings, err := h.Finance.GetBudget(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"budget": b, "warnings": warnings})
}

func (h *FinancialHandler) CreateBudget(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreateBudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Finance.CreateBudget(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, b)
}

// ============================================================================
// PAYMENTS & EXPENSES
// ============================================================================

func ledgerFilter(c *gin.Context) (services.LedgerFilter, error) {
	w, err := window(c)
	if err != nil {
		return services.LedgerFilter{}, err
	}
	f := services.LedgerFilter{Window: w}
	for param, dst := range map[string]*string{
		"client_id": &f.ClientID,
		"budget_id": &f.BudgetID,
		"vendor_id": &f.VendorID,
	} {
		if raw := c.Query(param); raw != "" {
			if *dst, err = services.ParseID(param, raw); err != nil {
				return services.LedgerFilter{}, err
			}
		}
	}
	return f, nil
}

func (h *FinancialHandler) ListPayments(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	f, err := ledgerFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	payments, err := h.Finance.ListPayments(c.Request.Context(), userID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, payments)
}

func (h *FinancialHandler) CreatePayment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Finance.CreatePayment(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, p)
}

func (h *FinancialHandler) UpdatePaymentStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Finance.UpdatePaymentStatus(c.Request.Context(), userID, c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": req.Status})
}

func (h *FinancialHandler) ListExpenses(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	f, err := ledgerFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	expenses, err := h.Finance.ListExpenses(c.Request.Context(), userID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, expenses)
}

func (h *FinancialHandler) CreateExpense(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreateExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.Finance.CreateExpense(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, e)
}

func (h *FinancialHandler) UpdateExpenseStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Finance.UpdateExpenseStatus(c.Request.Context(), userID, c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": req.Status})
}

func (h *FinancialHandler) DeleteExpense(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.Finance.DeleteExpense(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}
