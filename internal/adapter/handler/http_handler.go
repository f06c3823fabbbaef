package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/finops/yearend-accrual/internal/core/domain"
	"github.com/finops/yearend-accrual/internal/core/service"
)

type HTTPHandler struct {
	control    *service.ControlNumberService
	reference  *service.ReferenceService
	submission *service.SubmissionService
}

func NewHTTPHandler(control *service.ControlNumberService, reference *service.ReferenceService, submission *service.SubmissionService) *HTTPHandler {
	return &HTTPHandler{control: control, reference: reference, submission: submission}
}

// Routes registers every endpoint on the mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/control-number/current", h.CurrentControlNumber)
	mux.HandleFunc("/api/control-number/reserve", h.ReserveControlNumber)
	mux.HandleFunc("/api/companies", h.Companies)
	mux.HandleFunc("/api/suppliers", h.Suppliers)
	mux.HandleFunc("/api/glaccounts", h.GLAccounts)
	mux.HandleFunc("/api/profitcenters", h.ProfitCenters)
	mux.HandleFunc("/api/taxcodes", h.TaxCodes)
	mux.HandleFunc("/api/transactiontypes", h.TransactionTypes)
	mux.HandleFunc("/api/expenseclasses", h.ExpenseClasses)
	mux.HandleFunc("/api/setupdates", h.SetupDates)
	mux.HandleFunc("/api/submissions", h.SubmitForm)
}

type errorResponse struct {
	Error string `json:"error"`
}

type lineItemRequest struct {
	GLAccount       string `json:"glAccount"`
	ProfitCenter    string `json:"profitCenter"`
	TaxCode         string `json:"taxCode"`
	TransactionType string `json:"transactionType"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
}

type submitRequest struct {
	Email         string            `json:"email"`
	Company       string            `json:"company"`
	Supplier      string            `json:"supplier"`
	InvoiceNumber string            `json:"invoiceNumber"`
	ExpenseClass  string            `json:"expenseClass"`
	Lines         []lineItemRequest `json:"lines"`
}

type submitResponse struct {
	SubmissionID  string `json:"submissionId,omitempty"`
	ControlNumber string `json:"controlNumber,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) CurrentControlNumber(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	current, err := h.control.PeekCurrent(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read current control number"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"currentControlNumber": current})
}

// ReserveControlNumber consumes a number. Not idempotent: every call advances
// the counter, so clients call it at most once per submission attempt.
func (h *HTTPHandler) ReserveControlNumber(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reserved, err := h.control.Reserve(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to reserve control number"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reservedControlNumber": reserved})
}

func (h *HTTPHandler) Companies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.reference.Companies(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read companies"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"companies": emptyIfNil(companies)})
}

func (h *HTTPHandler) Suppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.reference.Suppliers(r.Context(), r.URL.Query().Get("q"), r.URL.Query().Get("company"))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read suppliers"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Supplier{"suppliers": emptyIfNil(suppliers)})
}

func (h *HTTPHandler) GLAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.reference.GLAccounts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read GL accounts"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.GLAccount{"glaccount": emptyIfNil(accounts)})
}

func (h *HTTPHandler) ProfitCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := h.reference.ProfitCenters(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read profit centers"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.ProfitCenter{"profitcenter": emptyIfNil(centers)})
}

func (h *HTTPHandler) TaxCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.reference.TaxCodes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read tax codes"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"taxcodes": emptyIfNil(codes)})
}

func (h *HTTPHandler) TransactionTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.reference.TransactionTypes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read transaction types"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"transactionTypes": emptyIfNil(types)})
}

func (h *HTTPHandler) ExpenseClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.reference.ExpenseClasses(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read expense classifications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"expenseClasses": emptyIfNil(classes)})
}

func (h *HTTPHandler) SetupDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.reference.SetupDates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "failed to read setup dates"})
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

func (h *HTTPHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: "invalid request body"})
		return
	}

	sub, err := req.toDomain()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: err.Error()})
		return
	}

	receipt, err := h.submission.Submit(r.Context(), sub)
	switch {
	case errors.Is(err, domain.ErrInvalidSubmission):
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: err.Error()})
	case errors.Is(err, service.ErrControlNumberUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, submitResponse{
			Error: "could not reserve a control number, please retry",
		})
	case errors.Is(err, service.ErrLedgerAppend):
		// The reserved number is burned; return it so the user can report it.
		writeJSON(w, http.StatusBadGateway, submitResponse{
			SubmissionID:  receipt.SubmissionID,
			ControlNumber: receipt.ControlNumber,
			Error:         "submission could not be saved, do not resubmit without checking with finance",
		})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, submitResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusOK, submitResponse{
			SubmissionID:  receipt.SubmissionID,
			ControlNumber: receipt.ControlNumber,
		})
	}
}

func (r submitRequest) toDomain() (domain.Submission, error) {
	sub := domain.Submission{
		Email:         r.Email,
		Company:       r.Company,
		Supplier:      r.Supplier,
		InvoiceNumber: r.InvoiceNumber,
		ExpenseClass:  r.ExpenseClass,
	}
	for _, line := range r.Lines {
		amount, err := decimal.NewFromString(line.Amount)
		if err != nil {
			return domain.Submission{}, errors.New("invalid line amount: " + line.Amount)
		}
		sub.Lines = append(sub.Lines, domain.LineItem{
			GLAccount:       line.GLAccount,
			ProfitCenter:    line.ProfitCenter,
			TaxCode:         line.TaxCode,
			TransactionType: line.TransactionType,
			Description:     line.Description,
			Amount:          amount,
		})
	}
	return sub, nil
}

func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
