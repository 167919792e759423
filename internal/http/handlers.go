package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/CyberRaas/WealthWise-sub002/internal/auth"
	"github.com/CyberRaas/WealthWise-sub002/internal/core"
	"github.com/CyberRaas/WealthWise-sub002/internal/services"
)

type settlementResponse struct {
	ID            uuid.UUID  `json:"id"`
	GroupID       uuid.UUID  `json:"group_id"`
	From          uuid.UUID  `json:"from"`
	To            uuid.UUID  `json:"to"`
	Amount        float64    `json:"amount"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Status        string     `json:"status"`
	SettledAt     time.Time  `json:"settled_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

func toSettlementResponse(s core.Settlement) settlementResponse {
	return settlementResponse{
		ID:            s.ID,
		GroupID:       s.GroupID,
		From:          s.From,
		To:            s.To,
		Amount:        s.Amount.Float64(),
		PaymentMethod: s.PaymentMethod,
		Notes:         s.Notes,
		Status:        string(s.Status),
		SettledAt:     s.SettledAt,
		ConfirmedAt:   s.ConfirmedAt,
	}
}

type balanceResponse struct {
	MemberID uuid.UUID `json:"member_id"`
	Balance  float64   `json:"balance"`
	Paid     float64   `json:"paid"`
	Owes     float64   `json:"owes"`
}

type transactionResponse struct {
	From   uuid.UUID `json:"from"`
	To     uuid.UUID `json:"to"`
	Amount float64   `json:"amount"`
}

type summaryResponse struct {
	Balances     []balanceResponse     `json:"balances"`
	Transactions []transactionResponse `json:"transactions"`
	Stats        struct {
		TotalExpenses      float64 `json:"total_expenses"`
		TotalSettled       float64 `json:"total_settled"`
		TotalOwed          float64 `json:"total_owed"`
		ConfirmedCount     int     `json:"confirmed_count"`
		TransactionsNeeded int     `json:"transactions_needed"`
		IsSettled          bool    `json:"is_settled"`
	} `json:"stats"`
}

func toTransactionResponses(plan []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(plan))
	for i, t := range plan {
		out[i] = transactionResponse{From: t.From, To: t.To, Amount: t.Amount.Float64()}
	}
	return out
}

func toSummaryResponse(s core.BalanceSummary) summaryResponse {
	var resp summaryResponse
	resp.Balances = make([]balanceResponse, len(s.Balances))
	for i, b := range s.Balances {
		resp.Balances[i] = balanceResponse{
			MemberID: b.MemberID,
			Balance:  b.Balance.Float64(),
			Paid:     b.Paid.Float64(),
			Owes:     b.Owes.Float64(),
		}
	}
	resp.Transactions = toTransactionResponses(s.Transactions)
	resp.Stats.TotalExpenses = s.Stats.TotalExpenses.Float64()
	resp.Stats.TotalSettled = s.Stats.TotalSettled.Float64()
	resp.Stats.TotalOwed = s.Stats.TotalOwed.Float64()
	resp.Stats.ConfirmedCount = s.Stats.ConfirmedCount
	resp.Stats.TransactionsNeeded = s.Stats.TransactionsNeeded
	resp.Stats.IsSettled = s.Stats.IsSettled
	return resp
}

// memberRef attaches the roster name to a member id so clients don't need a
// second lookup to render the view.
type memberRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type namedBalanceResponse struct {
	Member  memberRef `json:"member"`
	Balance float64   `json:"balance"`
	Paid    float64   `json:"paid"`
	Owes    float64   `json:"owes"`
}

type namedTransactionResponse struct {
	From   memberRef `json:"from"`
	To     memberRef `json:"to"`
	Amount float64   `json:"amount"`
}

type settlementOverviewResponse struct {
	Settlements  []settlementResponse       `json:"settlements"`
	Balances     []namedBalanceResponse     `json:"balances"`
	Transactions []namedTransactionResponse `json:"transactions"`
}

func toOverviewResponse(o services.SettlementOverview) settlementOverviewResponse {
	names := make(map[uuid.UUID]string, len(o.Members))
	for _, m := range o.Members {
		names[m.ID] = m.Name
	}
	ref := func(id uuid.UUID) memberRef {
		return memberRef{ID: id, Name: names[id]}
	}

	resp := settlementOverviewResponse{
		Settlements:  make([]settlementResponse, len(o.Settlements)),
		Balances:     make([]namedBalanceResponse, len(o.Summary.Balances)),
		Transactions: make([]namedTransactionResponse, len(o.Summary.Transactions)),
	}
	for i, st := range o.Settlements {
		resp.Settlements[i] = toSettlementResponse(st)
	}
	for i, b := range o.Summary.Balances {
		resp.Balances[i] = namedBalanceResponse{
			Member:  ref(b.MemberID),
			Balance: b.Balance.Float64(),
			Paid:    b.Paid.Float64(),
			Owes:    b.Owes.Float64(),
		}
	}
	for i, t := range o.Summary.Transactions {
		resp.Transactions[i] = namedTransactionResponse{
			From:   ref(t.From),
			To:     ref(t.To),
			Amount: t.Amount.Float64(),
		}
	}
	return resp
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", key, raw)
	}
	return id, nil
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	// simplified=true keeps the settlement history and adds the derived
	// balances and the minimal payment plan, with member names attached.
	if r.URL.Query().Get("simplified") == "true" {
		overview, err := s.service.SettlementOverview(r.Context(), groupID, auth.MemberID(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOverviewResponse(overview))
		return
	}

	settlements, err := s.service.GetSettlements(r.Context(), groupID, auth.MemberID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]settlementResponse, len(settlements))
	for i, st := range settlements {
		out[i] = toSettlementResponse(st)
	}
	writeJSON(w, http.StatusOK, out)
}

type proposeSettlementRequest struct {
	To            uuid.UUID `json:"to"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	Notes         string    `json:"notes"`
}

func (s *Server) handleProposeSettlement(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req proposeSettlementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	requester := auth.MemberID(r.Context())
	st, err := s.service.ProposeSettlement(r.Context(), requester, services.ProposeSettlementInput{
		GroupID:       groupID,
		From:          requester,
		To:            req.To,
		Amount:        core.MoneyFromFloat(req.Amount),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSettlementResponse(st))
}

type respondSettlementRequest struct {
	Accept bool `json:"accept"`
}

func (s *Server) handleRespondSettlement(w http.ResponseWriter, r *http.Request) {
	settlementID, err := pathUUID(r, "settlementID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req respondSettlementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	st, err := s.service.RespondToSettlement(r.Context(), settlementID, auth.MemberID(r.Context()), req.Accept)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettlementResponse(st))
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	summary, err := s.service.BalanceSummary(r.Context(), groupID, auth.MemberID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

type debtsResponse struct {
	MemberID  uuid.UUID             `json:"member_id"`
	Owes      []transactionResponse `json:"owes"`
	Owed      []transactionResponse `json:"owed"`
	TotalOwes float64               `json:"total_owes"`
	TotalOwed float64               `json:"total_owed"`
}

func (s *Server) handleDebts(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	view, err := s.service.MemberDebts(r.Context(), groupID, auth.MemberID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, debtsResponse{
		MemberID:  view.MemberID,
		Owes:      toTransactionResponses(view.Owes),
		Owed:      toTransactionResponses(view.Owed),
		TotalOwes: view.TotalOwes.Float64(),
		TotalOwed: view.TotalOwed.Float64(),
	})
}

type createGroupRequest struct {
	Name    string `json:"name"`
	Members []struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	} `json:"members"`
}

type groupResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Members []struct {
		ID     uuid.UUID `json:"id"`
		Name   string    `json:"name"`
		Status string    `json:"status"`
	} `json:"members"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	g := core.Group{Name: req.Name}
	for _, m := range req.Members {
		id := m.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		g.Members = append(g.Members, core.Member{ID: id, Name: m.Name, Status: core.MemberActive})
	}

	created, err := s.service.CreateGroup(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := groupResponse{ID: created.ID, Name: created.Name}
	for _, m := range created.Members {
		resp.Members = append(resp.Members, struct {
			ID     uuid.UUID `json:"id"`
			Name   string    `json:"name"`
			Status string    `json:"status"`
		}{ID: m.ID, Name: m.Name, Status: string(m.Status)})
	}
	writeJSON(w, http.StatusCreated, resp)
}

type addExpenseRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Splits      []struct {
		MemberID uuid.UUID `json:"member_id"`
		Amount   float64   `json:"amount"`
	} `json:"splits"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req addExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	e := core.Expense{
		GroupID:     groupID,
		Description: req.Description,
		Amount:      core.MoneyFromFloat(req.Amount),
		PaidBy:      auth.MemberID(r.Context()),
	}
	for _, sp := range req.Splits {
		e.Splits = append(e.Splits, core.Split{
			MemberID: sp.MemberID,
			Amount:   core.MoneyFromFloat(sp.Amount),
		})
	}

	created, err := s.service.AddExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          created.ID,
		"group_id":    created.GroupID,
		"description": created.Description,
		"amount":      created.Amount.Float64(),
		"paid_by":     created.PaidBy,
	})
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	expenseID, err := pathUUID(r, "expenseID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.service.RemoveExpense(r.Context(), groupID, expenseID, auth.MemberID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
