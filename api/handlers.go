package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/export"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/types"
)

// ──────────────────────────────────────────────────
// Configuration
// ──────────────────────────────────────────────────

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.dues.Config(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var o fee.Overrides
	if !s.decode(w, r, &o) {
		return
	}
	if err := s.dues.SetConfig(r.Context(), &o); err != nil {
		s.fail(w, r, err)
		return
	}
	s.handleGetConfig(w, r)
}

// ──────────────────────────────────────────────────
// Generation and closing
// ──────────────────────────────────────────────────

type generateRangeRequest struct {
	From string `json:"from" validate:"required,period"`
}

type closeRequest struct {
	Actor string `json:"actor" validate:"notblank"`
}

func (s *Server) handleGeneratePeriod(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report, err := s.dues.GenerateForPeriod(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGenerateRange(w http.ResponseWriter, r *http.Request) {
	var req generateRangeRequest
	if !s.decode(w, r, &req) {
		return
	}
	from, err := parsePeriod(req.From)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report, err := s.dues.GenerateRange(r.Context(), from)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req closeRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.dues.ClosePeriod(r.Context(), p, strings.TrimSpace(req.Actor))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ──────────────────────────────────────────────────
// Charges and payments
// ──────────────────────────────────────────────────

type paymentRequest struct {
	Amount   types.Money       `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type amountDueResponse struct {
	ChargeID  dues.ChargeID `json:"charge_id"`
	AmountDue types.Money   `json:"amount_due"`
}

func (s *Server) handleListCharges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := charge.ListOpts{MemberID: q.Get("member")}

	var err error
	if opts.From, err = optionalPeriod(q.Get("from")); err != nil {
		s.fail(w, r, err)
		return
	}
	if opts.To, err = optionalPeriod(q.Get("to")); err != nil {
		s.fail(w, r, err)
		return
	}
	for _, st := range q["status"] {
		status := charge.Status(st)
		if !status.Valid() {
			s.fail(w, r, dues.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", st)})
			return
		}
		opts.Status = append(opts.Status, status)
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, r, dues.ValidationError{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		opts.Limit = n
	}

	charges, err := s.dues.ListCharges(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if charges == nil {
		charges = []*charge.Charge{}
	}
	writeJSON(w, http.StatusOK, charges)
}

func (s *Server) chargeID(w http.ResponseWriter, r *http.Request) (dues.ChargeID, bool) {
	cid, err := dues.ParseChargeID(chi.URLParam(r, "chargeID"))
	if err != nil {
		s.fail(w, r, dues.ValidationError{Field: "charge_id", Message: err.Error()})
		return cid, false
	}
	return cid, true
}

func (s *Server) handleGetCharge(w http.ResponseWriter, r *http.Request) {
	cid, ok := s.chargeID(w, r)
	if !ok {
		return
	}
	c, err := s.dues.GetCharge(r.Context(), cid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAmountDue(w http.ResponseWriter, r *http.Request) {
	cid, ok := s.chargeID(w, r)
	if !ok {
		return
	}
	due, err := s.dues.AmountDue(r.Context(), cid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountDueResponse{ChargeID: cid, AmountDue: due})
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	cid, ok := s.chargeID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.dues.RecordPayment(r.Context(), cid, req.Amount, req.Metadata)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ──────────────────────────────────────────────────
// Reporting
// ──────────────────────────────────────────────────

func (s *Server) handleMemberSummary(w http.ResponseWriter, r *http.Request) {
	from, err := optionalPeriod(r.URL.Query().Get("from"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.dues.MemberSummary(r.Context(), chi.URLParam(r, "memberID"), from)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	from, err := optionalPeriod(r.URL.Query().Get("from"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ov, err := s.dues.PortfolioOverview(r.Context(), from)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleOverviewExport(w http.ResponseWriter, r *http.Request) {
	from, err := optionalPeriod(r.URL.Query().Get("from"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ov, err := s.dues.PortfolioOverview(r.Context(), from)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	charges, err := s.dues.ListCharges(r.Context(), charge.ListOpts{From: ov.From, To: ov.To})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := export.BuildOverviewXLSX(ov, charges)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="dues-overview-%s.xlsx"`, ov.To))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
