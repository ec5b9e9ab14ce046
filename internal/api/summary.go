package api

import (
	"net/http"

	"github.com/Veraticus/house-money/internal/model"
)

type tagSpendingResponse struct {
	Tag   string `json:"tag"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

type monthlyTotalResponse struct {
	Month    string `json:"month"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Net      string `json:"net"`
	Count    int    `json:"count"`
}

type summaryResponse struct {
	ByTag   []tagSpendingResponse  `json:"by_tag"`
	Monthly []monthlyTotalResponse `json:"monthly"`
}

func toSummaryResponse(byTag []model.TagSpending, monthly []model.MonthlyTotal) summaryResponse {
	resp := summaryResponse{
		ByTag:   make([]tagSpendingResponse, 0, len(byTag)),
		Monthly: make([]monthlyTotalResponse, 0, len(monthly)),
	}
	for _, s := range byTag {
		resp.ByTag = append(resp.ByTag, tagSpendingResponse{Tag: s.Tag, Total: s.Total.StringFixed(2), Count: s.Count})
	}
	for _, m := range monthly {
		resp.Monthly = append(resp.Monthly, monthlyTotalResponse{
			Month:    m.Month,
			Income:   m.Income.StringFixed(2),
			Expenses: m.Expenses.StringFixed(2),
			Net:      m.Net().StringFixed(2),
			Count:    m.Count,
		})
	}
	return resp
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	start, err := optionalDate(v.Get("start"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := optionalDate(v.Get("end"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	byTag, err := s.store.SpendingByTag(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	monthly, err := s.store.MonthlyTotals(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(byTag, monthly))
}
