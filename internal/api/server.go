package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stratsim/internal/campaign"
	"stratsim/internal/config"
	"stratsim/internal/portfolio"
	"stratsim/internal/report"
	"stratsim/internal/sim"
	"stratsim/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg config.APIConfig
	log *slog.Logger
	sim *sim.Service
	mux *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, simSvc *sim.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg: cfg,
		log: logger,
		sim: simSvc,
		mux: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/campaigns", s.handleCreateCampaign)
		r.Get("/campaigns", s.handleListCampaigns)
		r.Get("/campaigns/{id}", s.handleCampaignState)
		r.Delete("/campaigns/{id}", s.handleDeleteCampaign)
		r.Post("/campaigns/{id}/advance", s.handleAdvanceCampaign)
		r.Get("/campaigns/{id}/history", s.handleCampaignHistory)
		r.Get("/campaigns/{id}/export", s.handleCampaignExport)
		r.Post("/campaigns/{id}/autopilot", s.handleCampaignAutopilot)

		r.Post("/portfolios", s.handleCreatePortfolio)
		r.Get("/portfolios", s.handleListPortfolios)
		r.Get("/portfolios/{id}", s.handlePortfolioState)
		r.Post("/portfolios/{id}/advance", s.handleAdvancePortfolio)
		r.Get("/portfolios/{id}/history", s.handlePortfolioHistory)
		r.Get("/portfolios/{id}/export", s.handlePortfolioExport)
	})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in sim.CreateCampaignInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.sim.CreateCampaign(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaignView(row))
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	rows, err := s.sim.ListCampaigns(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, campaignView(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": out})
}

func (s *Server) handleCampaignState(w http.ResponseWriter, r *http.Request) {
	row, err := s.sim.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignView(row))
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.sim.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdvanceCampaign(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Turns int `json:"turns"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.sim.AdvanceCampaign(r.Context(), chi.URLParam(r, "id"), in.Turns)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignView(row))
}

func (s *Server) handleCampaignHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.sim.CampaignHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": records})
}

func (s *Server) handleCampaignExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := s.sim.CampaignHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json":
		var buf bytes.Buffer
		if err := report.WriteCampaignJSON(&buf, records); err != nil {
			writeDomainError(w, err)
			return
		}
		sendAttachment(w, report.CampaignFilename(id, "json"), "application/json", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := report.WriteCampaignXLSX(&buf, records); err != nil {
			writeDomainError(w, err)
			return
		}
		sendAttachment(w, report.CampaignFilename(id, "xlsx"),
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export format %q", format))
	}
}

func (s *Server) handleCampaignAutopilot(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.sim.SetCampaignAutopilot(r.Context(), chi.URLParam(r, "id"), in.Enabled); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "autopilot": in.Enabled})
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var in sim.CreatePortfolioInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.sim.CreatePortfolio(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, portfolioView(row))
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	rows, err := s.sim.ListPortfolios(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, portfolioView(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": out})
}

func (s *Server) handlePortfolioState(w http.ResponseWriter, r *http.Request) {
	row, err := s.sim.GetPortfolio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolioView(row))
}

func (s *Server) handleAdvancePortfolio(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Turns int `json:"turns"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.sim.AdvancePortfolio(r.Context(), chi.URLParam(r, "id"), in.Turns)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolioView(row))
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.sim.PortfolioHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": records})
}

func (s *Server) handlePortfolioExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := s.sim.PortfolioHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WritePortfolioJSON(&buf, records); err != nil {
		writeDomainError(w, err)
		return
	}
	sendAttachment(w, report.PortfolioFilename(id), "application/json", buf.Bytes())
}

func campaignView(row store.Campaign) map[string]any {
	return map[string]any{
		"id":        row.ID,
		"seed":      row.Seed,
		"autopilot": row.Autopilot,
		"state":     row.Snapshot.State,
	}
}

func portfolioView(row store.Portfolio) map[string]any {
	return map[string]any{
		"id":           row.ID,
		"seed":         row.Seed,
		"chess_ai":     row.ChessAI,
		"stance":       row.Stance,
		"alloc":        row.Alloc,
		"turn_limit":   row.TurnLimit,
		"turns_played": row.TurnsPlayed,
		"finished":     row.Finished,
		"book":         row.Book,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, campaign.ErrFinished), errors.Is(err, portfolio.ErrFinished):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, campaign.ErrInvalidTurns), errors.Is(err, portfolio.ErrInvalidTurns):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sim.ErrInvalidPersonality), errors.Is(err, sim.ErrInvalidStance):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrNoData):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func sendAttachment(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
