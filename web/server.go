// ABOUTME: Web UI server with embedded templates
// ABOUTME: Provides a read-only view of the contract book at localhost:8080
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/logger"
	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/viz"
)

//go:embed templates/*.html
var templatesFS embed.FS

const listLimit = 200

type Server struct {
	svc       *contracts.Service
	log       *logger.Logger
	templates *template.Template
	generator *viz.GraphGenerator
}

// contractRow is a contract with its party names resolved for display.
type contractRow struct {
	models.Contract
	BuyerName  string
	SellerName string
}

func NewServer(svc *contracts.Service, log *logger.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"date": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Format("2006-01-02")
		},
		"tonnes": func(t *float64) string {
			if t == nil {
				return "-"
			}
			return fmt.Sprintf("%.2f", *t)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"lower": func(s models.Status) string {
			return strings.ToLower(string(s))
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		svc:       svc,
		log:       log,
		templates: tmpl,
		generator: viz.NewGraphGenerator(svc),
	}, nil
}

// Handler returns the routes served by the web UI.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /contracts", s.handleContracts)
	mux.HandleFunc("GET /contracts/{ref}", s.handleContractDetail)
	mux.HandleFunc("GET /buyers", s.handleParties(models.PartyBuyer))
	mux.HandleFunc("GET /sellers", s.handleParties(models.PartySeller))
	mux.HandleFunc("GET /graph", s.handleGraph)
	return mux
}

// Start serves the UI on port until ctx is done.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := viz.GenerateDashboardStats(r.Context(), s.svc, time.Now())
	if err != nil {
		s.serverError(w, err)
		return
	}

	data := map[string]interface{}{
		"Stats":           stats,
		"Title":           "Dashboard",
		"ContentTemplate": "dashboard-content",
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template render failed", "template", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.log.Error("web request failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleContracts(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	found, err := s.svc.Find(r.Context(), models.ContractFilter{
		Status: status,
		Season: r.URL.Query().Get("season"),
		Limit:  listLimit,
	})
	if err != nil {
		s.serverError(w, err)
		return
	}

	rows := make([]contractRow, len(found))
	for i := range found {
		rows[i] = s.row(r.Context(), &found[i])
	}

	data := map[string]interface{}{
		"Contracts":       rows,
		"Statuses":        models.Statuses,
		"Selected":        status,
		"Title":           "Contracts",
		"ContentTemplate": "contracts-content",
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleContractDetail(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Lookup(r.Context(), r.PathValue("ref"))
	if errors.Is(err, models.ErrContractNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}

	var missing []models.Field
	if c.Status == models.StatusDraft {
		candidate := *c
		candidate.Status = models.StatusIncomplete
		missing = models.MissingRequiredFields(&candidate)
	}

	data := map[string]interface{}{
		"Contract":        s.row(r.Context(), c),
		"Missing":         missing,
		"Title":           "Contract " + c.Number(),
		"ContentTemplate": "contract-content",
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleParties(kind models.PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parties, err := s.svc.FindParties(r.Context(), kind, r.URL.Query().Get("q"), listLimit)
		if err != nil {
			s.serverError(w, err)
			return
		}

		title := "Buyers"
		if kind == models.PartySeller {
			title = "Sellers"
		}
		data := map[string]interface{}{
			"Parties":         parties,
			"Query":           r.URL.Query().Get("q"),
			"Title":           title,
			"ContentTemplate": "parties-content",
		}
		s.renderTemplate(w, "layout.html", data)
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	filter := models.ContractFilter{Status: models.Status(r.URL.Query().Get("status"))}
	for param, dst := range map[string]**uuid.UUID{"buyer": &filter.BuyerID, "seller": &filter.SellerID} {
		if v := r.URL.Query().Get(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				http.Error(w, "invalid "+param+" ID", http.StatusBadRequest)
				return
			}
			*dst = &id
		}
	}

	dot, err := s.generator.GenerateContractGraph(r.Context(), filter)
	if err != nil {
		s.serverError(w, err)
		return
	}

	data := map[string]interface{}{
		"DOT":             dot,
		"Title":           "Contract Graph",
		"ContentTemplate": "graph-content",
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) row(ctx context.Context, c *models.Contract) contractRow {
	return contractRow{
		Contract:   *c,
		BuyerName:  s.svc.PartyName(ctx, models.PartyBuyer, c.BuyerID),
		SellerName: s.svc.PartyName(ctx, models.PartySeller, c.SellerID),
	}
}
