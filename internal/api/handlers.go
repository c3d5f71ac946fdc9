package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/jordanhubbard/inframon/internal/audit"
	"github.com/jordanhubbard/inframon/internal/datastore"
	"github.com/jordanhubbard/inframon/internal/temporal/workflows"
)

func (s *Server) handleEquipment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	inventory, err := s.store.LoadInventory()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, inventory)
}

func (s *Server) handleEquipmentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := s.extractID(r.URL.Path, "/api/v1/equipment")
	inventory, err := s.store.LoadInventory()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, e := range inventory {
		if e.ID == id {
			s.respondJSON(w, http.StatusOK, e)
			return
		}
	}
	s.respondError(w, http.StatusNotFound, "equipment not found")
}

func (s *Server) handleHealthMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metrics, err := s.store.LoadHealthMetrics()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleLifeExpectancy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	life, err := s.store.LoadLifeExpectancy()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, life)
}

// FleetItem is one equipment row joined with its health metric and life
// expectancy reference data.
type FleetItem struct {
	datastore.Equipment
	HealthScore       float64 `json:"health_score"`
	HealthStatus      string  `json:"health_status,omitempty"`
	AgeYears          float64 `json:"age_years"`
	ExpectedLifeYears int     `json:"expected_life_years,omitempty"`
	RemainingLife     float64 `json:"remaining_life_years"`
	LifePercentage    float64 `json:"life_percentage"`
	LifecycleStatus   string  `json:"lifecycle_status"`
	ContractDaysLeft  int     `json:"contract_days_left"`
	ContractStatus    string  `json:"contract_status"`
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fleet, err := s.buildFleet()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, fleet)
}

// FleetSummary aggregates the fleet for the dashboard overview.
type FleetSummary struct {
	TotalDevices      int            `json:"total_devices"`
	ByStatus          map[string]int `json:"by_status"`
	BySite            map[string]int `json:"by_site"`
	AverageHealth     float64        `json:"average_health_score"`
	AlertsBySeverity  map[string]int `json:"alerts_by_severity"`
	ContractsExpired  int            `json:"contracts_expired"`
	LifecycleCritical int            `json:"lifecycle_critical"`
}

func (s *Server) handleFleetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fleet, err := s.buildFleet()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summary := FleetSummary{
		ByStatus:         map[string]int{},
		BySite:           map[string]int{},
		AlertsBySeverity: map[string]int{},
	}
	var healthTotal float64
	for _, item := range fleet {
		summary.TotalDevices++
		summary.ByStatus[item.Status]++
		summary.BySite[item.Site]++
		healthTotal += item.HealthScore
		for _, alert := range item.Alerts {
			summary.AlertsBySeverity[alert.Severity]++
		}
		if item.ContractStatus == "Expired" {
			summary.ContractsExpired++
		}
		if item.LifecycleStatus == "Critical" {
			summary.LifecycleCritical++
		}
	}
	if summary.TotalDevices > 0 {
		summary.AverageHealth = healthTotal / float64(summary.TotalDevices)
	}

	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) buildFleet() ([]FleetItem, error) {
	inventory, err := s.store.LoadInventory()
	if err != nil {
		return nil, err
	}
	health, err := s.store.LoadHealthMetrics()
	if err != nil {
		return nil, err
	}
	life, err := s.store.LoadLifeExpectancy()
	if err != nil {
		return nil, err
	}

	healthByID := make(map[string]datastore.HealthMetric, len(health))
	for _, m := range health {
		healthByID[m.EquipmentID] = m
	}
	lifeByModel := make(map[string]datastore.LifeExpectancy, len(life))
	for _, l := range life {
		lifeByModel[l.Model] = l
	}

	now := time.Now()
	fleet := make([]FleetItem, 0, len(inventory))
	for _, e := range inventory {
		item := FleetItem{Equipment: e}

		if m, ok := healthByID[e.ID]; ok {
			item.HealthScore = m.HealthScore
			item.HealthStatus = m.Status
		}

		item.AgeYears = equipmentAgeYears(e.InstallDate, now)
		if l, ok := lifeByModel[e.Model]; ok {
			item.ExpectedLifeYears = l.ExpectedLifeYears
			item.RemainingLife = remainingLifeYears(item.AgeYears, float64(l.ExpectedLifeYears))
			item.LifePercentage = lifePercentage(item.AgeYears, float64(l.ExpectedLifeYears))
			item.LifecycleStatus = lifecycleStatus(item.LifePercentage)
		}

		item.ContractDaysLeft = daysUntil(e.ContractExpiry, now)
		item.ContractStatus = contractStatus(item.ContractDaysLeft)

		fleet = append(fleet, item)
	}
	return fleet, nil
}

// handleWorkflow routes /api/v1/workflows/<id> to the query proxy and
// /api/v1/workflows/<id>/transitions to the audit trail.
func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if strings.HasSuffix(r.URL.Path, "/transitions") {
		s.handleWorkflowTransitions(w, r)
		return
	}
	s.handleWorkflowStatus(w, r)
}

// handleWorkflowTransitions serves the recorded status transitions for one
// workflow from the audit trail.
func (s *Server) handleWorkflowTransitions(w http.ResponseWriter, r *http.Request) {
	if s.trail == nil || !s.trail.Enabled() {
		s.respondError(w, http.StatusNotFound, "audit trail is not enabled")
		return
	}

	workflowID := s.extractID(r.URL.Path, "/api/v1/workflows")
	if workflowID == "" {
		s.respondError(w, http.StatusBadRequest, "missing workflow id")
		return
	}

	transitions, err := s.trail.RecentTransitions(workflowID, 50)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if transitions == nil {
		transitions = []audit.Transition{}
	}
	s.respondJSON(w, http.StatusOK, transitions)
}

// handleWorkflowStatus proxies the standard queries into a running repair
// workflow. Each query degrades independently: a failed query reports
// "Unknown" rather than failing the whole response.
func (s *Server) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	if s.temporal == nil {
		s.respondError(w, http.StatusServiceUnavailable, "workflow engine not connected")
		return
	}

	workflowID := s.extractID(r.URL.Path, "/api/v1/workflows")
	if workflowID == "" {
		s.respondError(w, http.StatusBadRequest, "missing workflow id")
		return
	}

	ctx := r.Context()
	result := map[string]interface{}{
		"workflow_id": workflowID,
		"status":      "Unknown",
		"planned":     false,
		"approved":    false,
	}

	if v, err := s.temporal.QueryWorkflow(ctx, workflowID, "", workflows.QueryGetRepairStatus); err == nil {
		var status string
		if v.Get(&status) == nil {
			result["status"] = status
		}
	}
	if v, err := s.temporal.QueryWorkflow(ctx, workflowID, "", workflows.QueryIsRepairPlanned); err == nil {
		var planned bool
		if v.Get(&planned) == nil {
			result["planned"] = planned
		}
	}
	if v, err := s.temporal.QueryWorkflow(ctx, workflowID, "", workflows.QueryIsRepairApproved); err == nil {
		var approved bool
		if v.Get(&approved) == nil {
			result["approved"] = approved
		}
	}
	if v, err := s.temporal.QueryWorkflow(ctx, workflowID, "", workflows.QueryGetProblemsConfidenceScore); err == nil {
		var score float64
		if v.Get(&score) == nil {
			result["problems_confidence_score"] = score
		}
	}

	s.respondJSON(w, http.StatusOK, result)
}

// Lifecycle math mirrored from the dashboard's derived columns.

func equipmentAgeYears(installDate string, now time.Time) float64 {
	t, err := time.Parse("2006-01-02", installDate)
	if err != nil {
		return 0
	}
	return float64(int(now.Sub(t).Hours()/24)) / 365.25
}

func remainingLifeYears(age, expected float64) float64 {
	if expected-age < 0 {
		return 0
	}
	return expected - age
}

func lifePercentage(age, expected float64) float64 {
	if expected == 0 {
		return 100
	}
	pct := age / expected * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func lifecycleStatus(pct float64) string {
	switch {
	case pct >= 90:
		return "Critical"
	case pct >= 75:
		return "Warning"
	default:
		return "Good"
	}
}

func daysUntil(date string, now time.Time) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return int(t.Sub(now).Hours() / 24)
}

func contractStatus(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return "Expired"
	case daysLeft < 30:
		return "Expiring Soon"
	case daysLeft < 90:
		return "Warning"
	default:
		return "Active"
	}
}
