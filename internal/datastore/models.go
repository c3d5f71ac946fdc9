package datastore

// Equipment is a single piece of monitored infrastructure hardware as it
// appears in infrastructure_inventory.json.
type Equipment struct {
	ID                   string                 `json:"id"`
	Model                string                 `json:"model"`
	Vendor               string                 `json:"vendor"`
	Type                 string                 `json:"type"`
	Site                 string                 `json:"site"`
	Status               string                 `json:"status"` // Operational | Degraded | Down
	TemperatureCelsius   float64                `json:"temperature_celsius"`
	CPUUtilization       float64                `json:"cpu_utilization_percent"`
	MemoryUtilization    float64                `json:"memory_utilization_percent"`
	UptimeDays           float64                `json:"uptime_days"`
	FirmwareVersion      string                 `json:"firmware_version"`
	ConfigurationVersion string                 `json:"configuration_version,omitempty"`
	InstallDate          string                 `json:"install_date"`
	LastMaintenance      string                 `json:"last_maintenance"`
	MaintenanceWindow    string                 `json:"maintenance_window,omitempty"`
	ContractExpiry       string                 `json:"maintenance_contract_expiry,omitempty"`
	WarrantyStatus       string                 `json:"warranty_status,omitempty"`
	WarrantyExpiration   string                 `json:"warranty_expiration,omitempty"`
	Alerts               []Alert                `json:"alerts"`
	ScheduledMaintenance []ScheduledMaintenance `json:"scheduled_maintenance,omitempty"`
	ContractInfo         *ContractInfo          `json:"contract_info,omitempty"`
}

// Alert is a single alert raised against a piece of equipment.
type Alert struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"` // critical | warning | info
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// ScheduledMaintenance is a pending maintenance window for a device.
type ScheduledMaintenance struct {
	Type                   string `json:"type"`
	ScheduledDate          string `json:"scheduled_date"`
	Priority               string `json:"priority"`
	Status                 string `json:"status"`
	CreatedDate            string `json:"created_date"`
	EstimatedDurationHours int    `json:"estimated_duration_hours"`
}

// ContractInfo describes the support contract attached to a device.
type ContractInfo struct {
	Type           string `json:"type"`
	Vendor         string `json:"vendor"`
	StartDate      string `json:"start_date"`
	ExpirationDate string `json:"expiration_date"`
	Duration       string `json:"duration"`
	Status         string `json:"status"`
	RenewalDate    string `json:"renewal_date,omitempty"`
}

// Reading is one time-series sample for a device.
type Reading struct {
	Timestamp         string  `json:"timestamp"`
	CPUUtilization    float64 `json:"cpu_utilization_percent"`
	MemoryUtilization float64 `json:"memory_utilization_percent"`
	TemperatureC      float64 `json:"temperature_celsius"`
	PacketLossPercent float64 `json:"packet_loss_percent"`
	LatencyMs         float64 `json:"latency_ms"`
}

// MaintenanceNote records a maintenance-related event on a health metric.
type MaintenanceNote struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Details   string `json:"details"`
	Priority  string `json:"priority,omitempty"`
	Status    string `json:"status"`
}

// ContractNote records a contract-related event on a health metric.
type ContractNote struct {
	Timestamp    string `json:"timestamp"`
	Type         string `json:"type"`
	ContractType string `json:"contract_type"`
	Vendor       string `json:"vendor"`
	Duration     string `json:"duration"`
	Status       string `json:"status"`
}

// HealthMetric is the time-series health record for one equipment ID as it
// appears in health_metrics.json. RecentReadings is newest-first and capped
// at MaxReadings.
type HealthMetric struct {
	EquipmentID       string            `json:"equipment_id"`
	HealthScore       float64           `json:"health_score"`
	Status            string            `json:"status"`
	RecentReadings    []Reading         `json:"recent_readings"`
	MaintenanceNotes  []MaintenanceNote `json:"maintenance_notes,omitempty"`
	ContractNotes     []ContractNote    `json:"contract_notes,omitempty"`
	NextMaintenance   string            `json:"next_maintenance,omitempty"`
	MaintenanceStatus string            `json:"maintenance_status,omitempty"`
	ContractStatus    string            `json:"contract_status,omitempty"`
	WarrantyStatus    string            `json:"warranty_status,omitempty"`
}

// LifeExpectancy is static reference data for one equipment model.
type LifeExpectancy struct {
	Model             string `json:"model"`
	Type              string `json:"type"`
	Vendor            string `json:"vendor"`
	ExpectedLifeYears int    `json:"expected_life_years"`
}

const (
	// MaxReadings caps the recent_readings list; the oldest reading is
	// evicted when a new one is pushed to the front.
	MaxReadings = 10

	// MaxMaintenanceNotes caps the maintenance_notes list.
	MaxMaintenanceNotes = 5

	// MaxContractNotes caps the contract_notes list.
	MaxContractNotes = 3
)

// Equipment status literals.
const (
	StatusOperational = "Operational"
	StatusDegraded    = "Degraded"
	StatusDown        = "Down"
)

// PushReading inserts r at the front of the readings list and truncates to
// MaxReadings.
func (m *HealthMetric) PushReading(r Reading) {
	m.RecentReadings = append([]Reading{r}, m.RecentReadings...)
	if len(m.RecentReadings) > MaxReadings {
		m.RecentReadings = m.RecentReadings[:MaxReadings]
	}
}

// AddMaintenanceNote appends a note, keeping only the most recent
// MaxMaintenanceNotes entries.
func (m *HealthMetric) AddMaintenanceNote(n MaintenanceNote) {
	m.MaintenanceNotes = append(m.MaintenanceNotes, n)
	if len(m.MaintenanceNotes) > MaxMaintenanceNotes {
		m.MaintenanceNotes = m.MaintenanceNotes[len(m.MaintenanceNotes)-MaxMaintenanceNotes:]
	}
}

// AddContractNote appends a note, keeping only the most recent
// MaxContractNotes entries.
func (m *HealthMetric) AddContractNote(n ContractNote) {
	m.ContractNotes = append(m.ContractNotes, n)
	if len(m.ContractNotes) > MaxContractNotes {
		m.ContractNotes = m.ContractNotes[len(m.ContractNotes)-MaxContractNotes:]
	}
}
