package tools

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanhubbard/inframon/internal/datastore"
)

// Args is the argument bundle for a tool invocation. equipment_id is
// mandatory for every tool; the remaining keys are tool-specific and
// individually defaulted when absent.
type Args map[string]interface{}

// EquipmentID extracts the mandatory equipment_id argument.
func (a Args) EquipmentID() (string, error) {
	id := a.String("equipment_id", "")
	if id == "" {
		return "", fmt.Errorf("tool arguments missing equipment_id")
	}
	return id, nil
}

// String returns the named argument as a string, or def when absent or not a
// string.
func (a Args) String(key, def string) string {
	if v, ok := a[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// Result is the outcome of a tool invocation.
type Result struct {
	Status  string `json:"status"` // "success" or "error"
	Message string `json:"message"`
}

func success(format string, args ...interface{}) *Result {
	return &Result{Status: "success", Message: fmt.Sprintf(format, args...)}
}

// Executor applies repair tools against the equipment data store. Each tool
// mutates the inventory (hard failure if the target device is absent), then
// best-effort updates the matching health metric with the tool's expected
// improvement profile.
type Executor struct {
	store datastore.Store
}

// NewExecutor creates an executor over the given store.
func NewExecutor(store datastore.Store) *Executor {
	return &Executor{store: store}
}

// Execute dispatches a tool invocation by kind.
func (e *Executor) Execute(kind Kind, args Args) (*Result, error) {
	switch kind {
	case RestartDevice:
		return e.restartDevice(args)
	case UpdateFirmware:
		return e.updateFirmware(args)
	case ReplaceHardware:
		return e.replaceHardware(args)
	case OptimizeConfiguration:
		return e.optimizeConfiguration(args)
	case ScheduleMaintenance:
		return e.scheduleMaintenance(args)
	case RenewContract:
		return e.renewContract(args)
	default:
		return nil, fmt.Errorf("unknown tool kind %q", kind)
	}
}

// mutateDevice applies fn to the device with the given ID inside the store's
// locked read-modify-write cycle, so concurrent tool executions cannot lose
// each other's updates. A missing device or an empty inventory is a
// data-integrity error: a repair action with no target cannot be verified.
func (e *Executor) mutateDevice(equipmentID string, fn func(*datastore.Equipment)) error {
	return e.store.UpdateInventory(func(inventory []datastore.Equipment) ([]datastore.Equipment, error) {
		if len(inventory) == 0 {
			return nil, fmt.Errorf("no devices found in infrastructure inventory")
		}
		for i := range inventory {
			if inventory[i].ID == equipmentID {
				fn(&inventory[i])
				return inventory, nil
			}
		}
		return nil, fmt.Errorf("device %s not found in infrastructure inventory", equipmentID)
	})
}

// errMetricNotFound abandons a health update from inside the locked cycle
// without writing the file back.
var errMetricNotFound = fmt.Errorf("health metric not found")

// mutateHealthMetric applies fn to the health metric for equipmentID inside
// the store's locked read-modify-write cycle. A missing record is a warning,
// not a failure: the inventory mutation has already committed and partial
// completion is acceptable here.
func (e *Executor) mutateHealthMetric(equipmentID string, fn func(*datastore.HealthMetric)) {
	err := e.store.UpdateHealthMetrics(func(metrics []datastore.HealthMetric) ([]datastore.HealthMetric, error) {
		for i := range metrics {
			if metrics[i].EquipmentID == equipmentID {
				fn(&metrics[i])
				return metrics, nil
			}
		}
		return nil, errMetricNotFound
	})
	if err == errMetricNotFound {
		log.Printf("[Tools] Equipment %s not found in health metrics, skipping health update", equipmentID)
	} else if err != nil {
		log.Printf("[Tools] Failed to update health metrics for %s: %v", equipmentID, err)
	}
}

func bumpHealthScore(m *datastore.HealthMetric, increment, cap float64) {
	m.HealthScore += increment
	if m.HealthScore > cap {
		m.HealthScore = cap
	}
}

// dropAlerts removes alerts whose type or message contains any of the given
// substrings (case-insensitive).
func dropAlerts(alerts []datastore.Alert, substrings ...string) []datastore.Alert {
	kept := alerts[:0]
	for _, alert := range alerts {
		text := strings.ToLower(alert.Type + " " + alert.Message)
		match := false
		for _, sub := range substrings {
			if strings.Contains(text, sub) {
				match = true
				break
			}
		}
		if !match {
			kept = append(kept, alert)
		}
	}
	return kept
}

func nowDate() string      { return time.Now().Format("2006-01-02") }
func nowTimestamp() string { return time.Now().UTC().Format("2006-01-02T15:04:05Z") }

func (e *Executor) restartDevice(args Args) (*Result, error) {
	equipmentID, err := args.EquipmentID()
	if err != nil {
		return nil, err
	}

	err = e.mutateDevice(equipmentID, func(d *datastore.Equipment) {
		d.Status = datastore.StatusOperational
		d.UptimeDays = 0
		d.LastMaintenance = nowDate()
	})
	if err != nil {
		return nil, err
	}

	e.mutateHealthMetric(equipmentID, func(m *datastore.HealthMetric) {
		m.PushReading(datastore.Reading{
			Timestamp:         nowTimestamp(),
			CPUUtilization:    15,
			MemoryUtilization: 30,
			TemperatureC:      42,
			PacketLossPercent: 0.05,
			LatencyMs:         2.5,
		})
		bumpHealthScore(m, 15, 95)
		m.Status = datastore.StatusOperational
	})

	return success("Device %s restarted successfully, status Operational, uptime reset", equipmentID), nil
}

func (e *Executor) updateFirmware(args Args) (*Result, error) {
	equipmentID, err := args.EquipmentID()
	if err != nil {
		return nil, err
	}
	version := args.String("firmware_version", "latest-stable")

	err = e.mutateDevice(equipmentID, func(d *datastore.Equipment) {
		d.FirmwareVersion = version
		d.LastMaintenance = nowDate()
		d.Alerts = dropAlerts(d.Alerts, "firmware", "version", "outdated")
	})
	if err != nil {
		return nil, err
	}

	e.mutateHealthMetric(equipmentID, func(m *datastore.HealthMetric) {
		m.PushReading(datastore.Reading{
			Timestamp:         nowTimestamp(),
			CPUUtilization:    18,
			MemoryUtilization: 28,
			TemperatureC:      40,
			PacketLossPercent: 0.02,
			LatencyMs:         2.2,
		})
		bumpHealthScore(m, 10, 96)
		m.Status = datastore.StatusOperational
	})

	return success("Firmware on device %s updated to %s", equipmentID, version), nil
}

func (e *Executor) replaceHardware(args Args) (*Result, error) {
	equipmentID, err := args.EquipmentID()
	if err != nil {
		return nil, err
	}
	component := args.String("component", "line card")
	replacement := args.String("replacement_part", "OEM replacement part")

	err = e.mutateDevice(equipmentID, func(d *datastore.Equipment) {
		d.Status = datastore.StatusOperational
		d.UptimeDays = 0
		d.LastMaintenance = nowDate()
		d.Alerts = dropAlerts(d.Alerts, "hardware", "component", "failure")
	})
	if err != nil {
		return nil, err
	}

	e.mutateHealthMetric(equipmentID, func(m *datastore.HealthMetric) {
		m.PushReading(datastore.Reading{
			Timestamp:         nowTimestamp(),
			CPUUtilization:    12,
			MemoryUtilization: 20,
			TemperatureC:      38,
			PacketLossPercent: 0.001,
			LatencyMs:         1.8,
		})
		// New hardware resets the score rather than incrementing it.
		m.HealthScore = 95.8
		m.Status = datastore.StatusOperational
	})

	return success("Replaced %s on device %s with %s", component, equipmentID, replacement), nil
}

func (e *Executor) optimizeConfiguration(args Args) (*Result, error) {
	equipmentID, err := args.EquipmentID()
	if err != nil {
		return nil, err
	}
	optimizationType := args.String("optimization_type", "performance tuning")

	err = e.mutateDevice(equipmentID, func(d *datastore.Equipment) {
		d.Status = datastore.StatusOperational
		d.LastMaintenance = nowDate()
		d.ConfigurationVersion = bumpMinorVersion(d.ConfigurationVersion)
		d.Alerts = dropAlerts(d.Alerts, "performance", "slow", "cpu", "memory")
	})
	if err != nil {
		return nil, err
	}

	e.mutateHealthMetric(equipmentID, func(m *datastore.HealthMetric) {
		prev := datastore.Reading{
			CPUUtilization:    50,
			MemoryUtilization: 60,
			TemperatureC:      55,
			PacketLossPercent: 0.5,
			LatencyMs:         5.0,
		}
		if len(m.RecentReadings) > 0 {
			prev = m.RecentReadings[0]
		}

		m.PushReading(datastore.Reading{
			Timestamp:         nowTimestamp(),
			CPUUtilization:    maxf(15, prev.CPUUtilization*0.6),
			MemoryUtilization: maxf(25, prev.MemoryUtilization*0.7),
			TemperatureC:      maxf(35, prev.TemperatureC*0.9),
			PacketLossPercent: minf(0.1, prev.PacketLossPercent*0.5),
			LatencyMs:         maxf(1.0, prev.LatencyMs*0.8),
		})
		bumpHealthScore(m, 12.5, 98)
		m.Status = datastore.StatusOperational
	})

	return success("Configuration of device %s optimized (%s)", equipmentID, optimizationType), nil
}

func (e *Executor) scheduleMaintenance(args Args) (*Result, error) {
	equipmentID, err := args.EquipmentID()
	if err != nil {
		return nil, err
	}
	maintenanceType := args.String("maintenance_type", "Preventive Maintenance")
	scheduledDate := args.String("scheduled_date", time.Now().AddDate(0, 0, 14).Format("2006-01-02"))
	priority := args.String("priority", "Medium")

	durationHours := 4
	if maintenanceType == "Preventive Maintenance" {
		durationHours = 2
	}

	err = e.mutateDevice(equipmentID, func(d *datastore.Equipment) {
		d.ScheduledMaintenance = append(d.ScheduledMaintenance, datastore.ScheduledMaintenance{
			Type:                   maintenanceType,
			ScheduledDate:          scheduledDate,
			Priority:               priority,
			Status:                 "Scheduled",
			CreatedDate:            nowDate(),
			EstimatedDurationHours: durationHours,
		})
		d.MaintenanceWindow = fmt.Sprintf("Scheduled for %s", scheduledDate)
		d.Alerts = append(d.Alerts, datastore.Alert{
			Type:      "maintenance",
			Severity:  "info",
			Timestamp: nowTimestamp(),
			Message:   fmt.Sprintf("Scheduled maintenance: %s on %s", maintenanceType, scheduledDate),
		})
	})
	if err != nil {
		return nil, err
	}

	e.mutateHealthMetric(equipmentID, func(m *datastore.HealthMetric) {
		m.AddMaintenanceNote(datastore.MaintenanceNote{
			Timestamp: nowTimestamp(),
			Type:      "Maintenance Scheduled",
			Details:   fmt.Sprintf("%s scheduled for %s", maintenanceType, scheduledDate),
			Priority:  priority,
			Status:    "Scheduled",
		})
		m.NextMaintenance = scheduledDate
		m.MaintenanceStatus = "Scheduled"
	})

	return success("Scheduled %s for device %s on %s", maintenanceType, equipmentID, scheduledDate), nil
}

func (e *Executor) renewContract(args Args) (*Result, error) {
	equipmentID, err := args.EquipmentID()
	if err != nil {
		return nil, err
	}
	contractType := args.String("contract_type", "Premium Maintenance Contract")
	duration := args.String("contract_duration", "12 months")
	vendor := args.String("vendor", "TechSupport Pro Inc.")

	// A duration mentioning "12" means a one-year term, anything else a
	// six-month term.
	days := 180
	if strings.Contains(duration, "12") {
		days = 365
	}
	start := time.Now()
	expiration := start.AddDate(0, 0, days).Format("2006-01-02")

	err = e.mutateDevice(equipmentID, func(d *datastore.Equipment) {
		d.ContractInfo = &datastore.ContractInfo{
			Type:           contractType,
			Vendor:         vendor,
			StartDate:      start.Format("2006-01-02"),
			ExpirationDate: expiration,
			Duration:       duration,
			Status:         "Active",
			RenewalDate:    start.Format("2006-01-02"),
		}
		d.WarrantyStatus = "Active"
		d.WarrantyExpiration = expiration
		d.ContractExpiry = expiration
		d.Alerts = dropAlerts(d.Alerts, "contract", "warranty", "expired")
		d.Alerts = append(d.Alerts, datastore.Alert{
			Type:      "contract",
			Severity:  "info",
			Timestamp: nowTimestamp(),
			Message:   fmt.Sprintf("Contract renewed: %s active until %s", contractType, expiration),
		})
	})
	if err != nil {
		return nil, err
	}

	e.mutateHealthMetric(equipmentID, func(m *datastore.HealthMetric) {
		m.AddContractNote(datastore.ContractNote{
			Timestamp:    nowTimestamp(),
			Type:         "Contract Renewed",
			ContractType: contractType,
			Vendor:       vendor,
			Duration:     duration,
			Status:       "Active",
		})
		m.ContractStatus = "Active"
		m.WarrantyStatus = "Active"
	})

	return success("Contract for device %s renewed: %s active until %s", equipmentID, contractType, expiration), nil
}

// bumpMinorVersion increments the minor component of a semver-ish version
// string; malformed versions reset to 1.1.0.
func bumpMinorVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "1.1.0"
	}
	var major, minor, patch int
	if _, err := fmt.Sscanf(version, "%d.%d.%d", &major, &minor, &patch); err != nil {
		return "1.1.0"
	}
	return fmt.Sprintf("%d.%d.%d", major, minor+1, patch)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
