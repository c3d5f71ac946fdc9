package tools

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jordanhubbard/inframon/internal/datastore"
)

func seedStore(t *testing.T) *datastore.FileStore {
	t.Helper()
	store := datastore.NewFileStore(t.TempDir())

	err := store.SaveInventory([]datastore.Equipment{
		{
			ID:              "SW-001",
			Model:           "Catalyst 9300",
			Status:          datastore.StatusDegraded,
			UptimeDays:      412.3,
			FirmwareVersion: "17.9.4a",
			Alerts: []datastore.Alert{
				{Type: "firmware", Severity: "warning", Message: "Firmware version outdated"},
				{Type: "temperature", Severity: "critical", Message: "Chassis temperature high"},
			},
		},
		{
			ID:                   "RT-002",
			Model:                "MX204",
			Status:               datastore.StatusDown,
			ConfigurationVersion: "2.3.1",
			WarrantyStatus:       "Expired",
			Alerts: []datastore.Alert{
				{Type: "contract", Severity: "warning", Message: "Maintenance contract expired"},
			},
		},
	})
	if err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	err = store.SaveHealthMetrics([]datastore.HealthMetric{
		{
			EquipmentID: "SW-001",
			HealthScore: 52,
			Status:      datastore.StatusDegraded,
			RecentReadings: []datastore.Reading{
				{CPUUtilization: 88.2, MemoryUtilization: 72.5, TemperatureC: 78.4, PacketLossPercent: 0.8, LatencyMs: 9.1},
			},
		},
		{EquipmentID: "RT-002", HealthScore: 90},
	})
	if err != nil {
		t.Fatalf("seed metrics: %v", err)
	}
	return store
}

func loadDevice(t *testing.T, store datastore.Store, id string) datastore.Equipment {
	t.Helper()
	inventory, err := store.LoadInventory()
	if err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	for _, d := range inventory {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("device %s not found", id)
	return datastore.Equipment{}
}

func loadMetric(t *testing.T, store datastore.Store, id string) datastore.HealthMetric {
	t.Helper()
	metrics, err := store.LoadHealthMetrics()
	if err != nil {
		t.Fatalf("load metrics: %v", err)
	}
	for _, m := range metrics {
		if m.EquipmentID == id {
			return m
		}
	}
	t.Fatalf("metric %s not found", id)
	return datastore.HealthMetric{}
}

func TestRestartDevice(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	res, err := e.Execute(RestartDevice, Args{"equipment_id": "SW-001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != "success" {
		t.Errorf("expected success, got %q: %s", res.Status, res.Message)
	}

	d := loadDevice(t, store, "SW-001")
	if d.Status != datastore.StatusOperational {
		t.Errorf("expected Operational, got %s", d.Status)
	}
	if d.UptimeDays != 0 {
		t.Errorf("expected uptime reset, got %v", d.UptimeDays)
	}

	m := loadMetric(t, store, "SW-001")
	if m.HealthScore != 67 {
		t.Errorf("expected health 52+15=67, got %v", m.HealthScore)
	}
	r := m.RecentReadings[0]
	if r.CPUUtilization != 15 || r.MemoryUtilization != 30 || r.TemperatureC != 42 ||
		r.PacketLossPercent != 0.05 || r.LatencyMs != 2.5 {
		t.Errorf("unexpected post-restart reading: %+v", r)
	}
}

func TestRestartDevice_HealthCap(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	// RT-002 starts at 90; +15 must cap at 95.
	if _, err := e.Execute(RestartDevice, Args{"equipment_id": "RT-002"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := loadMetric(t, store, "RT-002")
	if m.HealthScore != 95 {
		t.Errorf("expected capped health 95, got %v", m.HealthScore)
	}
}

func TestUpdateFirmware(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	res, err := e.Execute(UpdateFirmware, Args{"equipment_id": "SW-001", "firmware_version": "17.12.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Message, "17.12.1") {
		t.Errorf("expected version in message, got %q", res.Message)
	}

	d := loadDevice(t, store, "SW-001")
	if d.FirmwareVersion != "17.12.1" {
		t.Errorf("firmware not updated: %s", d.FirmwareVersion)
	}
	for _, a := range d.Alerts {
		if strings.Contains(strings.ToLower(a.Type+" "+a.Message), "firmware") {
			t.Errorf("firmware alert should have been cleared: %+v", a)
		}
	}
	// The unrelated temperature alert stays.
	if len(d.Alerts) != 1 || d.Alerts[0].Type != "temperature" {
		t.Errorf("unexpected surviving alerts: %+v", d.Alerts)
	}
}

func TestReplaceHardware(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	if _, err := e.Execute(ReplaceHardware, Args{"equipment_id": "SW-001", "component": "supervisor"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := loadMetric(t, store, "SW-001")
	if m.HealthScore != 95.8 {
		t.Errorf("expected health reset to 95.8, got %v", m.HealthScore)
	}
	r := m.RecentReadings[0]
	if r.CPUUtilization != 12 || r.PacketLossPercent != 0.001 || r.LatencyMs != 1.8 {
		t.Errorf("unexpected post-replacement reading: %+v", r)
	}
}

func TestOptimizeConfiguration(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	if _, err := e.Execute(OptimizeConfiguration, Args{"equipment_id": "SW-001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := loadMetric(t, store, "SW-001")
	r := m.RecentReadings[0]
	// Derived from the previous reading: cpu 88.2*0.6, mem 72.5*0.7, temp
	// 78.4*0.9, loss min(0.1, 0.8*0.5), latency 9.1*0.8.
	if !near(r.CPUUtilization, 52.92) || !near(r.MemoryUtilization, 50.75) ||
		!near(r.TemperatureC, 70.56) || !near(r.PacketLossPercent, 0.1) || !near(r.LatencyMs, 7.28) {
		t.Errorf("unexpected optimized reading: %+v", r)
	}
	if !near(m.HealthScore, 64.5) {
		t.Errorf("expected health 52+12.5=64.5, got %v", m.HealthScore)
	}
}

func TestOptimizeConfiguration_VersionBump(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	if _, err := e.Execute(OptimizeConfiguration, Args{"equipment_id": "RT-002"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := loadDevice(t, store, "RT-002")
	if d.ConfigurationVersion != "2.4.1" {
		t.Errorf("expected minor bump to 2.4.1, got %s", d.ConfigurationVersion)
	}
}

func TestScheduleMaintenance(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	res, err := e.Execute(ScheduleMaintenance, Args{
		"equipment_id":     "SW-001",
		"maintenance_type": "Preventive Maintenance",
		"scheduled_date":   "2025-11-15",
		"priority":         "High",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Message, "2025-11-15") {
		t.Errorf("expected date in message: %q", res.Message)
	}

	d := loadDevice(t, store, "SW-001")
	if len(d.ScheduledMaintenance) != 1 {
		t.Fatalf("expected one scheduled entry, got %d", len(d.ScheduledMaintenance))
	}
	sm := d.ScheduledMaintenance[0]
	if sm.EstimatedDurationHours != 2 {
		t.Errorf("preventive maintenance should take 2 hours, got %d", sm.EstimatedDurationHours)
	}
	if sm.Status != "Scheduled" || sm.Priority != "High" {
		t.Errorf("unexpected entry: %+v", sm)
	}

	m := loadMetric(t, store, "SW-001")
	if m.NextMaintenance != "2025-11-15" || m.MaintenanceStatus != "Scheduled" {
		t.Errorf("health metric not updated: %+v", m)
	}
}

func TestScheduleMaintenance_NonPreventiveDuration(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	if _, err := e.Execute(ScheduleMaintenance, Args{
		"equipment_id":     "SW-001",
		"maintenance_type": "Hardware Inspection",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := loadDevice(t, store, "SW-001")
	if d.ScheduledMaintenance[0].EstimatedDurationHours != 4 {
		t.Errorf("expected 4 hour estimate, got %d", d.ScheduledMaintenance[0].EstimatedDurationHours)
	}
}

func TestRenewContract_TwelveMonths(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	if _, err := e.Execute(RenewContract, Args{
		"equipment_id":      "RT-002",
		"contract_duration": "12 months",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := loadDevice(t, store, "RT-002")
	if d.ContractInfo == nil {
		t.Fatal("expected contract info set")
	}
	wantExpiry := time.Now().AddDate(0, 0, 365).Format("2006-01-02")
	if d.ContractInfo.ExpirationDate != wantExpiry {
		t.Errorf("expected 365-day term ending %s, got %s", wantExpiry, d.ContractInfo.ExpirationDate)
	}
	if d.WarrantyStatus != "Active" {
		t.Errorf("expected Active warranty, got %s", d.WarrantyStatus)
	}

	// The expired-contract alert is cleared and a confirmation appended.
	var contractAlerts []datastore.Alert
	for _, a := range d.Alerts {
		if a.Type == "contract" {
			contractAlerts = append(contractAlerts, a)
		}
	}
	if len(contractAlerts) != 1 || !strings.Contains(contractAlerts[0].Message, "Contract renewed") {
		t.Errorf("unexpected contract alerts: %+v", contractAlerts)
	}

	m := loadMetric(t, store, "RT-002")
	if m.ContractStatus != "Active" || len(m.ContractNotes) != 1 {
		t.Errorf("health metric not updated: %+v", m)
	}
}

func TestRenewContract_SixMonthDefault(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	if _, err := e.Execute(RenewContract, Args{
		"equipment_id":      "RT-002",
		"contract_duration": "6 months",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := loadDevice(t, store, "RT-002")
	wantExpiry := time.Now().AddDate(0, 0, 180).Format("2006-01-02")
	if d.ContractInfo.ExpirationDate != wantExpiry {
		t.Errorf("expected 180-day term ending %s, got %s", wantExpiry, d.ContractInfo.ExpirationDate)
	}
}

func TestExecute_MissingEquipmentID(t *testing.T) {
	e := NewExecutor(seedStore(t))
	if _, err := e.Execute(RestartDevice, Args{}); err == nil {
		t.Fatal("expected error for missing equipment_id")
	}
}

func TestExecute_UnknownDevice(t *testing.T) {
	e := NewExecutor(seedStore(t))
	_, err := e.Execute(RestartDevice, Args{"equipment_id": "NO-SUCH-999"})
	if err == nil {
		t.Fatal("expected error for unknown device")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecute_EmptyInventory(t *testing.T) {
	store := datastore.NewFileStore(t.TempDir())
	e := NewExecutor(store)
	_, err := e.Execute(RestartDevice, Args{"equipment_id": "SW-001"})
	if err == nil {
		t.Fatal("expected error for empty inventory")
	}
	if !strings.Contains(err.Error(), "no devices found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecute_MissingHealthMetricIsWarningOnly(t *testing.T) {
	store := datastore.NewFileStore(t.TempDir())
	if err := store.SaveInventory([]datastore.Equipment{{ID: "SW-001"}}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	e := NewExecutor(store)

	// No health metric exists; the inventory mutation must still succeed.
	res, err := e.Execute(RestartDevice, Args{"equipment_id": "SW-001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != "success" {
		t.Errorf("expected success, got %q", res.Status)
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("restart_device"); err != nil {
		t.Errorf("expected restart_device to be known: %v", err)
	}
	if _, err := Lookup("format_disk"); err == nil {
		t.Error("expected unknown tool to be rejected")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(Catalog()) {
		t.Fatalf("expected %d names, got %d", len(Catalog()), len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("names are not sorted: %v", names)
	}
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			t.Errorf("catalog name %q does not resolve: %v", name, err)
		}
	}
}

func TestConcurrentExecutionsKeepBothUpdates(t *testing.T) {
	store := seedStore(t)
	e := NewExecutor(store)

	// Two executors restarting different devices at the same time: both
	// status changes must survive, whichever order the writes land in.
	var wg sync.WaitGroup
	for _, id := range []string{"SW-001", "RT-002"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := e.Execute(RestartDevice, Args{"equipment_id": id}); err != nil {
				t.Errorf("restart of %s failed: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"SW-001", "RT-002"} {
		d := loadDevice(t, store, id)
		if d.Status != datastore.StatusOperational {
			t.Errorf("lost update: device %s still %s after restart", id, d.Status)
		}
		if d.UptimeDays != 0 {
			t.Errorf("device %s uptime not reset: %v", id, d.UptimeDays)
		}
	}
}

func TestBumpMinorVersion(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2.3.1", "2.4.1"},
		{"1.0.0", "1.1.0"},
		{"", "1.1.0"},
		{"banana", "1.1.0"},
		{"1.2", "1.1.0"},
	}
	for _, tt := range tests {
		if got := bumpMinorVersion(tt.in); got != tt.want {
			t.Errorf("bumpMinorVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func near(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.0001
}
