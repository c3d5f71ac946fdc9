package datastore

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileStore_MissingFilesAreEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir())

	inventory, err := store.LoadInventory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inventory) != 0 {
		t.Errorf("expected empty inventory, got %d entries", len(inventory))
	}

	metrics, err := store.LoadHealthMetrics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 0 {
		t.Errorf("expected empty metrics, got %d entries", len(metrics))
	}

	life, err := store.LoadLifeExpectancy()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(life) != 0 {
		t.Errorf("expected empty life expectancy, got %d entries", len(life))
	}
}

func TestFileStore_InventoryRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())

	in := []Equipment{
		{
			ID:     "SW-001",
			Model:  "Catalyst 9300",
			Vendor: "Cisco",
			Status: StatusDegraded,
			Alerts: []Alert{
				{Type: "temperature", Severity: "critical", Timestamp: "2025-10-23T00:00:00Z", Message: "too hot"},
			},
		},
		{ID: "RT-002", Model: "MX204", Vendor: "Juniper", Status: StatusOperational},
	}
	if err := store.SaveInventory(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, err := store.LoadInventory()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(out))
	}
	if out[0].ID != "SW-001" || out[0].Status != StatusDegraded {
		t.Errorf("first device mismatch: %+v", out[0])
	}
	if len(out[0].Alerts) != 1 || out[0].Alerts[0].Severity != "critical" {
		t.Errorf("alerts not preserved: %+v", out[0].Alerts)
	}
}

func TestFileStore_HealthMetricsRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())

	in := []HealthMetric{
		{
			EquipmentID: "SW-001",
			HealthScore: 52.5,
			Status:      StatusDegraded,
			RecentReadings: []Reading{
				{Timestamp: "2025-10-23T06:00:00Z", CPUUtilization: 88.2, TemperatureC: 78.4},
			},
		},
	}
	if err := store.SaveHealthMetrics(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, err := store.LoadHealthMetrics()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(out) != 1 || out[0].HealthScore != 52.5 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if len(out[0].RecentReadings) != 1 || out[0].RecentReadings[0].CPUUtilization != 88.2 {
		t.Errorf("readings not preserved: %+v", out[0].RecentReadings)
	}
}

func TestFileStore_ConcurrentAccess(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.SaveInventory([]Equipment{{ID: "SW-001"}}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			if err := store.SaveInventory([]Equipment{{ID: fmt.Sprintf("SW-%03d", n)}}); err != nil {
				t.Errorf("save failed: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := store.LoadInventory(); err != nil {
				t.Errorf("load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestFileStore_UpdateInventoryHoldsLockAcrossCycle(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.SaveInventory([]Equipment{
		{ID: "SW-001", Status: StatusDegraded},
		{ID: "RT-002", Status: StatusDegraded},
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Each goroutine flips one device. If the read-modify-write cycle were
	// not a single critical section, both could read the seed state and the
	// second write would erase the first update.
	var inUpdate int32
	flip := func(id string) error {
		return store.UpdateInventory(func(inventory []Equipment) ([]Equipment, error) {
			if n := atomic.AddInt32(&inUpdate, 1); n != 1 {
				t.Errorf("update ran with %d concurrent mutators", n)
			}
			time.Sleep(10 * time.Millisecond)
			for i := range inventory {
				if inventory[i].ID == id {
					inventory[i].Status = StatusOperational
				}
			}
			atomic.AddInt32(&inUpdate, -1)
			return inventory, nil
		})
	}

	var wg sync.WaitGroup
	for _, id := range []string{"SW-001", "RT-002"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := flip(id); err != nil {
				t.Errorf("update failed: %v", err)
			}
		}(id)
	}
	wg.Wait()

	out, err := store.LoadInventory()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	for _, d := range out {
		if d.Status != StatusOperational {
			t.Errorf("lost update: device %s still %s", d.ID, d.Status)
		}
	}
}

func TestFileStore_UpdateInventoryErrorLeavesFileUntouched(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.SaveInventory([]Equipment{{ID: "SW-001", Status: StatusDegraded}}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	wantErr := fmt.Errorf("abandon")
	err := store.UpdateInventory(func(inventory []Equipment) ([]Equipment, error) {
		inventory[0].Status = StatusOperational
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("expected the abandon error back, got %v", err)
	}

	out, err := store.LoadInventory()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if out[0].Status != StatusDegraded {
		t.Errorf("abandoned update was written: %+v", out[0])
	}
}

func TestFileStore_UpdateHealthMetricsRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.SaveHealthMetrics([]HealthMetric{{EquipmentID: "SW-001", HealthScore: 50}}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	err := store.UpdateHealthMetrics(func(metrics []HealthMetric) ([]HealthMetric, error) {
		metrics[0].HealthScore = 80
		return metrics, nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	out, err := store.LoadHealthMetrics()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if out[0].HealthScore != 80 {
		t.Errorf("update not persisted: %+v", out[0])
	}
}

func TestHealthMetric_PushReadingCap(t *testing.T) {
	m := &HealthMetric{EquipmentID: "SW-001"}
	for i := 0; i < MaxReadings+5; i++ {
		m.PushReading(Reading{CPUUtilization: float64(i)})
	}

	if len(m.RecentReadings) != MaxReadings {
		t.Fatalf("expected %d readings, got %d", MaxReadings, len(m.RecentReadings))
	}
	// Newest first: the last pushed value leads the list.
	if m.RecentReadings[0].CPUUtilization != float64(MaxReadings+4) {
		t.Errorf("expected newest reading first, got %v", m.RecentReadings[0].CPUUtilization)
	}
	if m.RecentReadings[MaxReadings-1].CPUUtilization != 5 {
		t.Errorf("expected oldest surviving reading 5, got %v", m.RecentReadings[MaxReadings-1].CPUUtilization)
	}
}

func TestHealthMetric_NoteCaps(t *testing.T) {
	m := &HealthMetric{EquipmentID: "SW-001"}

	for i := 0; i < MaxMaintenanceNotes+3; i++ {
		m.AddMaintenanceNote(MaintenanceNote{Details: fmt.Sprintf("note %d", i)})
	}
	if len(m.MaintenanceNotes) != MaxMaintenanceNotes {
		t.Fatalf("expected %d maintenance notes, got %d", MaxMaintenanceNotes, len(m.MaintenanceNotes))
	}
	if m.MaintenanceNotes[len(m.MaintenanceNotes)-1].Details != fmt.Sprintf("note %d", MaxMaintenanceNotes+2) {
		t.Errorf("expected most recent note kept, got %q", m.MaintenanceNotes[len(m.MaintenanceNotes)-1].Details)
	}

	for i := 0; i < MaxContractNotes+2; i++ {
		m.AddContractNote(ContractNote{Vendor: fmt.Sprintf("vendor %d", i)})
	}
	if len(m.ContractNotes) != MaxContractNotes {
		t.Fatalf("expected %d contract notes, got %d", MaxContractNotes, len(m.ContractNotes))
	}
}
