package tools

import (
	"fmt"
	"sort"
)

// Kind identifies one of the repair tools. The set is closed: an unrecognized
// name coming back from the planning oracle is a hallucination and is
// rejected at lookup, never silently ignored.
type Kind string

const (
	RestartDevice         Kind = "restart_device"
	UpdateFirmware        Kind = "update_firmware"
	ReplaceHardware       Kind = "replace_hardware"
	OptimizeConfiguration Kind = "optimize_configuration"
	ScheduleMaintenance   Kind = "schedule_maintenance"
	RenewContract         Kind = "renew_contract"
)

// Spec describes one tool for presentation to the planning oracle.
type Spec struct {
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

var catalog = map[Kind]Spec{
	RestartDevice: {
		Description: "Restart a network device to clear transient faults and restore normal operation",
		Parameters:  []string{"equipment_id", "maintenance_window", "rollback_plan"},
	},
	UpdateFirmware: {
		Description: "Update the firmware of a network device to a specified version",
		Parameters:  []string{"equipment_id", "firmware_version", "maintenance_window", "rollback_plan"},
	},
	ReplaceHardware: {
		Description: "Replace a failed or failing hardware component on a network device",
		Parameters:  []string{"equipment_id", "component", "replacement_part", "maintenance_window"},
	},
	OptimizeConfiguration: {
		Description: "Optimize the configuration of a network device to improve performance",
		Parameters:  []string{"equipment_id", "optimization_type", "rollback_plan"},
	},
	ScheduleMaintenance: {
		Description: "Schedule a future maintenance window for a network device",
		Parameters:  []string{"equipment_id", "maintenance_type", "scheduled_date", "priority"},
	},
	RenewContract: {
		Description: "Renew the maintenance or support contract for a network device",
		Parameters:  []string{"equipment_id", "contract_type", "contract_duration", "vendor"},
	},
}

// Catalog returns the full tool catalog keyed by tool name.
func Catalog() map[Kind]Spec {
	out := make(map[Kind]Spec, len(catalog))
	for k, v := range catalog {
		out[k] = v
	}
	return out
}

// Names returns the tool names in sorted order, for stable prompt embedding.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for k := range catalog {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a tool name to its Kind. An unknown name is an error.
func Lookup(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := catalog[k]; !ok {
		return "", fmt.Errorf("unknown tool name %q", name)
	}
	return k, nil
}
