package model

// Version constants for the export document and the simulator.
const (
	// FormatVersion is the export document schema version.
	FormatVersion = "1"

	// SimulatorVersion is reported by the CLI.
	SimulatorVersion = "0.1.0"
)
