// config_features.go - Backend-Auswahl und Laufzeit-Einstellungen
//
// Dieses Modul enthaelt:
// - Backend/Prefer: Defaults fuer Init wenn nichts uebergeben wird
// - Threads: Obergrenze fuer Inferenz-Threads
// - NoProgress: Fortschrittsbalken im CLI abschalten
package envconfig

// =============================================================================
// Backend-Auswahl
// =============================================================================

var (
	// Backend ist das Default-Backend (cpu, cuda, xnnpack)
	Backend = StringWithDefault("ARKCHECK_BACKEND", "cpu")

	// Prefer ist die Default-Praeferenz (fast, sustained, low)
	Prefer = StringWithDefault("ARKCHECK_PREFER", "fast")
)

// =============================================================================
// Laufzeit
// =============================================================================

var (
	// Threads begrenzt die Inferenz-Threads, 0 = alle Kerne
	// Konfigurierbar via ARKCHECK_THREADS
	Threads = Uint("ARKCHECK_THREADS", 0)

	// NoProgress deaktiviert den Download-Fortschrittsbalken
	NoProgress = Bool("ARKCHECK_NOPROGRESS")

	// OrtLibrary ist der Pfad zur onnxruntime Shared Library
	OrtLibrary = String("ARKCHECK_ORT_LIBRARY")
)
