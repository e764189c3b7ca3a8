// config.go - Konfigurationsfunktionen fuer tensorc
//
// Dieses Modul enthaelt:
// - LogLevel: Gibt Log-Level zurueck (TENSORC_DEBUG)
// - Target: Gibt Ziel-Hardware-Familie zurueck (TENSORC_TARGET)
// - NumParallel: Gibt Anzahl paralleler Gruppen-Analysen zurueck (TENSORC_NUM_PARALLEL)
//
// Utility-Funktionen und AsMap/Values: config_utils.go
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var liest eine Environment-Variable (getrimmt, ohne Anfuehrungszeichen)
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via TENSORC_DEBUG
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("TENSORC_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Target gibt die Ziel-Hardware-Familie zurueck
// Konfigurierbar via TENSORC_TARGET
// Default: tc100
func Target() string {
	if s := Var("TENSORC_TARGET"); s != "" {
		return s
	}
	return "tc100"
}

// NumParallel gibt die Anzahl gleichzeitig analysierter Gruppen zurueck
// Konfigurierbar via TENSORC_NUM_PARALLEL (0 = Anzahl CPUs)
var NumParallel = Uint("TENSORC_NUM_PARALLEL", 0)

// CheckSlices aktiviert zusaetzliche Slice-Invarianten-Pruefungen
// Konfigurierbar via TENSORC_CHECK_SLICES
var CheckSlices = Bool("TENSORC_CHECK_SLICES")
