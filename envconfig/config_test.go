// config_test.go - Tests fuer die Environment-Konfiguration
package envconfig

import (
	"log/slog"
	"testing"
)

func TestVar(t *testing.T) {
	cases := map[string]string{
		"tc64":       "tc64",
		" tc64 ":     "tc64",
		`"tc64"`:     "tc64",
		"'tc64'":     "tc64",
		` "tc64"   `: "tc64",
	}
	for raw, want := range cases {
		t.Setenv("TENSORC_TARGET", raw)
		if got := Var("TENSORC_TARGET"); got != want {
			t.Errorf("Var(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"2":     slog.Level(-8),
	}
	for raw, want := range cases {
		t.Setenv("TENSORC_DEBUG", raw)
		if got := LogLevel(); got != want {
			t.Errorf("TENSORC_DEBUG=%q: level %v, want %v", raw, got, want)
		}
	}
}

func TestTarget(t *testing.T) {
	t.Setenv("TENSORC_TARGET", "")
	if got := Target(); got != "tc100" {
		t.Errorf("default target = %q, want tc100", got)
	}

	t.Setenv("TENSORC_TARGET", "edge")
	if got := Target(); got != "edge" {
		t.Errorf("target = %q, want edge", got)
	}
}

func TestNumParallel(t *testing.T) {
	t.Setenv("TENSORC_NUM_PARALLEL", "")
	if got := NumParallel(); got != 0 {
		t.Errorf("default = %d, want 0", got)
	}

	t.Setenv("TENSORC_NUM_PARALLEL", "4")
	if got := NumParallel(); got != 4 {
		t.Errorf("got %d, want 4", got)
	}

	t.Setenv("TENSORC_NUM_PARALLEL", "many")
	if got := NumParallel(); got != 0 {
		t.Errorf("invalid value yields %d, want default 0", got)
	}
}

func TestCheckSlices(t *testing.T) {
	t.Setenv("TENSORC_CHECK_SLICES", "")
	if CheckSlices() {
		t.Error("default must be off")
	}

	t.Setenv("TENSORC_CHECK_SLICES", "1")
	if !CheckSlices() {
		t.Error("TENSORC_CHECK_SLICES=1 must enable the checks")
	}
}

func TestAsMap(t *testing.T) {
	m := AsMap()
	for _, key := range []string{"TENSORC_DEBUG", "TENSORC_TARGET", "TENSORC_NUM_PARALLEL", "TENSORC_CHECK_SLICES"} {
		e, ok := m[key]
		if !ok {
			t.Errorf("key %s missing", key)
			continue
		}
		if e.Name != key || e.Description == "" {
			t.Errorf("key %s has incomplete metadata", key)
		}
	}
}
