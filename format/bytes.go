// bytes.go - Menschenlesbare Byte-Groessen
package format

import (
	"fmt"
)

const (
	KibiByte = 1024
	MebiByte = 1024 * KibiByte
	GibiByte = 1024 * MebiByte
)

// HumanBytes2 renders b with binary units, one decimal place.
func HumanBytes2(b int64) string {
	switch {
	case b >= GibiByte:
		return fmt.Sprintf("%.1f GiB", float64(b)/GibiByte)
	case b >= MebiByte:
		return fmt.Sprintf("%.1f MiB", float64(b)/MebiByte)
	case b >= KibiByte:
		return fmt.Sprintf("%.1f KiB", float64(b)/KibiByte)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
