// Package opticalmath converts the integer milliwatt readings Calix
// E-series optics report as "<whole>.<fraction>mW" into dBm, shared by any
// handler that scrapes that same "TX power: N.NNNmW" / "RX power: N.NNNmW"
// CLI format.
package opticalmath

import (
	"fmt"
	"math"
)

// DBm converts a whole/fractional milliwatt pair to a dBm string, or "inf"
// once the scaled value saturates. The fractional part is scaled by its
// digit count before being folded into the whole part — 1 digit times
// 1000, 2 digits times 100, 3 digits times 10, 4+ digits added directly —
// reproducing the device firmware's fixed-point formatting exactly rather
// than normalizing the fraction to thousandths up front.
func DBm(whole, frac int) string {
	scaled := whole * 10000
	switch {
	case frac >= 1000:
		scaled += frac
	case frac >= 100:
		scaled += frac * 10
	case frac >= 10:
		scaled += frac * 100
	default:
		scaled += frac * 1000
	}
	if scaled >= 65535 {
		return "inf"
	}
	return fmt.Sprintf("%.2f", 10.0*math.Log10(float64(scaled))-40.0)
}
