package length

import (
	"math"
	"strconv"
)

// AppendMeters appends meters with three decimals and a " m" suffix to buf,
// e.g. "0.126 m". Values that round to zero never print as "-0.000".
func AppendMeters(buf []byte, meters float64) []byte {
	if math.Abs(meters) < 0.0005 {
		meters = 0
	}
	buf = strconv.AppendFloat(buf, meters, 'f', 3, 64)
	return append(buf, " m"...)
}
