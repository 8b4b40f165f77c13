package helpers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// IntToString converts int64 to string.
func IntToString(i int64) string {
	return strconv.FormatInt(i, 10)
}

// ToJsonString converts any value to JSON string.
func ToJsonString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundPtr rounds v and returns a pointer to the result, for optional record fields.
func RoundPtr(v float64, places int32) *float64 {
	r := Round(v, places)
	return &r
}

func IntPtr(v int) *int {
	return &v
}

// WallClockLabel is the local time of day used to label history records.
func WallClockLabel(t time.Time) string {
	return t.Local().Format("15:04:05")
}
