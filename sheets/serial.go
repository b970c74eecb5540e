package sheets

import (
	"fmt"
	"time"
)

// Sheets date serials count days since 1899-12-30.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// minSerial guards against nonsense values; anything below this is treated
// as corrupt rather than a date before 1872.
const minSerial = -10000

// SerialToDate converts a Sheets date serial to a civil date. Fractional
// day parts (time of day) are discarded.
func SerialToDate(serial float64) (time.Time, error) {
	days := int(serial)
	if days < minSerial {
		return time.Time{}, fmt.Errorf("serial date %v is suspiciously negative", serial)
	}
	return serialEpoch.AddDate(0, 0, days), nil
}

// SerialToISO converts a Sheets date serial to a YYYY-MM-DD string.
func SerialToISO(serial float64) (string, error) {
	d, err := SerialToDate(serial)
	if err != nil {
		return "", err
	}
	return d.Format("2006-01-02"), nil
}
