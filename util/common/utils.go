package common

import (
	"time"

	"github.com/inhies/go-bytesize"
)

// GetSize renders a byte count for humans, e.g. "12.50KB".
func GetSize(sizeVal int64) string {
	size := bytesize.New(float64(sizeVal))
	return size.String()
}

// GetDuration rounds d for display in progress lines and receipts.
func GetDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
