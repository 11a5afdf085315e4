package preview

import (
	"fmt"
	"strings"
)

// Device is a viewport preset. It only constrains the container width.
type Device string

const (
	Mobile  Device = "mobile"
	Tablet  Device = "tablet"
	Desktop Device = "desktop"
)

// Devices lists the presets in display order.
var Devices = []Device{Mobile, Tablet, Desktop}

// Breakpoints hold the configurable preset widths.
type Breakpoints struct {
	Mobile string
	Tablet string
}

func DefaultBreakpoints() Breakpoints {
	return Breakpoints{Mobile: "375px", Tablet: "768px"}
}

// Width returns the container width for d.
func (b Breakpoints) Width(d Device) string {
	switch d {
	case Mobile:
		if b.Mobile != "" {
			return b.Mobile
		}
		return "375px"
	case Tablet:
		if b.Tablet != "" {
			return b.Tablet
		}
		return "768px"
	default:
		return "100%"
	}
}

// ParseDevice accepts a preset name. Empty means desktop.
func ParseDevice(s string) (Device, error) {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Desktop, nil
	case Mobile, Tablet, Desktop:
		return d, nil
	default:
		return "", fmt.Errorf("unknown device %q", s)
	}
}
