package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// AutoPort asks ResolvePort to pick the controller from the attached devices
const AutoPort = "auto"

var ErrNoMatchingPort = errors.New("no serial device matches")

// PortInfo is the subset of enumerator details used for auto-detection
type PortInfo struct {
	Name         string
	Product      string
	SerialNumber string
	VID          string
	PID          string
	IsUSB        bool
}

// PortLister lists attached serial devices
type PortLister func() ([]PortInfo, error)

// ListPorts enumerates devices with go.bug.st/serial/enumerator
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			VID:          d.VID,
			PID:          d.PID,
			IsUSB:        d.IsUSB,
		})
	}
	return ports, nil
}

// ResolvePort returns path unchanged unless it is "auto", in which case the
// first USB device whose product contains match (case-insensitive) wins.
// An empty match accepts the first USB device.
func ResolvePort(path, match string, list PortLister) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(path), AutoPort) {
		return path, nil
	}
	if list == nil {
		list = ListPorts
	}

	ports, err := list()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}

	needle := strings.ToLower(match)
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(p.Product), needle) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w %q among %d ports", ErrNoMatchingPort, match, len(ports))
}
