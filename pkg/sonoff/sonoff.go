// Package sonoff switches a Sonoff relay through its LAN (zeroconf) HTTP API.
package sonoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultPort    = 8081
	DefaultTimeout = time.Second
)

type switchData struct {
	Switch string `json:"switch"`
}

type switchRequest struct {
	DeviceID string     `json:"deviceid"`
	Data     switchData `json:"data"`
}

// Device is one relay on the local network.
type Device struct {
	base   string
	id     string
	client *http.Client
}

// New returns a device at host:port. A zero port means DefaultPort.
func New(host string, port int, id string) *Device {
	if port == 0 {
		port = DefaultPort
	}
	return &Device{
		base:   "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/zeroconf/",
		id:     id,
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

func (d *Device) String() string {
	return "sonoff{" + d.base + "}"
}

func (d *Device) SwitchOn(ctx context.Context) error {
	return d.Switch(ctx, true)
}

func (d *Device) SwitchOff(ctx context.Context) error {
	return d.Switch(ctx, false)
}

// Switch sets the relay state.
func (d *Device) Switch(ctx context.Context, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	return d.post(ctx, "switch", switchRequest{
		DeviceID: d.id,
		Data:     switchData{Switch: state},
	})
}

func (d *Device) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sonoff: encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sonoff: %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sonoff: %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sonoff: %s: unexpected status %s", path, resp.Status)
	}
	return nil
}
