package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"github.com/lttle-cloud/ignition/internal/logging"
)

const defaultPollInterval = 2 * time.Second

// deviceMonitor waits for the control device to appear so the daemon
// can enable the flash integration after a late module load. Device
// nodes under /dev are watched via udev netlink add events; other
// paths (procfs entries have no uevents) fall back to polling.
type deviceMonitor struct {
	path         string
	logger       *slog.Logger
	onAppear     func()
	pollInterval time.Duration

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newDeviceMonitor(path string, logger *slog.Logger, onAppear func()) *deviceMonitor {
	return &deviceMonitor{
		path:         path,
		logger:       logging.NewComponentLogger(logger, "device-monitor"),
		onAppear:     onAppear,
		pollInterval: defaultPollInterval,
	}
}

// Start begins watching for the device. Safe to call once per monitor.
func (m *deviceMonitor) Start(ctx context.Context) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	m.quit = make(chan struct{})
	m.running = true
	quit := m.quit

	if strings.HasPrefix(m.path, "/dev/") {
		conn := new(netlink.UEventConn)
		if err := conn.Connect(netlink.UdevEvent); err != nil {
			m.logger.Warn("failed to connect to netlink socket, falling back to polling",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_connect_failed"),
				logging.String(logging.FieldErrorHint, "ensure the daemon may access netlink sockets"),
				logging.String(logging.FieldImpact, "device attach detection is delayed by polling"))
			go m.pollLoop(ctx, quit)
		} else {
			m.conn = conn
			go m.netlinkLoop(ctx, quit)
		}
	} else {
		go m.pollLoop(ctx, quit)
	}

	m.logger.Info("device monitor started",
		logging.String(logging.FieldDevice, m.path),
		logging.String(logging.FieldEventType, "device_monitor_started"))
}

// Stop shuts down the monitor.
func (m *deviceMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("device monitor stopped",
		logging.String(logging.FieldEventType, "device_monitor_stopped"))
}

// Running reports whether the monitor is active.
func (m *deviceMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *deviceMonitor) pollLoop(ctx context.Context, quit <-chan struct{}) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			if _, err := os.Stat(m.path); err == nil {
				m.fire()
				return
			}
		}
	}
}

func (m *deviceMonitor) netlinkLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			if m.matchesDevice(uevent) {
				close(monitorQuit)
				m.fire()
				return
			}
		case err := <-errs:
			m.logger.Warn("device monitor netlink error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "device_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "device attach detection may be affected"))
		}
	}
}

// buildMatcher creates a matcher for device add events.
func (m *deviceMonitor) buildMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{Action: &action})
	return rules
}

func (m *deviceMonitor) matchesDevice(uevent netlink.UEvent) bool {
	devname := strings.TrimSpace(uevent.Env["DEVNAME"])
	if devname == "" {
		return false
	}
	if !strings.HasPrefix(devname, "/dev/") {
		devname = filepath.Join("/dev", devname)
	}
	return devname == m.path
}

func (m *deviceMonitor) fire() {
	m.logger.Info("device node appeared",
		logging.String(logging.FieldDevice, m.path),
		logging.String(logging.FieldEventType, "device_node_appeared"))
	if m.onAppear != nil {
		m.onAppear()
	}
}
