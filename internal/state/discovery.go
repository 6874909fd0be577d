package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/deckd/internal/logging"
)

const (
	// haServiceType is the mDNS service type Home Assistant advertises.
	haServiceType = "_home-assistant._tcp"

	// haServiceDomain is the mDNS domain (typically "local.")
	haServiceDomain = "local."

	// DefaultDiscoverTimeout is the default timeout for endpoint discovery.
	DefaultDiscoverTimeout = 10 * time.Second
)

// Discover browses mDNS for a Home Assistant instance and returns its base
// URL. Used at startup when [state] url is unset and discovery is enabled.
//
// Home Assistant publishes its preferred URL in the TXT record; when
// present that wins, otherwise the URL is built from the resolved address
// and port.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan string, 1)

	go func() {
		for entry := range entries {
			url := baseURLFromEntry(entry)
			if url == "" {
				continue
			}
			select {
			case found <- url:
				cancel()
			default:
			}
			return
		}
	}()

	if err := resolver.Browse(ctx, haServiceType, haServiceDomain, entries); err != nil {
		return "", fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case url := <-found:
		logging.Info("Discovered Home Assistant via mDNS", zap.String("url", url))
		return url, nil
	case <-ctx.Done():
		return "", fmt.Errorf("no Home Assistant instance found within %s", timeout)
	}
}

func baseURLFromEntry(entry *zeroconf.ServiceEntry) string {
	for _, txt := range entry.Text {
		if strings.HasPrefix(txt, "base_url=") {
			return strings.TrimSuffix(strings.TrimPrefix(txt, "base_url="), "/")
		}
	}
	if len(entry.AddrIPv4) > 0 {
		return fmt.Sprintf("http://%s:%d", entry.AddrIPv4[0], entry.Port)
	}
	return ""
}
