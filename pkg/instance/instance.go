package instance

import (
	"os"

	"github.com/angelmondragon/storefront/pkg/env"
)

// GetID identifies this BFF replica in logs and the cart service user agent.
// It prefers STOREFRONT_INSTANCE_ID, then the platform dyno name, then the
// hostname.
func GetID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
