package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

// WriteTextfile dumps the gathered registry in the node-exporter textfile
// format. An empty path is a no-op.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "write metrics textfile", err)
	}
	return nil
}
