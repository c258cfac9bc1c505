// Package reporting emits the end-of-pipeline token reports.
package reporting

import (
	"strconv"
	"strings"

	"solana-mint-sniffer/internal/domain"
	"solana-mint-sniffer/internal/logging"
)

// LogReporter writes one structured log line per enriched token.
type LogReporter struct {
	log logging.Logger
}

// NewLogReporter creates a reporter over the given logger.
func NewLogReporter(log logging.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Report logs one enriched token. Unresolved fields show as "unknown".
func (r *LogReporter) Report(info *domain.TokenInfo) {
	entry := r.log.
		WithField("mint", info.Mint).
		WithField("slot", info.Slot).
		WithField("name", info.DisplayName).
		WithField("decimals", formatInt(info.Decimals)).
		WithField("supply", formatFloat(info.Supply)).
		WithField("mintable", formatBool(info.Mintable))

	if len(info.DexListings) > 0 {
		entry.Infof("new token %s listed on: %s",
			info.Mint, strings.Join(info.DexListings, ", "))
		return
	}
	entry.Infof("new token %s not found on known DEXs", info.Mint)
}

func formatInt(v *int) string {
	if v == nil {
		return domain.UnknownName
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return domain.UnknownName
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatBool(v *bool) string {
	if v == nil {
		return domain.UnknownName
	}
	return strconv.FormatBool(*v)
}
