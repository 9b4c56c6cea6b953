package helpers

import (
	"fmt"
	"strings"

	"xrayctl/internal/constants"
	"xrayctl/internal/models"
)

// FormatUsageReport renders a plain-text network usage table
func FormatUsageReport(rows []models.ClientTraffic) string {
	var sb strings.Builder
	sb.WriteString("Alias             | ↓ (GB) | ↑ (GB)\n")
	sb.WriteString("------------------|--------|--------\n")

	var totalUp int64
	var totalDown int64

	for _, row := range rows {
		totalUp += row.Up
		totalDown += row.Down
		sb.WriteString(FormatTableLine(row.Email, row.Down, row.Up))
	}

	sb.WriteString("------------------|--------|--------\n")
	sb.WriteString(FormatTableLine("Total:", totalDown, totalUp))

	return sb.String()
}

// FormatTableLine formats a single line of the usage table
func FormatTableLine(alias string, downBytes int64, upBytes int64) string {
	downGB := float64(downBytes) / constants.BytesInGB
	upGB := float64(upBytes) / constants.BytesInGB

	displayAlias := alias
	if len(alias) > constants.MaxAliasDisplayLength {
		displayAlias = alias[:constants.MaxAliasSuffixLength] + "..."
	}

	return fmt.Sprintf("%-17s | %6.2f | %6.2f\n", displayAlias, downGB, upGB)
}
