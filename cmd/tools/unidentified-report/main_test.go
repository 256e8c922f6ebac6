package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

func TestPrintReport(t *testing.T) {
	seen := time.Date(2026, 1, 10, 2, 0, 0, 0, time.UTC)
	entries := []models.UnidentifiedEntry{
		{Domain: models.DomainSubject, Source: "underdog", League: "NBA", Raw: "G. Antetokounmpo", FirstSeen: seen},
		{Domain: models.DomainMarket, Source: "fanduel", League: "NBA", Raw: "Pts+Reb", FirstSeen: seen},
		{Domain: models.DomainSubject, Source: "fanduel", League: "NBA", Raw: "Nobody Known", FirstSeen: seen},
		{Domain: models.DomainSubject, Source: "fanduel", League: "NBA", Raw: "Another One", FirstSeen: seen},
	}

	var buf bytes.Buffer
	printReport(&buf, filter(entries, models.DomainSubject, ""))
	out := buf.String()

	assert.Contains(t, out, "=== subject (3) ===")
	assert.NotContains(t, out, "Pts+Reb")
	// fanduel has more misses, so it is listed first
	assert.Less(t, strings.Index(out, "Another One"), strings.Index(out, "Nobody Known"))
	assert.Less(t, strings.Index(out, "Nobody Known"), strings.Index(out, "G. Antetokounmpo"))
	assert.Contains(t, out, "2026-01-10T02:00:00Z")

	buf.Reset()
	printReport(&buf, filter(entries, "", "nobody"))
	assert.Equal(t, "No unidentified entries\n", buf.String())
}
