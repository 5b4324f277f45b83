package server

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TobiSchelling/ClicheCounter/internal/database"
)

var phraseTotalDesc = prometheus.NewDesc(
	"clichecounter_phrase_occurrences_total",
	"Stored phrase occurrences by organization and phrase",
	[]string{"organization", "phrase"},
	nil,
)

// PhraseCollector is a Prometheus collector that reads per-organization
// phrase totals from the database on each scrape.
type PhraseCollector struct {
	db *database.DB
}

// NewPhraseCollector creates a collector over db.
func NewPhraseCollector(db *database.DB) *PhraseCollector {
	return &PhraseCollector{db: db}
}

// Describe sends the metric descriptor to the channel.
func (c *PhraseCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- phraseTotalDesc
}

// Collect emits one counter per organization and phrase.
func (c *PhraseCollector) Collect(ch chan<- prometheus.Metric) {
	totals, err := c.db.GetPhraseTotals()
	if err != nil {
		log.Printf("Failed to collect phrase totals: %v", err)
		return
	}
	for _, pt := range totals {
		ch <- prometheus.MustNewConstMetric(
			phraseTotalDesc,
			prometheus.CounterValue,
			float64(pt.Count),
			pt.Organization,
			pt.Phrase,
		)
	}
}
