package report

import (
	"github.com/TobiSchelling/ClicheCounter/internal/aggregate"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/detect"
	"github.com/TobiSchelling/ClicheCounter/internal/tenure"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// Rows converts stored detections into aggregation rows. Phrases no
// longer in the vocabulary are ignored. Transcripts without a speaker get
// one from the tenure index by publication date, or tenure.Unknown.
func Rows(scored []database.ScoredTranscript, v *vocab.Vocabulary, tenures *tenure.Index) []aggregate.Row {
	rows := make([]aggregate.Row, 0, len(scored))
	for _, st := range scored {
		counts := detect.NewTable(v.Len())
		for phrase, c := range st.Counts {
			if i := v.Index(phrase); i >= 0 {
				counts[i] += c
			}
		}

		published := st.Published()
		speaker := ""
		if st.Speaker != nil {
			speaker = *st.Speaker
		}
		if speaker == "" {
			speaker = tenure.Unknown
			if tenures != nil && published != nil {
				speaker = tenures.Assign(st.Organization, *published)
			}
		}

		rows = append(rows, aggregate.Row{
			DocumentID:   st.URL,
			Organization: st.Organization,
			Speaker:      speaker,
			Published:    published,
			Counts:       counts,
			Tokens:       st.TokenCount,
		})
	}
	return rows
}
