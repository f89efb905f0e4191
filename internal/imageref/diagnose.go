package imageref

import (
	"context"
	"strings"
)

// ProbeReport describes what one candidate returned for an image id.
type ProbeReport struct {
	URL         string
	Excluded    bool
	Status      int
	ContentType string
	Bytes       int
	Accepted    bool
	Err         error
}

// Diagnose probes every candidate for imageID, including ones after the
// first success, and reports each response. Excluded hosts are reported but
// not dialed.
func (r *Resolver) Diagnose(ctx context.Context, imageID string) []ProbeReport {
	reports := make([]ProbeReport, 0, len(r.candidates))
	for _, c := range r.candidates {
		report := ProbeReport{URL: c.URL(imageID)}
		if r.excluded[strings.ToLower(c.Host())] {
			report.Excluded = true
			reports = append(reports, report)
			continue
		}

		res, err := r.fetcher.Get(ctx, report.URL, probeHeaders, r.timeout)
		if err != nil {
			report.Err = err
			reports = append(reports, report)
			continue
		}
		report.Status = res.StatusCode
		report.ContentType = res.ContentType()
		report.Bytes = len(res.Body)
		_, report.Accepted = r.classify(ctx, report.URL, res)
		reports = append(reports, report)
	}
	return reports
}
