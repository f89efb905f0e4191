package quote

import "fmt"

// FetchError reports that a product page could not be retrieved. Status is
// zero for transport failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch page %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("failed to fetch page %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Text is the user-facing rendering of a fetch failure.
func (e *FetchError) Text() string {
	reason := "connection failed"
	if e.Status != 0 {
		reason = fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("❌ Unable to fetch price from this URL (%s). Please try a different product link.", reason)
}
