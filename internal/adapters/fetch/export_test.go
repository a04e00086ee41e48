package fetch

import "time"

// SetBackoff shortens the retry backoff in tests.
func (f *Fetcher) SetBackoff(d time.Duration) {
	f.backoff = d
}
