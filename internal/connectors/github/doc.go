// Package github implements the GitHub source connector. The indexer walks a
// repository tree at a branch and yields one FileData per blob; the
// downloader fetches blob content by SHA. API traffic is rate limited with a
// token bucket plus the quota headers the API reports.
package github
