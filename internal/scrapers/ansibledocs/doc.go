// Package ansibledocs scrapes the ansible "release and maintenance" page.
//
// scraping is split the same way for every table:
// 1) fetch the page (Client.FetchPage), one request, no retries.
// 2) locate the table by its header text (htmlutil.FindTable), falling back to
// a fuzzy header match, or to a fixed index when no header is configured.
// 3) turn each data row into a map entry, rows too short to read are dropped.
//
// the page has two layouts for the same data depending on its age, which is
// why both the release version and python version extraction are pluggable
// (VersionStrategy, InterpreterStrategy).
package ansibledocs
