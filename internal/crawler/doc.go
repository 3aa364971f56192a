// Package crawler holds the types, interfaces and error taxonomy shared by
// the frontier, fetchers, extractor, sink and worker packages of codecrawler.
package crawler
