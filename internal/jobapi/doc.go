// Package jobapi describes the ingest job service the workflow drives and
// provides its HTTP/JSON client.
//
// The Backend interface is the only thing the workflow depends on. Client is
// the production implementation against the service's /ingest routes; tests
// substitute the scripted fake in internal/testsupport.
package jobapi
