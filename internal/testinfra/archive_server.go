// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package testinfra

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/filingsync/internal/models"
)

// ArchiveCapture is one request seen by a MockArchive.
type ArchiveCapture struct {
	Path      string
	UserAgent string
}

// MockArchive is an httptest server laid out like the filing archive:
//
//	{URL}/full-index/{year}/QTR{q}/master.idx
//	{URL}/Archives/{filename}
//
// Unknown paths return 404. Register content before pointing a fetcher at it.
type MockArchive struct {
	Server *httptest.Server

	mu        sync.Mutex
	files     map[string][]byte
	statuses  map[string]int
	gzipPaths map[string]bool
	captures  []ArchiveCapture
}

// NewMockArchive starts a mock archive that is closed when the test ends.
func NewMockArchive(t *testing.T) *MockArchive {
	t.Helper()

	m := &MockArchive{
		files:     make(map[string][]byte),
		statuses:  make(map[string]int),
		gzipPaths: make(map[string]bool),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Server.Close)
	return m
}

func (m *MockArchive) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.captures = append(m.captures, ArchiveCapture{Path: r.URL.Path, UserAgent: r.UserAgent()})
	status, hasStatus := m.statuses[r.URL.Path]
	body, ok := m.files[r.URL.Path]
	gz := m.gzipPaths[r.URL.Path]
	m.mu.Unlock()

	if hasStatus {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if gz && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(body)
		_ = zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		body = buf.Bytes()
	}
	_, _ = w.Write(body)
}

// IndexBaseURL is the value for archive.full_index_url.
func (m *MockArchive) IndexBaseURL() string {
	return m.Server.URL + "/full-index"
}

// DocumentBaseURL is the value for archive.document_base_url.
func (m *MockArchive) DocumentBaseURL() string {
	return m.Server.URL + "/Archives"
}

func indexPath(p models.Period) string {
	return fmt.Sprintf("/full-index/%d/QTR%d/master.idx", p.Year, p.Quarter)
}

// SetIndex serves content as the master index for p.
func (m *MockArchive) SetIndex(p models.Period, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[indexPath(p)] = []byte(content)
}

// SetIndexGzip serves content gzip-encoded as the master index for p.
func (m *MockArchive) SetIndexGzip(p models.Period, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[indexPath(p)] = []byte(content)
	m.gzipPaths[indexPath(p)] = true
}

// SetIndexStatus makes the index for p answer with a bare status code.
func (m *MockArchive) SetIndexStatus(p models.Period, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[indexPath(p)] = status
}

// SetDocument serves content for a record filename such as edgar/data/1/0001-24-000001.txt.
func (m *MockArchive) SetDocument(filename, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files["/Archives/"+strings.TrimPrefix(filename, "/")] = []byte(content)
}

// SetDocumentStatus makes a document answer with a bare status code.
func (m *MockArchive) SetDocumentStatus(filename string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses["/Archives/"+strings.TrimPrefix(filename, "/")] = status
}

// ClearDocumentStatus removes a status set by SetDocumentStatus.
func (m *MockArchive) ClearDocumentStatus(filename string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, "/Archives/"+strings.TrimPrefix(filename, "/"))
}

// Captures returns a copy of every request seen so far.
func (m *MockArchive) Captures() []ArchiveCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ArchiveCapture, len(m.captures))
	copy(out, m.captures)
	return out
}

// Hits counts requests for a path.
func (m *MockArchive) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.captures {
		if c.Path == path {
			n++
		}
	}
	return n
}

// IndexHits counts requests for the master index of p.
func (m *MockArchive) IndexHits(p models.Period) int {
	return m.Hits(indexPath(p))
}

// MasterIndex renders records in master.idx layout, header included.
func MasterIndex(records ...models.FilingIndexRecord) string {
	var b strings.Builder
	b.WriteString("Description:           Master Index of EDGAR Dissemination Feed\n")
	b.WriteString("Last Data Received:    test fixture\n")
	b.WriteString("\n")
	b.WriteString("CIK|Company Name|Form Type|Date Filed|Filename\n")
	b.WriteString("--------------------------------------------------------------------------------\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%d|%s|%s|%s|%s\n", r.SubjectID, r.SubjectName, r.FormType, r.DateFiled, r.Filename)
	}
	return b.String()
}
