// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package retrieval

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tomtom215/filingsync/internal/models"
)

// ErrInvalidRecord means a record lacks what is needed to derive its artifact path.
var ErrInvalidRecord = errors.New("invalid filing record")

var formTypeReplacer = strings.NewReplacer("/", "_", `\`, "_")

// AccessionNumber returns the final dash-delimited token of the filename's
// last path segment, without its extension:
//
//	edgar/data/1000045/0001000045-24-000012.txt -> 000012
func AccessionNumber(filename string) string {
	base := strings.TrimSpace(filename)
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if i := strings.LastIndex(base, "-"); i >= 0 {
		base = base[i+1:]
	}
	return base
}

// ArtifactPath returns the deterministic local path of a record's document:
//
//	{root}/{formType}/{year}_{month}/{subjectId}_{dateFiled}_{accession}.txt
//
// Path separators in the form type are replaced so that "10-K/A" stays a
// single directory.
func ArtifactPath(root string, rec models.FilingIndexRecord) (string, error) {
	formType := strings.TrimSpace(rec.FormType)
	if formType == "" || formType == "." || formType == ".." {
		return "", fmt.Errorf("%w: form type %q", ErrInvalidRecord, rec.FormType)
	}

	dateFiled := strings.TrimSpace(rec.DateFiled)
	parts := strings.Split(dateFiled, "-")
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" ||
		strings.ContainsAny(dateFiled, `/\`) {
		return "", fmt.Errorf("%w: date filed %q", ErrInvalidRecord, rec.DateFiled)
	}
	year, month := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	accession := AccessionNumber(rec.Filename)
	if accession == "" || accession == ".." || strings.Contains(accession, `\`) {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidRecord, rec.Filename)
	}

	name := strconv.FormatInt(rec.SubjectID, 10) + "_" + dateFiled + "_" + accession + ".txt"
	return filepath.Join(root, formTypeReplacer.Replace(formType), year+"_"+month, name), nil
}
