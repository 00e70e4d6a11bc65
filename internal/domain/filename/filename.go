// Package filename interprets the hierarchical scan file naming convention,
// e.g. NABWH_001_SG1_S19_B01_F01_D01_P003.tif, where the segments name the
// park and accession, series levels, box, folder, document and page.
package filename

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
)

var (
	pageRe      = regexp.MustCompile(`^(.*/)?(.*_P\d\d\d)\.tif{1,2}$`)
	accessRe    = regexp.MustCompile(`^(.*/)?(.*_P\d\d\d)_ACCESS\.png$`)
	thumbnailRe = regexp.MustCompile(`^(.*/)?(.*_P\d\d\d)_THUMBNAIL\.png$`)
	docIDRe     = regexp.MustCompile(`^(.*/)?(.*_D\d\d)_P\d\d\d\.tif{1,2}$`)
)

// IsPageFile reports whether s names a page master image.
func IsPageFile(s string) bool { return pageRe.MatchString(s) }

// IsAccessFile reports whether s names a page access derivative.
func IsAccessFile(s string) bool { return accessRe.MatchString(s) }

// IsThumbnailFile reports whether s names a page thumbnail derivative.
func IsThumbnailFile(s string) bool { return thumbnailRe.MatchString(s) }

// Page is a parsed page master file reference.
type Page struct {
	IRI    string
	DocID  string
	Number int
}

// ParsePage parses a page file IRI or bare filename.
func ParsePage(s string) (Page, error) {
	m := docIDRe.FindStringSubmatch(s)
	if m == nil {
		return Page{}, fmt.Errorf("page file %q: %w", s, domain.ErrNamingConvention)
	}
	parts, err := PathParts(path.Base(s))
	if err != nil {
		return Page{}, err
	}
	if len(parts) < 7 || !strings.HasPrefix(parts[6], "P") {
		return Page{}, fmt.Errorf("page file %q: no page segment: %w", s, domain.ErrNamingConvention)
	}
	n, err := strconv.Atoi(parts[6][1:])
	if err != nil {
		return Page{}, fmt.Errorf("page file %q: page number: %w", s, domain.ErrNamingConvention)
	}
	return Page{IRI: s, DocID: m[2], Number: n}, nil
}

// AccessURL returns the access derivative location for a page file.
func AccessURL(pageFile string) (string, error) { return derivative(pageFile, "_ACCESS.png") }

// ThumbnailURL returns the thumbnail derivative location for a page file.
func ThumbnailURL(pageFile string) (string, error) { return derivative(pageFile, "_THUMBNAIL.png") }

func derivative(pageFile, suffix string) (string, error) {
	m := pageRe.FindStringSubmatch(pageFile)
	if m == nil {
		return "", fmt.Errorf("page file %q: %w", pageFile, domain.ErrNamingConvention)
	}
	return m[1] + m[2] + suffix, nil
}

// PathParts splits a basename into its description path segments. Box and
// folder segments are normalized to the BX00nn and FL00nn forms.
func PathParts(basename string) ([]string, error) {
	stem := basename
	if i := strings.LastIndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	segs := strings.Split(stem, "_")
	if len(segs) < 6 {
		return nil, fmt.Errorf("%q: not enough path segments: %w", stem, domain.ErrNamingConvention)
	}
	if len(segs[4]) < 3 || len(segs[5]) < 3 {
		return nil, fmt.Errorf("%q: short box or folder segment: %w", stem, domain.ErrNamingConvention)
	}
	parts := []string{
		segs[0] + "_" + segs[1],
		segs[2],
		segs[3],
		"BX00" + segs[4][1:3],
		"FL00" + segs[5][1:3],
	}
	if len(segs) > 6 {
		parts = append(parts, segs[6])
	}
	if len(segs) > 7 {
		parts = append(parts, segs[7])
	}
	return parts, nil
}

// DocumentPath returns the description path of a document id,
// e.g. NABWH_001/SG1/S19/BX0001/FL0001/D01.
func DocumentPath(docID string) (string, error) {
	parts, err := PathParts(docID)
	if err != nil {
		return "", err
	}
	if len(parts) < 6 {
		return "", fmt.Errorf("%q: no document segment: %w", docID, domain.ErrNamingConvention)
	}
	return strings.Join(parts[:6], "/"), nil
}

// FolderPath returns the description path of the folder holding a document.
func FolderPath(docID string) (string, error) {
	parts, err := PathParts(docID)
	if err != nil {
		return "", err
	}
	return strings.Join(parts[:5], "/"), nil
}
