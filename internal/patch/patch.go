// SPDX-License-Identifier: MPL-2.0

// Package patch locates and rewrites version tokens inside decoded entry text.
//
// Two fixed textual shapes are recognized:
//   - the project version tag: <ProjectVersion>5</ProjectVersion>, with
//     optional whitespace inside the tag
//   - the app version annotation: <!-- DbAppVer="18.0" DbPrjVer="5" -->,
//     an inline comment carrying the authoring application's version next
//     to the project version
//
// Only the first occurrence of each shape in a blob is authoritative; later
// occurrences pass through untouched. Substitution is pure text surgery on
// the captured spans, so every other byte of the blob (whitespace included)
// survives the rewrite unchanged.
package patch

import (
	"fmt"
	"regexp"
)

// Directive carries the version values for one patch invocation. It is
// immutable for the duration of a run.
type Directive struct {
	// SetVersion is the project version to write.
	SetVersion string
	// AssertVersion, when non-empty, requires the existing project version
	// to equal it before any replacement happens.
	AssertVersion string
	// SetAppVersion, when non-empty, is written into app version
	// annotations. Empty leaves the app version field untouched.
	SetAppVersion string
}

// MismatchError reports that the project version already present in the
// blob differs from the one the caller asserted. The blob is never modified
// when this is returned.
type MismatchError struct {
	// Found is the version actually captured from the blob.
	Found string
	// Expected is the caller's asserted version.
	Expected string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("existing version %q does not match expected version %q", e.Found, e.Expected)
}

// Patterns are compiled once at package scope and shared across calls.
var (
	projectVersionRe = regexp.MustCompile(`<ProjectVersion>\s*(\d+)\s*</ProjectVersion>`)
	appAnnotationRe  = regexp.MustCompile(`<!--\s*DbAppVer="([0-9.]+)"\s+DbPrjVer="([0-9.]+)"\s*-->`)
)

// ProjectVersion replaces the project version captured by the first
// <ProjectVersion> tag in data with d.SetVersion. The second return value
// reports whether data was modified; a blob without the tag is returned
// as-is with no error. A failed assertion returns the original blob and a
// *MismatchError.
func ProjectVersion(data []byte, d Directive) ([]byte, bool, error) {
	m := projectVersionRe.FindSubmatchIndex(data)
	if m == nil {
		return data, false, nil
	}
	found := string(data[m[2]:m[3]])
	if d.AssertVersion != "" && found != d.AssertVersion {
		return data, false, &MismatchError{Found: found, Expected: d.AssertVersion}
	}
	return splice(data, m[2], m[3], d.SetVersion), true, nil
}

// AppAnnotation rewrites the first app version annotation in data. The
// project version field (DbPrjVer) is replaced with d.SetVersion; the app
// version field (DbAppVer) is replaced with d.SetAppVersion only when that
// is non-empty. The assertion, when given, checks the project version
// capture — the app version field is informational and never asserted.
//
// The DbPrjVer span sits after the DbAppVer span, so it is replaced first;
// applying edits in descending span order keeps the earlier span's offsets
// valid regardless of replacement lengths.
func AppAnnotation(data []byte, d Directive) ([]byte, bool, error) {
	m := appAnnotationRe.FindSubmatchIndex(data)
	if m == nil {
		return data, false, nil
	}
	prjFound := string(data[m[4]:m[5]])
	if d.AssertVersion != "" && prjFound != d.AssertVersion {
		return data, false, &MismatchError{Found: prjFound, Expected: d.AssertVersion}
	}
	out := splice(data, m[4], m[5], d.SetVersion)
	if d.SetAppVersion != "" {
		out = splice(out, m[2], m[3], d.SetAppVersion)
	}
	return out, true, nil
}

// FindProjectVersion returns the project version captured by the first
// <ProjectVersion> tag in data, or false when the tag is absent.
func FindProjectVersion(data []byte) (string, bool) {
	m := projectVersionRe.FindSubmatch(data)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// FindAppAnnotation returns the app and project versions captured by the
// first app version annotation in data, or false when no annotation is
// present.
func FindAppAnnotation(data []byte) (appVer, prjVer string, ok bool) {
	m := appAnnotationRe.FindSubmatch(data)
	if m == nil {
		return "", "", false
	}
	return string(m[1]), string(m[2]), true
}

// splice returns a copy of data with data[start:end] replaced by repl.
func splice(data []byte, start, end int, repl string) []byte {
	out := make([]byte, 0, len(data)-(end-start)+len(repl))
	out = append(out, data[:start]...)
	out = append(out, repl...)
	out = append(out, data[end:]...)
	return out
}
