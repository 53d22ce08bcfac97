// SPDX-License-Identifier: MPL-2.0

// Package drp rewrites version markers inside DaVinci Resolve project
// archives.
//
// A .drp file is an ordinary zip container holding named XML and media
// entries. Rewrite copies every entry of an input container to a new output
// container in stored order, patching the project version tag in the main
// descriptor entry and, when requested, the app version annotations in
// auxiliary XML entries. Entries whose names match no rule are copied
// byte-for-byte.
package drp

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"drpver/internal/patch"

	"github.com/charmbracelet/log"
)

// Default entry selection rules. "roject.xml" is a deliberate literal: the
// application has shipped both "Project.xml" and "project.xml" over the
// years, and the suffix match covers both without touching other entries.
const (
	DefaultProjectSuffix = "roject.xml"
	DefaultAuxSuffix     = ".xml"
)

// Rules selects which archive entries the patch rules apply to. Suffix
// matches are case-sensitive literals, not globs.
type Rules struct {
	ProjectSuffix string
	AuxSuffix     string
}

// DefaultRules returns the entry selection rules for stock .drp archives.
func DefaultRules() Rules {
	return Rules{
		ProjectSuffix: DefaultProjectSuffix,
		AuxSuffix:     DefaultAuxSuffix,
	}
}

// Mismatch records one skipped modification: the entry where the existing
// project version did not match the caller's asserted version.
type Mismatch struct {
	Entry    string
	Found    string
	Expected string
}

// Report summarizes one Rewrite run.
type Report struct {
	// Entries is the total number of entries copied to the output.
	Entries int
	// Patched is the number of entries whose content was modified.
	Patched int
	// Mismatches lists the entries where an assertion failed and the
	// modification was skipped.
	Mismatches []Mismatch
}

// EntryVersions holds the version markers found in one archive entry.
// Fields are empty when the corresponding pattern is absent.
type EntryVersions struct {
	Entry string
	// ProjectVersion is the value of the first <ProjectVersion> tag.
	ProjectVersion string
	// AnnotationAppVersion and AnnotationProjectVersion are the values of
	// the first app version annotation.
	AnnotationAppVersion     string
	AnnotationProjectVersion string
}

// Rewriter copies project archives entry by entry, patching version
// markers. The zero value is not usable; construct with NewRewriter.
type Rewriter struct {
	// Diag receives one human-readable line per skipped modification.
	Diag io.Writer
	// Logger receives per-entry debug logging.
	Logger *log.Logger
	// Rules selects the entries the patch rules apply to.
	Rules Rules
}

// NewRewriter returns a Rewriter with default rules, diagnostics on stdout,
// and a logger on stderr.
func NewRewriter() *Rewriter {
	return &Rewriter{
		Diag: os.Stdout,
		Logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "drp",
		}),
		Rules: DefaultRules(),
	}
}

// Rewrite copies the container at inputPath to outputPath, applying the
// patch directive to matching entries. Entries are processed strictly in
// stored order; names and metadata are preserved.
//
// Assertion mismatches are entry-scoped: they produce a diagnostic line and
// an entry in the report, and processing continues. I/O and archive format
// errors abort the whole operation. When the output file cannot be created
// no file is left behind; a failure mid-stream leaves an incomplete output
// container, which callers should treat as invalid.
func (rw *Rewriter) Rewrite(inputPath, outputPath string, d patch.Directive) (*Report, error) {
	in, err := zip.OpenReader(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open project archive %s: %w", inputPath, err)
	}
	defer in.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output archive %s: %w", outputPath, err)
	}
	out := zip.NewWriter(outFile)

	report := &Report{}
	for _, entry := range in.File {
		if err := rw.copyEntry(out, entry, d, report); err != nil {
			out.Close()
			outFile.Close()
			return nil, err
		}
	}

	// Closing the zip writer flushes the central directory; without it the
	// output is not a valid container.
	if err := out.Close(); err != nil {
		outFile.Close()
		return nil, fmt.Errorf("failed to finalize output archive %s: %w", outputPath, err)
	}
	if err := outFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output archive %s: %w", outputPath, err)
	}

	return report, nil
}

// copyEntry reads one entry, applies the matching patch rules, and writes
// the result to the output under the identical header.
func (rw *Rewriter) copyEntry(out *zip.Writer, entry *zip.File, d patch.Directive, report *Report) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", entry.Name, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("failed to read entry %s: %w", entry.Name, err)
	}

	modified := false

	if strings.HasSuffix(entry.Name, rw.Rules.ProjectSuffix) {
		next, changed, perr := patch.ProjectVersion(data, d)
		if perr != nil {
			rw.reportMismatch(entry.Name, perr, report)
		} else if changed {
			rw.Logger.Debug("patched project version", "entry", entry.Name, "version", d.SetVersion)
			data = next
			modified = true
		}
	}

	// The app version rule runs additionally: an entry named Project.xml
	// matches both suffixes and gets both patches.
	if d.SetAppVersion != "" && strings.HasSuffix(entry.Name, rw.Rules.AuxSuffix) {
		next, changed, perr := patch.AppAnnotation(data, d)
		if perr != nil {
			rw.reportMismatch(entry.Name, perr, report)
		} else if changed {
			rw.Logger.Debug("patched app version annotation", "entry", entry.Name,
				"version", d.SetVersion, "app_version", d.SetAppVersion)
			data = next
			modified = true
		}
	}

	report.Entries++
	if modified {
		report.Patched++
	}

	// Copy the header so name, timestamps, mode, and method survive; the
	// writer recomputes sizes and CRC from the data it is given.
	hdr := entry.FileHeader
	w, err := out.CreateHeader(&hdr)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", entry.Name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", entry.Name, err)
	}

	return nil
}

// reportMismatch emits the one-line diagnostic for a skipped modification
// and records it in the report.
func (rw *Rewriter) reportMismatch(entryName string, err error, report *Report) {
	var mm *patch.MismatchError
	if !errors.As(err, &mm) {
		// Patchers only fail with MismatchError; anything else is a bug,
		// but degrade to the generic message rather than dropping it.
		fmt.Fprintf(rw.Diag, "Skipping modification of %s: %v\n", entryName, err)
		return
	}
	fmt.Fprintf(rw.Diag, "Project version %s in %s is not expected version %s. Skipping modification.\n",
		mm.Found, entryName, mm.Expected)
	report.Mismatches = append(report.Mismatches, Mismatch{
		Entry:    entryName,
		Found:    mm.Found,
		Expected: mm.Expected,
	})
}

// Inspect reports the version markers found in the container at inputPath
// without modifying anything. Only entries matching the aux suffix are
// scanned; entries where neither pattern appears are omitted. As with the
// write path, only the first occurrence of each pattern counts.
func (rw *Rewriter) Inspect(inputPath string) ([]EntryVersions, error) {
	in, err := zip.OpenReader(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open project archive %s: %w", inputPath, err)
	}
	defer in.Close()

	var results []EntryVersions
	for _, entry := range in.File {
		if !strings.HasSuffix(entry.Name, rw.Rules.AuxSuffix) {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open entry %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %s: %w", entry.Name, err)
		}

		ev := EntryVersions{Entry: entry.Name}
		matched := false
		if ver, ok := patch.FindProjectVersion(data); ok {
			ev.ProjectVersion = ver
			matched = true
		}
		if appVer, prjVer, ok := patch.FindAppAnnotation(data); ok {
			ev.AnnotationAppVersion = appVer
			ev.AnnotationProjectVersion = prjVer
			matched = true
		}
		if matched {
			rw.Logger.Debug("found version markers", "entry", entry.Name)
			results = append(results, ev)
		}
	}

	return results, nil
}
