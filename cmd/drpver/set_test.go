// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drpver/internal/config"

	"github.com/spf13/pflag"
)

// runCLI executes the root command with the given args, returning combined
// output. Flag state is reset so cases stay independent.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	setVersion = ""
	assertVersion = ""
	appVersion = ""
	verbose = false
	cfgFile = ""
	// Cobra keeps flag state between Execute calls; clear it so required-flag
	// checks and defaults behave per case.
	setCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	config.SetConfigDirOverride(t.TempDir())
	config.SetConfigFilePathOverride("")
	t.Cleanup(func() {
		config.SetConfigDirOverride("")
		config.SetConfigFilePathOverride("")
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFixtureArchive(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := map[string]string{
		"Project.xml":   `<Project><ProjectVersion>5</ProjectVersion></Project>`,
		"Timeline1.xml": `<!-- DbAppVer="18.0" DbPrjVer="5" --><Timeline/>`,
	}
	for _, name := range []string{"Project.xml", "Timeline1.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func readEntry(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatal(err)
		}
		return buf.String()
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

func TestSetCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.drp")
	out := filepath.Join(dir, "out.drp")
	writeFixtureArchive(t, in)

	output, err := runCLI(t, "set", in, out, "--set-version", "6")
	if err != nil {
		t.Fatalf("set: %v\n%s", err, output)
	}
	if got := readEntry(t, out, "Project.xml"); !strings.Contains(got, "<ProjectVersion>6</ProjectVersion>") {
		t.Errorf("Project.xml = %q", got)
	}
	if !strings.Contains(output, "Patched 1 of 2 entries") {
		t.Errorf("output = %q", output)
	}
}

func TestSetCommandWithAppVersion(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.drp")
	out := filepath.Join(dir, "out.drp")
	writeFixtureArchive(t, in)

	output, err := runCLI(t, "set", in, out, "-s", "6", "--app-version", "18.5")
	if err != nil {
		t.Fatalf("set: %v\n%s", err, output)
	}
	if got := readEntry(t, out, "Timeline1.xml"); !strings.Contains(got, `DbAppVer="18.5" DbPrjVer="6"`) {
		t.Errorf("Timeline1.xml = %q", got)
	}
}

func TestSetCommandAssertionMismatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.drp")
	out := filepath.Join(dir, "out.drp")
	writeFixtureArchive(t, in)

	output, err := runCLI(t, "set", in, out, "-s", "6", "-a", "9")
	if err != nil {
		t.Fatalf("assertion mismatches must not fail the command: %v", err)
	}
	if !strings.Contains(output, "Project version 5") || !strings.Contains(output, "expected version 9") {
		t.Errorf("missing mismatch diagnostic: %q", output)
	}
	if got := readEntry(t, out, "Project.xml"); !strings.Contains(got, "<ProjectVersion>5</ProjectVersion>") {
		t.Errorf("Project.xml must stay unchanged: %q", got)
	}
}

func TestSetCommandMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "set", filepath.Join(dir, "missing.drp"), filepath.Join(dir, "out.drp"), "-s", "6")
	if err == nil {
		t.Fatal("expected an error for a missing input archive")
	}
}

func TestSetCommandRequiresVersionFlag(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.drp")
	writeFixtureArchive(t, in)

	_, err := runCLI(t, "set", in, filepath.Join(dir, "out.drp"))
	if err == nil {
		t.Fatal("expected an error when --set-version is omitted")
	}
}

func TestShowCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.drp")
	writeFixtureArchive(t, in)

	output, err := runCLI(t, "show", in)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, output)
	}
	if !strings.Contains(output, "ProjectVersion=5") {
		t.Errorf("missing project version: %q", output)
	}
	if !strings.Contains(output, "DbAppVer=18.0 DbPrjVer=5") {
		t.Errorf("missing annotation versions: %q", output)
	}
}

func TestShowCommandMissingInput(t *testing.T) {
	_, err := runCLI(t, "show", filepath.Join(t.TempDir(), "missing.drp"))
	if err == nil {
		t.Fatal("expected an error for a missing archive")
	}
}
