package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/thoreinstein/locbak/internal/backup"
)

func TestSnapshot(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"App.razor":         "app",
		"Pages/Index.razor": "index",
		"Program.cs":        "main",
	})

	var buf bytes.Buffer
	if err := runSnapshotWithWriter(&buf, afero.NewOsFs(), p, []string{"*.razor"}, true); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.Contains(buf.String(), "Archived 2 files") {
		t.Errorf("output = %q", buf.String())
	}

	catalog, err := backup.NewCatalog(p.base, p.opts...)
	if err != nil {
		t.Fatal(err)
	}
	latest, err := catalog.Latest()
	if err != nil {
		t.Fatal(err)
	}
	entries, err := catalog.Entries(latest.Name)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	if strings.Join(got, ",") != "App.razor,Pages/Index.razor" {
		t.Errorf("entries = %v", got)
	}
	if readTestFile(t, p.base, "App.razor") != "app" {
		t.Error("snapshot must not modify files")
	}
}

func TestSnapshot_SecondRunSkipsBackupDir(t *testing.T) {
	p := newTestProject(t, map[string]string{"a.zip": "not an archive"})

	var buf bytes.Buffer
	for range 2 {
		if err := runSnapshotWithWriter(&buf, afero.NewOsFs(), p, []string{"*.zip"}, true); err != nil {
			t.Fatal(err)
		}
	}
	if strings.Count(buf.String(), "Archived 1 file ") != 2 {
		t.Errorf("archives from the first run must not be snapshotted:\n%s", buf.String())
	}
}

func TestSnapshot_NoMatch(t *testing.T) {
	p := newTestProject(t, map[string]string{"Program.cs": "main"})

	var buf bytes.Buffer
	if err := runSnapshotWithWriter(&buf, afero.NewOsFs(), p, []string{"*.razor"}, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No files matched") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSnapshot_DryRunOnReadOnlyFs(t *testing.T) {
	p := newTestProject(t, map[string]string{"App.razor": "app"})
	p.dryRun = true
	p.opts = append(p.opts, backup.WithDryRun(true))

	var buf bytes.Buffer
	fs := afero.NewReadOnlyFs(afero.NewOsFs())
	if err := runSnapshotWithWriter(&buf, fs, p, []string{"*.razor"}, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Would archive 1 file") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSnapshot_NestedBackupDir(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"App.razor":              "app",
		"Pages/.bak/Draft.razor": "draft",
	}, backup.WithBackupDirName("tools/.bak"))

	var buf bytes.Buffer
	if err := runSnapshotWithWriter(&buf, afero.NewOsFs(), p, []string{"*.razor"}, true); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.Contains(buf.String(), "Archived 2 files") {
		t.Errorf("directories sharing the backup dir's base name must be scanned:\n%s", buf.String())
	}

	buf.Reset()
	if err := runSnapshotWithWriter(&buf, afero.NewOsFs(), p, []string{"tools/.bak/*.zip"}, false); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.Contains(buf.String(), "No files matched") {
		t.Errorf("a pattern inside the backup dir must match nothing:\n%s", buf.String())
	}
}
