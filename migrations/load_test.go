package migrations

import (
	"testing"
	"testing/fstest"
)

func TestLoadOrdersAndSkipsEmpty(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"010_later.sql":  {Data: []byte("CREATE TABLE later (id INT);")},
		"002_second.sql": {Data: []byte("  \n\t")},
		"001_first.sql":  {Data: []byte("\nCREATE TABLE first (id INT);\n")},
		"README.md":      {Data: []byte("not a migration")},
	}
	got, err := load(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].Name != "001_first.sql" || got[1].Name != "010_later.sql" {
		t.Fatalf("migrations = %+v", got)
	}
	if got[0].SQL != "CREATE TABLE first (id INT);" {
		t.Fatalf("sql not trimmed: %q", got[0].SQL)
	}
}
