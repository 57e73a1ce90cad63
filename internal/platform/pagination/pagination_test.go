package pagination

import "testing"

func TestClampLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 20},
		{5, 5},
		{100, 100},
		{101, 100},
		{-3, 1},
	}
	for _, tc := range cases {
		if got := ClampLimit(tc.in, DefaultLimits); got != tc.want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClampSkip(t *testing.T) {
	if _, err := ClampSkip(-1); err == nil {
		t.Fatal("expected negative skip to fail")
	}
	if got, err := ClampSkip(7); err != nil || got != 7 {
		t.Fatalf("ClampSkip(7) = %d, %v", got, err)
	}
}

func TestNormalizeSort(t *testing.T) {
	cfg := SortConfig{Default: "created_at", Allowed: []string{"created_at", "due_at"}}

	got, err := NormalizeSort("", cfg)
	if err != nil || got != "created_at" {
		t.Fatalf("default sort = %q, %v", got, err)
	}
	got, err = NormalizeSort("due_at", cfg)
	if err != nil || got != "due_at" {
		t.Fatalf("due_at sort = %q, %v", got, err)
	}
	if _, err := NormalizeSort("title; DROP TABLE tasks", cfg); err == nil {
		t.Fatal("expected unknown sort key to fail")
	}
}

func TestParseOrder(t *testing.T) {
	if got, err := ParseOrder("", Desc); err != nil || got != Desc {
		t.Fatalf("default order = %q, %v", got, err)
	}
	if got, err := ParseOrder("ASC", Desc); err != nil || got != Asc {
		t.Fatalf("ASC order = %q, %v", got, err)
	}
	if _, err := ParseOrder("sideways", Desc); err == nil {
		t.Fatal("expected invalid order to fail")
	}
	if Desc.SQL() != "DESC" || Asc.SQL() != "ASC" {
		t.Fatal("unexpected SQL keywords")
	}
}
