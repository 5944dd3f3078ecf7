package request

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/courts/1/availability?date=2025-06-17", nil)

	day, err := ParseDate(r, "date")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}

	want := time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)
	if !day.Equal(want) {
		t.Fatalf("got %v, want %v", day, want)
	}
	if day.Weekday() != time.Tuesday {
		t.Fatalf("got weekday %v, want Tuesday", day.Weekday())
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, url := range []string{
		"/x?date=17-06-2025",
		"/x?date=2025-13-01",
		"/x",
	} {
		r := httptest.NewRequest(http.MethodGet, url, nil)
		if _, err := ParseDate(r, "date"); err == nil {
			t.Errorf("expected error for %s", url)
		}
	}
}

func TestParsePage_Defaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?page=0&pageSize=abc", nil)
	page, size := ParsePage(r, 10)
	if page != 1 || size != 10 {
		t.Fatalf("got page=%d size=%d, want 1/10", page, size)
	}

	r = httptest.NewRequest(http.MethodGet, "/x?page=3&pageSize=25", nil)
	page, size = ParsePage(r, 10)
	if page != 3 || size != 25 {
		t.Fatalf("got page=%d size=%d, want 3/25", page, size)
	}
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("987654321", "PE")
	if err != nil {
		t.Fatalf("NormalizePhone: %v", err)
	}
	if got != "+51987654321" {
		t.Fatalf("got %q, want +51987654321", got)
	}

	got, err = NormalizePhone("", "PE")
	if err != nil || got != "" {
		t.Fatalf("empty phone should pass through, got %q err %v", got, err)
	}

	if _, err := NormalizePhone("12", "PE"); err == nil {
		t.Fatal("expected error for short number")
	}
}
