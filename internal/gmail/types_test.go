package gmail

import (
	"reflect"
	"testing"
)

func TestDraftMetaHeader(t *testing.T) {
	d := DraftMeta{Headers: map[string]string{"To": "a@example.com", "subject": "Hi"}}
	if got := d.Header("To"); got != "a@example.com" {
		t.Fatalf("To = %q", got)
	}
	if got := d.Header("Subject"); got != "Hi" {
		t.Fatalf("Subject = %q, want case-insensitive match", got)
	}
	if got := d.Header("Cc"); got != "" {
		t.Fatalf("Cc = %q, want empty", got)
	}
	if got := (DraftMeta{}).Header("To"); got != "" {
		t.Fatalf("nil headers gave %q", got)
	}
}

func TestPrimarySignature(t *testing.T) {
	ids := []SendAs{
		{Email: "alias@example.com", Signature: "<b>alias</b>"},
		{Email: "me@example.com", Signature: "<b>me</b>", IsPrimary: true},
	}
	if got := PrimarySignature(ids); got != "<b>me</b>" {
		t.Fatalf("got %q", got)
	}
	if got := PrimarySignature(ids[:1]); got != "" {
		t.Fatalf("no primary gave %q", got)
	}
}

func TestSplitAddresses(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a@example.com", []string{"a@example.com"}},
		{" a@example.com , b@example.com,, ", []string{"a@example.com", "b@example.com"}},
	}
	for _, tt := range tests {
		if got := SplitAddresses(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitAddresses(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
