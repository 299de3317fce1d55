package stream

import "testing"

func TestBuildURLRewritesSchemes(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/ws/u-1?token=tok"},
		{"https://api.example.com", "wss://api.example.com/ws/u-1?token=tok"},
		{"ws://localhost:8000/", "ws://localhost:8000/ws/u-1?token=tok"},
	}
	for _, tc := range cases {
		got, err := BuildURL(Config{
			BaseURL:   tc.base,
			UserID:    "u-1",
			TokenFunc: func() string { return "tok" },
		})
		if err != nil {
			t.Fatalf("%s: %v", tc.base, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.base, tc.want, got)
		}
	}
}

func TestBuildURLWithoutToken(t *testing.T) {
	got, err := BuildURL(Config{BaseURL: "ws://localhost:8000", UserID: "u-1"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ws://localhost:8000/ws/u-1" {
		t.Errorf("unexpected url %q", got)
	}
}

func TestBuildURLValidation(t *testing.T) {
	if _, err := BuildURL(Config{BaseURL: "ws://localhost"}); err == nil {
		t.Error("missing user id should fail")
	}
	if _, err := BuildURL(Config{UserID: "u-1"}); err == nil {
		t.Error("missing base url should fail")
	}
}
