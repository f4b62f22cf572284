package handlers

import (
	"testing"
)

func TestParseWish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		text        string
		wantErr     bool
		wantTitle   string
		wantHorizon string
		wantDue     string
	}{
		{
			name:      "plain title",
			text:      "/add weekend in the mountains",
			wantTitle: "weekend in the mountains",
		},
		{
			name:        "with options",
			text:        "/add picnic by the lake horizon:soon due:2025-07-01",
			wantTitle:   "picnic by the lake",
			wantHorizon: "soon",
			wantDue:     "2025-07-01",
		},
		{
			name:      "options before title",
			text:      "/add horizon:someday big trip",
			wantTitle:   "big trip",
			wantHorizon: "someday",
		},
		{name: "no title", text: "/add", wantErr: true},
		{name: "only options", text: "/add horizon:soon", wantErr: true},
		{name: "bad due date", text: "/add picnic due:tomorrow", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			wish, err := parseWish(tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", wish)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseWish: %v", err)
			}
			if wish.Title != tc.wantTitle {
				t.Errorf("title = %q, want %q", wish.Title, tc.wantTitle)
			}
			if got := wish.Horizon.String; got != tc.wantHorizon {
				t.Errorf("horizon = %q, want %q", got, tc.wantHorizon)
			}
			if got := wish.DueDate.String; got != tc.wantDue {
				t.Errorf("due = %q, want %q", got, tc.wantDue)
			}
		})
	}
}
