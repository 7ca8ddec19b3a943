package setlistfm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/config"
	"github.com/justestif/go-setlist-to-playlist/internal/logging"
)

const setlistJSON = `{
	"id": "63de4613",
	"versionId": "7be1aaa0",
	"eventDate": "01-02-2024",
	"artist": {"mbid": "67f66c07", "name": "Foo Bar Fighters"},
	"venue": {
		"id": "5bd6e0a4",
		"name": "Madison Square Garden",
		"city": {
			"id": "5128581",
			"name": "New York",
			"coords": {"lat": 40.714, "long": -74.006},
			"country": {"code": "US", "name": "United States"}
		}
	},
	"sets": {"set": [
		{"song": [{"name": "Song1"}, {"name": ""}, {"name": "Song2"}]},
		{"encore": 1, "song": [{"name": "Song3", "info": "acoustic"}]}
	]}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.SetlistfmConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/rest/1.0/",
	}, logging.Discard())
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "setlist page",
			url:  "https://www.setlist.fm/setlist/foo-bar-fighters/2024/madison-square-garden-new-york-ny-63de4613.html",
			want: "63de4613",
		},
		{
			name: "slug and id",
			url:  "https://www.setlist.fm/setlist/foo-bar-2023-abc123.html",
			want: "abc123",
		},
		{
			name: "no html suffix",
			url:  "https://www.setlist.fm/setlist/foo-abc123",
			want: "abc123",
		},
		{
			name: "no dash returns whole url",
			url:  "abc123.html",
			want: "abc123",
		},
		{
			name: "empty",
			url:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractID(tt.url); got != tt.want {
				t.Errorf("ExtractID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		if r.URL.Path != "/rest/1.0/setlist/63de4613" {
			t.Errorf("path = %q, want /rest/1.0/setlist/63de4613", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(setlistJSON))
	})

	setlist, err := client.Resolve(context.Background(), "https://www.setlist.fm/setlist/foo-bar-fighters/2024/madison-square-garden-new-york-ny-63de4613.html")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if setlist.ID != "63de4613" {
		t.Errorf("ID = %q, want 63de4613", setlist.ID)
	}
	if setlist.ArtistName() != "Foo Bar Fighters" {
		t.Errorf("ArtistName() = %q", setlist.ArtistName())
	}
	if setlist.VenueName() != "Madison Square Garden" || setlist.CityName() != "New York" {
		t.Errorf("venue = %q, %q", setlist.VenueName(), setlist.CityName())
	}
	if setlist.Venue.City.Coords.Lat != 40.714 {
		t.Errorf("Coords.Lat = %v, want 40.714", setlist.Venue.City.Coords.Lat)
	}

	want := []string{"Song1", "", "Song2", "Song3"}
	if got := setlist.Songs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Songs() = %v, want %v", got, want)
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
	}{
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       `{"code":404,"status":"Not Found","message":"not found"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad api key",
			status:     http.StatusForbidden,
			body:       ``,
			wantStatus: http.StatusForbidden,
		},
		{
			name:    "unparseable body",
			status:  http.StatusOK,
			body:    `<html>oops</html>`,
			wantErr: apperrors.ErrMalformedResponse,
		},
		{
			name:    "body without id",
			status:  http.StatusOK,
			body:    `{"eventDate":"01-02-2024"}`,
			wantErr: apperrors.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Resolve(context.Background(), "https://www.setlist.fm/setlist/x-abc.html")
			if err == nil {
				t.Fatal("Resolve() error = nil, want error")
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantStatus != 0 {
				var upstream *apperrors.UpstreamError
				if !errors.As(err, &upstream) {
					t.Fatalf("Resolve() error = %v, want UpstreamError", err)
				}
				if upstream.Status != tt.wantStatus || upstream.Service != "setlist.fm" {
					t.Errorf("UpstreamError = %+v, want setlist.fm status %d", upstream, tt.wantStatus)
				}
			}
		})
	}
}

func TestResolve_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	client.limiter = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Resolve(ctx, "https://www.setlist.fm/setlist/x-abc.html"); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestSetlist_Date(t *testing.T) {
	tests := []struct {
		date    string
		want    string
		wantErr bool
	}{
		{date: "01-02-2024", want: "2024-02-01"},
		{date: "1-2-2024", want: "2024-02-01"},
		{date: "31-12-1999", want: "1999-12-31"},
		{date: "2024-02-01", wantErr: true},
		{date: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			s := &Setlist{EventDate: tt.date}
			got, err := s.Date()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Date() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Format("2006-01-02") != tt.want {
				t.Errorf("Date() = %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}
