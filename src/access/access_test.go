package access

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func TestPassword(t *testing.T) {
	at := time.Unix(1700000000, 0)
	if got := Password("secret", at); got != "170000000secret" {
		t.Fatalf("unexpected password: %s", got)
	}
	// the password changes every ten seconds
	if Password("secret", at) == Password("secret", at.Add(10*time.Second)) {
		t.Fatalf("password must rotate")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(Password("secret", at)), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(Password("secret", at.Add(time.Second)))); err != nil {
		t.Fatalf("hash must match within the same ten seconds: %v", err)
	}
}

func TestIsMonitor(t *testing.T) {
	cases := map[string]bool{
		"MON-127.0.0.1": true,
		"OM-127.0.0.1":  false,
		"MONITOR":       false,
		"":              false,
	}
	for id, want := range cases {
		if got := IsMonitor(id); got != want {
			t.Errorf("IsMonitor(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		header string
		url    string
		want   string
	}{
		{name: "header", header: "Bearer abc", url: "/", want: "abc"},
		{name: "query", url: "/?token=xyz", want: "xyz"},
		{name: "header wins", header: "Bearer abc", url: "/?token=xyz", want: "abc"},
		{name: "not bearer", header: "Basic abc", url: "/", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			if got := BearerToken(c); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
