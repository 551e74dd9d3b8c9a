package benchmark

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
)

// Run against a live server:
//
//	IDENTITY_BENCH_URL=http://localhost:3000 IDENTITY_BENCH_EMAIL=... IDENTITY_BENCH_PASSWORD=... go test -bench . ./benchmark
func benchTarget(b *testing.B) (url, email, password string) {
	url = os.Getenv("IDENTITY_BENCH_URL")
	email = os.Getenv("IDENTITY_BENCH_EMAIL")
	password = os.Getenv("IDENTITY_BENCH_PASSWORD")
	if url == "" || email == "" || password == "" {
		b.Skip("IDENTITY_BENCH_URL, IDENTITY_BENCH_EMAIL and IDENTITY_BENCH_PASSWORD are required")
	}
	return url, email, password
}

func login(b *testing.B, url, email, password string) *http.Response {
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	resp, err := http.Post(url+"/auth/login", "application/json", strings.NewReader(body))
	if err != nil {
		b.Fatal(err)
	}
	_ = resp.Body.Close()
	return resp
}

func BenchmarkSessions(b *testing.B) {
	url, email, password := benchTarget(b)

	b.Run("POST /auth/login", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			if resp := login(b, url, email, password); resp.StatusCode != http.StatusOK {
				b.Fatalf("login returned %d", resp.StatusCode)
			}
		}
	})

	b.Run("GET /auth/me", func(b *testing.B) {
		var token string
		for _, c := range login(b, url, email, password).Cookies() {
			if c.Name == "cayopay_session" {
				token = c.Value
			}
		}
		if token == "" {
			b.Fatal("login did not set a session cookie")
		}

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			r, _ := http.NewRequest("GET", url+"/auth/me", nil)
			r.Header.Add("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(r)
			if err != nil {
				b.Fatal(err)
			}
			_ = resp.Body.Close()
		}
	})
}
