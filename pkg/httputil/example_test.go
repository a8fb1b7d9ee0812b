package httputil_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/tupakrantina/backoffice/pkg/httputil"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// Example_doJSON posts a payload and decodes the JSON answer
func Example_doJSON() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Numbers []string `json:"numbers"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"exists": true, "number": in.Numbers[0]},
		})
	}))
	defer srv.Close()

	client := httputil.New(logger.Nop())

	var out []struct {
		Exists bool   `json:"exists"`
		Number string `json:"number"`
	}
	err := client.DoJSON(context.Background(), http.MethodPost, srv.URL,
		map[string][]string{"numbers": {"15551234567"}}, &out)
	if err != nil {
		fmt.Println("request failed:", err)
		return
	}

	fmt.Println(out[0].Number, out[0].Exists)
	// Output:
	// 15551234567 true
}

// Example_statusError shows how a non-2xx answer surfaces
func Example_statusError() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad apikey", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := httputil.New(logger.Nop()).DisableRetry()

	err := client.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		fmt.Println(statusErr.StatusCode)
	}
	// Output:
	// 401
}
