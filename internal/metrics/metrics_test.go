package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpsHandlerServesScrapeEndpoint(t *testing.T) {
	JobRuns.WithLabelValues("channel_snapshot", "succeeded").Inc()

	srv := httptest.NewServer(OpsHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "channelpulse_job_runs_total") {
		t.Fatal("scrape output missing job run counter")
	}
}

func TestOpsHandlerServesHealthz(t *testing.T) {
	srv := httptest.NewServer(OpsHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/v1/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("unexpected healthz body: %s", body)
	}
}
