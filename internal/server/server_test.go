package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
	"github.com/nuno18084/Ampflux-sub000/pkg/sim"
	"github.com/nuno18084/Ampflux-sub000/pkg/store"
)

type stubRunner struct {
	result sim.Result
	err    error
}

func (s stubRunner) Run(ctx context.Context, projectID, graph string) (sim.Result, error) {
	return s.result, s.err
}

func newTestServer(t *testing.T, runner sim.Runner) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	versions := store.NewMemoryStore()
	srv := httptest.NewServer(New(versions, runner, log.New(io.Discard)).Router())
	t.Cleanup(srv.Close)
	return srv, versions
}

const emptySnapshot = `{"components":[],"connections":[],"viewState":{"zoom":1,"pan":{"x":0,"y":0}}}`

func saveVersion(t *testing.T, srv *httptest.Server, project, body, role string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/projects/"+project+"/versions", strings.NewReader(body))
	if role != "" {
		req.Header.Set(RoleHeader, role)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("save request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSaveVersionAppendsAndReturnsRecord(t *testing.T) {
	srv, versions := newTestServer(t, nil)

	resp := saveVersion(t, srv, "p1", emptySnapshot, "editor")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var rec store.VersionRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Number != 1 || rec.Project != "p1" {
		t.Errorf("record = %+v", rec)
	}

	resp2 := saveVersion(t, srv, "p1", emptySnapshot, "owner")
	var rec2 store.VersionRecord
	json.NewDecoder(resp2.Body).Decode(&rec2)
	if rec2.Number != 2 {
		t.Errorf("second save number = %d, want 2", rec2.Number)
	}

	latest, err := versions.Latest(context.Background(), "p1")
	if err != nil || latest.Number != 2 {
		t.Errorf("store latest = %+v err = %v", latest, err)
	}
}

func TestSaveVersionPermissionGate(t *testing.T) {
	srv, versions := newTestServer(t, nil)

	tests := []struct {
		name string
		role string
		want int
	}{
		{"Viewer", "viewer", http.StatusForbidden},
		{"NoRole", "", http.StatusForbidden},
		{"Editor", "editor", http.StatusCreated},
		{"Owner", "owner", http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := saveVersion(t, srv, "gate", emptySnapshot, tt.role)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	// Only the permitted saves landed.
	records, _ := versions.LatestVersions(context.Background(), "gate", 0)
	if len(records) != 2 {
		t.Errorf("stored versions = %d, want 2", len(records))
	}
}

func TestSaveVersionRejectsMalformedSnapshot(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := saveVersion(t, srv, "p1", "{not a snapshot", "editor")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLatestGraphRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	saveVersion(t, srv, "p1", emptySnapshot, "editor")

	resp, err := http.Get(srv.URL + "/api/projects/p1/graph")
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if _, err := schematic.UnmarshalSnapshot(body); err != nil {
		t.Errorf("returned graph unparseable: %v", err)
	}
}

func TestLatestGraphUnknownProjectIsEmptySnapshot(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/projects/ghost/graph")
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	snap, err := schematic.UnmarshalSnapshot(body)
	if err != nil {
		t.Fatalf("body unparseable: %v", err)
	}
	if len(snap.Components) != 0 {
		t.Errorf("components = %d, want 0", len(snap.Components))
	}
}

func TestListVersions(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for i := 0; i < 3; i++ {
		saveVersion(t, srv, "p1", emptySnapshot, "editor")
	}

	resp, err := http.Get(srv.URL + "/api/projects/p1/versions?limit=2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()

	var records []store.VersionRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 || records[0].Number != 3 || records[1].Number != 2 {
		t.Errorf("records = %+v", records)
	}
}

func TestListVersionsEmptyProject(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/projects/ghost/versions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestSimulateProxiesResult(t *testing.T) {
	srv, _ := newTestServer(t, stubRunner{result: sim.Result{OK: true, Raw: json.RawMessage(`{"v":1}`)}})

	resp, err := http.Post(srv.URL+"/api/projects/p1/simulate", "application/json", strings.NewReader(emptySnapshot))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result sim.Result
	json.NewDecoder(resp.Body).Decode(&result)
	if !result.OK {
		t.Errorf("result = %+v", result)
	}
}

func TestSimulateFailures(t *testing.T) {
	t.Run("NotConfigured", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Post(srv.URL+"/api/projects/p1/simulate", "application/json", strings.NewReader(emptySnapshot))
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})

	t.Run("RunnerError", func(t *testing.T) {
		srv, _ := newTestServer(t, stubRunner{err: errors.New("sim down")})
		resp, err := http.Post(srv.URL+"/api/projects/p1/simulate", "application/json", strings.NewReader(emptySnapshot))
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", resp.StatusCode)
		}
	})
}
