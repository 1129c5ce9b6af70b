package jobapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldingest/internal/jobapi"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*jobapi.Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	client := jobapi.NewClient(jobapi.Config{BaseURL: srv.URL + "/", Token: "secret"})
	return client, &calls
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func TestSubmitParseUsesModeRoute(t *testing.T) {
	client, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job_id": 42})
	})

	id, err := client.SubmitParse(context.Background(), jobapi.ModeImage, "/field/2024-06-03-JB", "JB")
	if err != nil {
		t.Fatalf("SubmitParse returned error: %v", err)
	}
	if id != "42" {
		t.Fatalf("expected numeric job id to be stringified, got %q", id)
	}
	call := (*calls)[0]
	if call.method != http.MethodPost || call.path != "/ingest/parse_images" {
		t.Fatalf("unexpected request %s %s", call.method, call.path)
	}
	if call.auth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", call.auth)
	}
	if call.body["source_dir"] != "/field/2024-06-03-JB" || call.body["observer_code"] != "JB" {
		t.Fatalf("unexpected body: %v", call.body)
	}
}

func TestSubmitParseRejectsUnknownMode(t *testing.T) {
	client := jobapi.NewClient(jobapi.Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.SubmitParse(context.Background(), jobapi.Mode("audio"), "/x", "JB"); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestJobStatusNormalizesCase(t *testing.T) {
	client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "completed", "error": nil})
	})
	report, err := client.JobStatus(context.Background(), "7")
	if err != nil {
		t.Fatalf("JobStatus returned error: %v", err)
	}
	if report.Status != jobapi.StatusCompleted || report.Error != "" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestJobTasksFlattensMap(t *testing.T) {
	client, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"2": map[string]any{"status": "INCOMPLETE", "progress": 40},
			"1": map[string]any{"status": "completed", "progress": 100},
		})
	})
	tasks, err := client.JobTasks(context.Background(), "9")
	if err != nil {
		t.Fatalf("JobTasks returned error: %v", err)
	}
	if (*calls)[0].path != "/ingest/job/9/tasks" {
		t.Fatalf("unexpected path %s", (*calls)[0].path)
	}
	if len(tasks) != 2 || tasks[0].ID != "1" || tasks[0].Status != jobapi.StatusCompleted || tasks[1].Progress != 40 {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestSubmitSampleImagesKeysByBucket(t *testing.T) {
	client, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job_id": "s-1"})
	})
	id, err := client.SubmitSampleImages(context.Background(), map[string]string{"small": "/a.jpg", "xlarge": "/c.jpg"})
	if err != nil || id != "s-1" {
		t.Fatalf("SubmitSampleImages = %q, %v", id, err)
	}
	body := (*calls)[0].body
	if body["small_image_file_path"] != "/a.jpg" || body["xlarge_image_file_path"] != "/c.jpg" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["medium_image_file_path"]; ok {
		t.Fatalf("expected empty buckets to be omitted: %v", body)
	}
}

func TestValidationRoutes(t *testing.T) {
	client, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ingest/validate_path_lengths/video":
			writeJSON(w, true)
		case "/ingest/validate_non_existence/video":
			writeJSON(w, []string{"/out/a.mp4"})
		default:
			http.NotFound(w, r)
		}
	})
	req := jobapi.ValidationRequest{
		Mode:         jobapi.ModeVideo,
		SourceDir:    "/field/2024-06-03-JB",
		ObserverCode: "JB",
		Files:        []jobapi.PathRename{{FilePath: "/field/2024-06-03-JB/a.mov", NewName: "a"}},
	}
	tooLong, err := client.ValidatePathLengths(context.Background(), req)
	if err != nil || !tooLong {
		t.Fatalf("ValidatePathLengths = %v, %v", tooLong, err)
	}
	existing, err := client.ValidateNonExistence(context.Background(), req)
	if err != nil || len(existing) != 1 {
		t.Fatalf("ValidateNonExistence = %v, %v", existing, err)
	}
	list, ok := (*calls)[0].body["file_path_list"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected file_path_list in body, got %v", (*calls)[0].body)
	}
	if _, ok := (*calls)[0].body["Mode"]; ok {
		t.Fatal("mode must travel in the route, not the body")
	}
}

func TestSubmitTranscodePayload(t *testing.T) {
	client, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job_id": 5})
	})
	_, err := client.SubmitTranscode(context.Background(), jobapi.TranscodeRequest{
		Mode:            jobapi.ModeImage,
		SourceDir:       "/field/2024-06-03-JB",
		LocalExportPath: "/out",
		Settings:        []jobapi.ImageSettings{{FilePath: "/field/a.jpg", NewName: "a", JPEGQuality: 90, IsDark: true}},
		ObserverCode:    "JB",
	})
	if err != nil {
		t.Fatalf("SubmitTranscode returned error: %v", err)
	}
	body := (*calls)[0].body
	if body["media_type"] != "image" || body["local_export_path"] != "/out" || body["report_dir"] != "" {
		t.Fatalf("unexpected body: %v", body)
	}
	list := body["transcode_list"].([]any)
	entry := list[0].(map[string]any)
	if entry["jpeg_quality"] != float64(90) || entry["is_dark"] != true {
		t.Fatalf("unexpected settings entry: %v", entry)
	}
}

func TestErrorResponsesDecodeMessage(t *testing.T) {
	client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": "source_dir missing"})
	})
	_, err := client.DarkData(context.Background(), "3")
	var apiErr *jobapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *jobapi.Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "source_dir missing" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestDeleteAndListRoutes(t *testing.T) {
	client, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ingest/job" {
			writeJSON(w, []map[string]any{{"id": 3, "name": "2024-06-03-JB", "status": "INCOMPLETE"}})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()
	if err := client.DeleteSampleImages(ctx); err != nil {
		t.Fatalf("DeleteSampleImages: %v", err)
	}
	if err := client.DeleteDarkSampleImages(ctx, "11"); err != nil {
		t.Fatalf("DeleteDarkSampleImages: %v", err)
	}
	jobs, err := client.Jobs(ctx, false)
	if err != nil || len(jobs) != 1 || jobs[0].ID != "3" {
		t.Fatalf("Jobs = %+v, %v", jobs, err)
	}
	want := []string{"/ingest/sample/000", "/ingest/dark_sample/11", "/ingest/job"}
	for i, path := range want {
		if (*calls)[i].path != path {
			t.Fatalf("call %d path = %s, want %s", i, (*calls)[i].path, path)
		}
	}
	if (*calls)[2].query != "completed=false" {
		t.Fatalf("unexpected query %q", (*calls)[2].query)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]jobapi.Mode{"image": jobapi.ModeImage, "Images": jobapi.ModeImage, "VIDEO": jobapi.ModeVideo}
	for in, want := range cases {
		if got, ok := jobapi.ParseMode(in); !ok || got != want {
			t.Fatalf("ParseMode(%q) = %q,%v", in, got, ok)
		}
	}
	if _, ok := jobapi.ParseMode("audio"); ok {
		t.Fatal("expected audio to be rejected")
	}
}
