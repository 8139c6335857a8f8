package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeJudge0 serves the two-endpoint Judge0 contract. Each call to
// /submissions/{token} pops the next scripted result.
type fakeJudge0 struct {
	t       *testing.T
	results []rawResult
	polls   atomic.Int32
	creates atomic.Int32
}

func (f *fakeJudge0) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/submissions":
			f.creates.Add(1)
			if got := r.URL.Query().Get("wait"); got != "false" {
				f.t.Errorf("create: wait=%q, want false", got)
			}
			if got := r.URL.Query().Get("base64_encoded"); got != "false" {
				f.t.Errorf("create: base64_encoded=%q, want false", got)
			}
			var sub SubmissionRequest
			if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
				f.t.Errorf("create: bad body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/submissions/"):
			n := int(f.polls.Add(1)) - 1
			if n >= len(f.results) {
				n = len(f.results) - 1
			}
			json.NewEncoder(w).Encode(f.results[n])
		default:
			http.NotFound(w, r)
		}
	})
}

func strptr(s string) *string { return &s }

func TestSubmitAndWait_TerminalOnSecondPoll(t *testing.T) {
	fake := &fakeJudge0{t: t, results: []rawResult{
		{Status: Status{ID: 2, Description: "Processing"}},
		{Stdout: strptr("2\n"), Status: Status{ID: 3, Description: "Accepted"}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	interval := 20 * time.Millisecond
	start := time.Now()
	res, err := c.SubmitAndWait(context.Background(), SubmissionRequest{
		SourceCode: "print(1+1)", LanguageID: 71,
	}, Options{PollInterval: interval, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	if res.Status.ID != 3 {
		t.Errorf("status.id = %d, want 3", res.Status.ID)
	}
	if res.Stdout != "2\n" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "2\n")
	}
	if got := fake.polls.Load(); got != 2 {
		t.Errorf("polls = %d, want 2", got)
	}
	// One inter-poll delay plus scheduling slack.
	if elapsed := time.Since(start); elapsed > 2*interval+500*time.Millisecond {
		t.Errorf("took %v, expected about one poll interval", elapsed)
	}
}

func TestSubmitAndWait_ClientTimeout(t *testing.T) {
	fake := &fakeJudge0{t: t, results: []rawResult{
		{Stdout: strptr("partial"), Status: Status{ID: 1, Description: "In Queue"}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	res, err := c.SubmitAndWait(context.Background(), SubmissionRequest{
		SourceCode: "while True: pass", LanguageID: 71,
	}, Options{PollInterval: 10 * time.Millisecond, Timeout: 35 * time.Millisecond})
	if err != nil {
		t.Fatalf("SubmitAndWait returned error on timeout: %v", err)
	}
	if res.Status.ID != ClientTimeoutStatusID {
		t.Errorf("status.id = %d, want %d", res.Status.ID, ClientTimeoutStatusID)
	}
	if res.CompileOutput == "" {
		t.Error("compile_output is empty, want timeout message")
	}
	if res.Stdout != "partial" {
		t.Errorf("stdout = %q, want last observed output preserved", res.Stdout)
	}
}

func TestSubmitAndWait_CreateErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.SubmitAndWait(context.Background(), SubmissionRequest{SourceCode: "x"}, Options{
		PollInterval: 10 * time.Millisecond, Timeout: time.Second,
	})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", se.Code)
	}
	if !strings.Contains(se.Detail, "queue unavailable") {
		t.Errorf("detail = %q, want upstream body", se.Detail)
	}
}

func TestGetSubmission_SendsAPIKey(t *testing.T) {
	var gotKey, gotRapid string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotRapid = r.Header.Get("X-RapidAPI-Key")
		fmt.Fprint(w, `{"status":{"id":3,"description":"Accepted"}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"})
	if _, err := c.GetSubmission(context.Background(), "tok"); err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if gotKey != "secret" || gotRapid != "secret" {
		t.Errorf("auth headers = %q/%q, want both %q", gotKey, gotRapid, "secret")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   *string
		want string
	}{
		{"nil becomes empty", nil, ""},
		{"plain text unchanged", strptr("hello\n"), "hello\n"},
		{"trailing nuls stripped", strptr("out\x00\x00"), "out"},
		{"interior nul kept", strptr("a\x00b"), "a\x00b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeText(tc.in); got != tc.want {
				t.Errorf("normalizeText = %q, want %q", got, tc.want)
			}
		})
	}
}
