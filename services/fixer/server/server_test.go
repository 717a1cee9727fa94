// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/fixers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeFixRunner returns a canned result, optionally blocking until
// released so tests can hold a run open.
type fakeFixRunner struct {
	result *fixer.FixResult
	err    error

	mu      sync.Mutex
	lastReq FixRequest
	started chan struct{}
	release chan struct{}
}

func (f *fakeFixRunner) Fix(_ context.Context, req FixRequest) (*fixer.FixResult, error) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func newTestServer(runner FixRunner) *Server {
	registry := fixers.NewDefaultRegistry(fixers.Deps{PHPVersion: "8.3"})
	return New(Config{Version: "test", Mode: gin.TestMode}, runner, registry)
}

func postFix(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/fix", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestFix_Success(t *testing.T) {
	runner := &fakeFixRunner{result: &fixer.FixResult{RunID: "run-42", Passes: 1}}
	s := newTestServer(runner)

	w := postFix(t, s, `{"paths": ["src/"], "level": 6, "smart": true, "php_version": "8.3"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got fixer.FixResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", got.RunID, "run-42")
	}

	if runner.lastReq.Level != 6 || !runner.lastReq.Smart || runner.lastReq.PHPVersion != "8.3" {
		t.Errorf("runner got request %+v", runner.lastReq)
	}
}

func TestFix_MissingPaths(t *testing.T) {
	s := newTestServer(&fakeFixRunner{result: &fixer.FixResult{}})

	w := postFix(t, s, `{"level": 6}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFix_BadPHPVersion(t *testing.T) {
	s := newTestServer(&fakeFixRunner{result: &fixer.FixResult{}})

	w := postFix(t, s, `{"paths": ["src/"], "php_version": "yolo"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFix_BusyReturnsConflict(t *testing.T) {
	runner := &fakeFixRunner{
		result:  &fixer.FixResult{RunID: "slow"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestServer(runner)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- postFix(t, s, `{"paths": ["src/"]}`)
	}()
	<-runner.started

	// Second run while the first is still in flight.
	w := postFix(t, s, `{"paths": ["src/"]}`)
	if w.Code != http.StatusConflict {
		t.Errorf("concurrent status = %d, want %d", w.Code, http.StatusConflict)
	}

	close(runner.release)
	if first := <-done; first.Code != http.StatusOK {
		t.Errorf("first run status = %d, want %d", first.Code, http.StatusOK)
	}
}

func TestFixers_Listing(t *testing.T) {
	s := newTestServer(&fakeFixRunner{result: &fixer.FixResult{}})

	req := httptest.NewRequest(http.MethodGet, "/v1/fixers", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Fixers []FixerInfo `json:"fixers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Fixers) != 20 {
		t.Fatalf("len(fixers) = %d, want 20", len(body.Fixers))
	}
	if body.Fixers[0].Name != "missing_return_type" || body.Fixers[0].Priority != 1 {
		t.Errorf("first fixer = %+v", body.Fixers[0])
	}

	for _, fi := range body.Fixers {
		if fi.Name == "property_hook" && fi.MinVersion != "8.4" {
			t.Errorf("property_hook min version = %q, want %q", fi.MinVersion, "8.4")
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeFixRunner{result: &fixer.FixResult{}})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health body = %v", body)
	}
}
