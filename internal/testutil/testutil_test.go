// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func fetchEnvelope(url string) (envelope, error) {
	c := &http.Client{Timeout: 5 * time.Second}
	var env envelope
	resp, err := c.Get(url)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&env)
	return env, err
}

func TestFailNextWithHold_FaultAnswersFirst(t *testing.T) {
	f := NewFakeAPI(t)
	release, arrived := f.Hold("GET", "/api/tunnels")
	defer release()
	f.FailNext("GET", "/api/tunnels", 1, "boom")

	env, err := fetchEnvelope(f.URL() + "/api/tunnels")
	if err != nil || env.Code != 1 || env.Msg != "boom" {
		t.Fatalf("expected the fault, got %+v, %v", env, err)
	}
	select {
	case <-arrived:
		t.Fatalf("the faulted request must not consume the hold")
	default:
	}

	done := make(chan error, 1)
	go func() {
		env, err := fetchEnvelope(f.URL() + "/api/tunnels")
		if err == nil && env.Code != 0 {
			err = fmt.Errorf("unexpected envelope %+v", env)
		}
		done <- err
	}()
	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		t.Fatalf("next request was not held")
	}
	release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected success after release: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("held request never completed")
	}
}
