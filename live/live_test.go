// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package live

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestServer(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := New("07", logger)
	ts := httptest.NewServer(s)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	for i := 0; s.Clients() == 0; i++ {
		if i == 100 {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := beacon.Record{
		Time:   time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local),
		Values: map[string]float64{"a-x": 1.5, "b-x": math.NaN()},
	}
	if err := s.Write(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"beacon":"07","timestamp":"2024-01-02 10:00:00","values":{"a-x":1.5,"b-x":null}}`
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}

	resp, err = http.Get(ts.URL + "/latest")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatal(err)
	}
	if m.Beacon != "07" || *m.Values["a-x"] != 1.5 || m.Values["b-x"] != nil {
		t.Errorf("unexpected latest %s", body)
	}
}
