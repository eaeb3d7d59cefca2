package types

import (
	"encoding/json"
	"testing"
)

func TestServerResponseOK(t *testing.T) {
	var nilResp *ServerResponse
	if nilResp.OK() {
		t.Fatalf("nil envelope is never ok")
	}
	for code, want := range map[int]bool{200: true, 0: true, 500: false, 401: false} {
		if got := (&ServerResponse{Code: code}).OK(); got != want {
			t.Fatalf("code %d expected ok=%v got %v", code, want, got)
		}
	}
}

func TestServerResponseDecodeData(t *testing.T) {
	var resp ServerResponse
	if err := json.Unmarshal([]byte(`{"code":200,"message":"ok","data":{"token":"t1"}}`), &resp); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := resp.DecodeData(&payload); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if payload.Token != "t1" {
		t.Fatalf("expected token t1, got %q", payload.Token)
	}

	empty := ServerResponse{Code: 200, Data: json.RawMessage("null")}
	if err := empty.DecodeData(&payload); err == nil {
		t.Fatalf("expected error for null data")
	}
	broken := ServerResponse{Code: 200, Data: json.RawMessage(`"not-an-object"`)}
	if err := broken.DecodeData(&payload); err == nil {
		t.Fatalf("expected error for mismatched data")
	}
}
