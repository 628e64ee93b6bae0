package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/pkg/api"
)

func TestWithPayload(t *testing.T) {
	var got api.MoveItemPayload
	h := WithPayload(func(_ Context, p api.MoveItemPayload) (Result, error) {
		got = p
		return Result{Msg: "ok"}, nil
	})

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"srcBag":1,"srcSlot":2,"dstBag":0,"dstSlot":5}`, false},
		{"empty", ``, true},
		{"not json", `{srcBag`, true},
		{"fails validation", `{"srcBag":1,"srcSlot":2,"dstBag":1,"dstSlot":2}`, true},
		{"negative", `{"srcBag":-1,"srcSlot":0,"dstBag":1,"dstSlot":0}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h(Context{}, json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("err = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil || res.Msg != "ok" || got.DstSlot != 5 {
				t.Fatalf("res=%+v err=%v payload=%+v", res, err, got)
			}
		})
	}
}

func TestWithEmptyPayload(t *testing.T) {
	called := false
	h := WithEmptyPayload(func(Context) (Result, error) {
		called = true
		return EmptyResult(), nil
	})
	if _, err := h(Context{}, json.RawMessage(`{"ignored":true}`)); err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err      error
		reason   string
		severity Severity
	}{
		{fmt.Errorf("%w: bad", ErrInvalidPayload), "INVALID_PAYLOAD", SeveritySuspicious},
		{fmt.Errorf("move: %w", domain.ErrInvalidRequest), "INVALID_REQUEST", SeveritySuspicious},
		{domain.ErrNoFreeSlot, "NO_FREE_SLOT", SeverityInfo},
		{fmt.Errorf("%w: need 5", domain.ErrInsufficientFunds), "INSUFFICIENT_FUNDS", SeverityInfo},
		{fmt.Errorf("%w: mailbox full", domain.ErrTargetBusy), "TARGET_BUSY", SeverityInfo},
		{domain.ErrUnimplementedEffect, "UNIMPLEMENTED_EFFECT", SeverityContent},
		{domain.ErrCureNotSupported, "CURE_NOT_SUPPORTED", SeverityContent},
		{errors.New("something else"), "INTERNAL", SeverityContent},
	}
	for _, tt := range tests {
		reason, severity := Reason(tt.err)
		if reason != tt.reason || severity != tt.severity {
			t.Errorf("Reason(%v) = %s/%d, want %s/%d", tt.err, reason, severity, tt.reason, tt.severity)
		}
	}
}
