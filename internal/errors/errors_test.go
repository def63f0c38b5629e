package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestFromEngineClassifiesTimeouts(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"context deadline", fmt.Errorf("rpc: %w", context.DeadlineExceeded), KindTimeout},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), KindTimeout},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), KindEngine},
		{"plain", stderrors.New("boom"), KindEngine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := FromEngine(tc.err, "labelDetection")
			if !IsKind(err, tc.want) {
				t.Errorf("expected kind %s, got %v", tc.want, err)
			}
			if !stderrors.Is(err, tc.err) {
				t.Errorf("cause not preserved: %v", err)
			}
		})
	}
}

func TestFromEngineNil(t *testing.T) {
	if err := FromEngine(nil, "logoDetection"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := Newf(KindInvalidInput, "bad %s", "hex").WithMetadata("arg", "colorA")
	want := "[INVALID_INPUT] bad hex map[arg:colorA]"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestIsKindNested(t *testing.T) {
	inner := New(KindTimeout, "engine call timed out")
	outer := Wrap(fmt.Errorf("corner top-left: %w", inner), KindEngine, "dominant color failed")

	if !IsKind(outer, KindEngine) {
		t.Error("expected outer kind to match")
	}
	if !IsKind(outer, KindTimeout) {
		t.Error("expected nested kind to match")
	}
	if IsKind(outer, KindResource) {
		t.Error("unexpected kind match")
	}

	joined := stderrors.Join(stderrors.New("plain"), inner)
	if !IsKind(joined, KindTimeout) {
		t.Error("expected kind inside joined error to match")
	}
	if IsKind(nil, KindTimeout) {
		t.Error("nil error has no kind")
	}
}
